package dataset

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"acadcal/internal/model"
)

// Violation is one problem found in a record.
type Violation struct {
	Index int
	ID    model.ID
	Field string
	Msg   string
}

func (v Violation) String() string {
	if v.ID != "" {
		return fmt.Sprintf("event #%d (id %s): %s: %s", v.Index, v.ID, v.Field, v.Msg)
	}
	return fmt.Sprintf("event #%d: %s: %s", v.Index, v.Field, v.Msg)
}

// ValidationError lists every Violation found by Validate.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, v.String())
	}
	return fmt.Sprintf("dataset: %d invalid record(s):\n  %s", len(e.Violations), strings.Join(lines, "\n  "))
}

// Validate checks events and returns a normalized copy.
//
// A missing endDate becomes the startDate and a missing id gets a random
// UUID. Records must have a title, a startDate not after their endDate,
// and an id not used by an earlier record. All violations are reported
// together in a *ValidationError.
func Validate(events []model.Event) ([]model.Event, error) {
	out := make([]model.Event, len(events))
	copy(out, events)

	var violations []Violation
	seen := make(map[model.ID]int, len(out))

	for i := range out {
		ev := &out[i]
		bad := func(field, msg string) {
			violations = append(violations, Violation{Index: i, ID: ev.ID, Field: field, Msg: msg})
		}

		ev.Title = strings.TrimSpace(ev.Title)
		if ev.Title == "" {
			bad("title", "is empty")
		}
		if ev.StartDate.IsZero() {
			bad("startDate", "is missing")
		}
		if ev.EndDate.IsZero() {
			ev.EndDate = ev.StartDate
		}
		if !ev.StartDate.IsZero() && ev.EndDate.Before(ev.StartDate) {
			bad("endDate", fmt.Sprintf("%s is before startDate %s", ev.EndDate, ev.StartDate))
		}

		if ev.ID == "" {
			ev.ID = model.ID(uuid.NewString())
		}
		if first, dup := seen[ev.ID]; dup {
			bad("id", fmt.Sprintf("duplicates event #%d", first))
		} else {
			seen[ev.ID] = i
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return out, nil
}
