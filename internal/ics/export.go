package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"acadcal/internal/model"
)

// ProductID identifies calendars produced by Export.
const ProductID = "-//acadcal//Academic Calendar//EN"

// uidDomain is appended to event ids to form globally unique UIDs.
const uidDomain = "acadcal"

// ExportOptions controls calendar-level properties of an export.
type ExportOptions struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Stamp is written as DTSTAMP on every event; zero means now.
	Stamp time.Time
}

// Export writes events as an iCalendar stream of all-day VEVENTs. Types
// become CATEGORIES and the semester travels in X-ACADCAL-SEMESTER so
// that ParseICS/ToEvents can read the file back.
func Export(w io.Writer, events []model.Event, opts ExportOptions) error {
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	for _, ev := range events {
		vev := cal.AddEvent(fmt.Sprintf("%s@%s", ev.ID, uidDomain))
		vev.SetDtStampTime(stamp)
		vev.SetSummary(ev.Title)
		vev.SetAllDayStartAt(ev.StartDate.In(time.UTC))
		// DTEND of a DATE event is exclusive.
		vev.SetAllDayEndAt(ev.EndDate.AddDays(1).In(time.UTC))
		if ev.Type != "" {
			vev.AddCategory(ev.Type)
		}
		if ev.Semester != "" {
			vev.SetProperty(PropSemester, ev.Semester)
		}
		if desc := describe(ev); desc != "" {
			vev.SetDescription(desc)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("ics: serialize: %w", err)
	}
	return nil
}

// describe renders the semester line and any schedule as plain text.
func describe(ev model.Event) string {
	var b strings.Builder
	if ev.Semester != "" {
		fmt.Fprintf(&b, "%s semester", ev.Semester)
	}
	for _, day := range ev.Schedule {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(day.Date)
		for _, slot := range day.Slots {
			fmt.Fprintf(&b, "\n  %s: %s", slot.Time, slot.Criteria)
		}
	}
	return b.String()
}
