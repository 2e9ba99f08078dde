package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID identifies an event within a dataset. Data files may carry either
// strings or integers; both decode to the same textual ID.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("event id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Event is a single entry of the academic calendar: an exam, a holiday,
// a semester milestone, etc. Events are immutable once loaded.
type Event struct {
	ID       ID     `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Type     string `json:"type" yaml:"type"`
	Semester string `json:"semester" yaml:"semester"`

	// StartDate / EndDate form an inclusive range of calendar days.
	StartDate Date `json:"startDate" yaml:"startDate"`
	EndDate   Date `json:"endDate" yaml:"endDate"`

	// Color is a presentation token (CSS classes) passed through to markup.
	Color string `json:"color,omitempty" yaml:"color,omitempty"`

	// Schedule is an optional per-day breakdown, e.g. an exam timetable.
	Schedule []ScheduleDay `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// ScheduleDay is one day of an event's detailed schedule. Date is display
// text as it appears in the source data, not a parsed Date.
type ScheduleDay struct {
	Date  string `json:"date" yaml:"date"`
	Slots []Slot `json:"slots" yaml:"slots"`
}

// Slot is a single session within a ScheduleDay.
type Slot struct {
	Time     string `json:"time" yaml:"time"`
	Criteria string `json:"criteria" yaml:"criteria"`
}

// SingleDay reports whether the event starts and ends on the same day.
func (e Event) SingleDay() bool {
	return e.StartDate == e.EndDate
}

// OnDay reports whether d falls within the event's inclusive range.
func (e Event) OnDay(d Date) bool {
	return d.Within(e.StartDate, e.EndDate)
}

// Days returns the number of calendar days the event spans.
func (e Event) Days() int {
	n := 1
	for d := e.StartDate; d.Before(e.EndDate); d = d.AddDays(1) {
		n++
	}
	return n
}

// ColorToken returns the n-th whitespace separated token of Color, or ""
// if there are fewer tokens.
func (e Event) ColorToken(n int) string {
	fields := strings.Fields(e.Color)
	if n < 0 || n >= len(fields) {
		return ""
	}
	return fields[n]
}
