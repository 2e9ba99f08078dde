// Package query answers day, filter, search and upcoming queries over an
// immutable list of calendar events. Every function here is pure: inputs
// are never modified and results are freshly allocated slices.
package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"acadcal/internal/model"
)

// MonthKeyLayout formats the month grouping key, e.g. "March 2026".
const MonthKeyLayout = "January 2006"

// Engine holds an immutable event list.
type Engine struct {
	events []model.Event
	byID   map[model.ID]int
}

// New copies events into a new Engine. Callers are expected to pass a
// validated list (see internal/dataset); with duplicate IDs ByID returns
// the first occurrence.
func New(events []model.Event) *Engine {
	e := &Engine{
		events: slices.Clone(events),
		byID:   make(map[model.ID]int, len(events)),
	}
	for i, ev := range e.events {
		if _, dup := e.byID[ev.ID]; !dup {
			e.byID[ev.ID] = i
		}
	}
	return e
}

// All returns a copy of every event in load order.
func (e *Engine) All() []model.Event {
	return slices.Clone(e.events)
}

// Len returns the number of events.
func (e *Engine) Len() int {
	return len(e.events)
}

// ByID looks up a single event.
func (e *Engine) ByID(id model.ID) (model.Event, bool) {
	i, ok := e.byID[id]
	if !ok {
		return model.Event{}, false
	}
	return e.events[i], true
}

// EventsOnDay returns all loaded events active on day.
func (e *Engine) EventsOnDay(day model.Date) []model.Event {
	return EventsOnDay(e.events, day)
}

// Options lists the distinct semesters and types of the loaded events.
func (e *Engine) Options() Options {
	return OptionsOf(e.events)
}

// Options are the values offered by the filter controls, in the order
// they are first seen in the data.
type Options struct {
	Semesters []string `json:"semesters"`
	Types     []string `json:"types"`
}

// OptionsOf collects distinct semester and type values.
func OptionsOf(events []model.Event) Options {
	opts := Options{Semesters: []string{}, Types: []string{}}
	seenSem := make(map[string]bool)
	seenType := make(map[string]bool)
	for _, ev := range events {
		if !seenSem[ev.Semester] {
			seenSem[ev.Semester] = true
			opts.Semesters = append(opts.Semesters, ev.Semester)
		}
		if !seenType[ev.Type] {
			seenType[ev.Type] = true
			opts.Types = append(opts.Types, ev.Type)
		}
	}
	return opts
}

// EventsOnDay returns, in input order, the events whose inclusive
// [StartDate, EndDate] range contains day.
func EventsOnDay(events []model.Event, day model.Date) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.OnDay(day) {
			out = append(out, ev)
		}
	}
	return out
}

// FilterBySemesterAndType keeps the events matching both criteria of f.
// An empty filter returns a copy of the input in its original order.
func FilterBySemesterAndType(events []model.Event, f Filter) []model.Event {
	if f.IsZero() {
		return slices.Clone(events)
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if f.Semester.Matches(ev.Semester) && f.Type.Matches(ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

// Search returns events whose title or type contains q, ignoring case.
// An empty q means search is inactive and yields no results.
func Search(events []model.Event, q string) []model.Event {
	out := make([]model.Event, 0)
	if q == "" {
		return out
	}
	fold := cases.Fold()
	needle := fold.String(q)
	for _, ev := range events {
		if strings.Contains(fold.String(ev.Title), needle) ||
			strings.Contains(fold.String(ev.Type), needle) {
			out = append(out, ev)
		}
	}
	return out
}

// UpcomingFrom returns the events that have not ended before ref, sorted
// by start date (stable, so ties keep input order) and truncated to
// limit. A limit <= 0 disables truncation.
func UpcomingFrom(events []model.Event, ref model.Date, limit int) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if !ev.EndDate.Before(ref) {
			out = append(out, ev)
		}
	}
	sortStable(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortByStart returns a copy of events sorted ascending by start date,
// keeping input order for equal starts.
func SortByStart(events []model.Event) []model.Event {
	out := slices.Clone(events)
	sortStable(out)
	return out
}

func sortStable(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.StartDate.Compare(b.StartDate)
	})
}

// MonthGroup is the set of events starting in one calendar month.
type MonthGroup struct {
	Key    string        `json:"key"`
	Year   int           `json:"year"`
	Month  time.Month    `json:"month"`
	Events []model.Event `json:"events"`
}

// GroupByMonth buckets events by the month of their start date. Groups
// are returned in the order their month is first encountered, and events
// keep their input order within a group.
func GroupByMonth(events []model.Event) []MonthGroup {
	groups := make([]MonthGroup, 0)
	index := make(map[string]int)
	for _, ev := range events {
		key := ev.StartDate.Format(MonthKeyLayout)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{
				Key:   key,
				Year:  ev.StartDate.Year,
				Month: ev.StartDate.Month,
			})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}

// InMonth returns events whose range overlaps the given month.
func InMonth(events []model.Event, year int, month time.Month) []model.Event {
	first := model.NewDate(year, month, 1)
	last := first.LastOfMonth()
	out := make([]model.Event, 0)
	for _, ev := range events {
		if !ev.EndDate.Before(first) && !ev.StartDate.After(last) {
			out = append(out, ev)
		}
	}
	return out
}
