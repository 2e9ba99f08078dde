package ics

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "acadcal/internal/log"
	"acadcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
	defaultEventType              = "Event"
)

// Window bounds the days for which imported events are kept.
type Window struct {
	// Start / End are inclusive.
	Start model.Date
	End   model.Date

	// Location is the zone used to turn timed events into calendar days.
	// If nil, time.Local is used.
	Location *time.Location

	// MaxOccurrencesPerEvent caps RRULE expansion per UID. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// YearWindow returns a window covering the whole of the given years.
func YearWindow(from, to int, loc *time.Location) Window {
	return Window{
		Start:    model.NewDate(from, time.January, 1),
		End:      model.NewDate(to, time.December, 31),
		Location: loc,
	}
}

// Result holds the converted events and the UIDs whose recurrence hit
// the occurrence cap.
type Result struct {
	Events          []model.Event
	TruncatedEvents []string
}

// ToEvents expands parsed VEVENTs into calendar events inside w.
//
//   - RRULEs are expanded with EXDATEs removed.
//   - RECURRENCE-ID overrides replace the matching instance.
//   - All-day DTEND is exclusive; the event ends the day before.
//   - Recurring instances get the id UID@YYYY-MM-DD.
//
// The result is sorted by start date, then id.
func ToEvents(parsed []ParsedEvent, w Window) (Result, error) {
	var result Result

	if w.End.Before(w.Start) {
		return result, errors.New("ics: window end is before start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxOccurrencesPerEvent <= 0 {
		w.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	uids := make([]string, 0)
	for _, ev := range parsed {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	events := make([]model.Event, 0)
	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false
		for _, ev := range baseByUID[uid] {
			var out []model.Event
			if ev.RawRRule == "" {
				out = expandSingle(ev, ov, w)
			} else {
				var hitCap bool
				out, hitCap = expandRecurring(ev, ov, w)
				truncated = truncated || hitCap
			}
			events = append(events, out...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("ics recurrence truncated", "uid", uid, "cap", w.MaxOccurrencesPerEvent)
		}
	}

	slices.SortStableFunc(events, func(a, b model.Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	result.Events = events
	return result, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, w Window) []model.Event {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	// Our own exports carry "<id>@acadcal"; give those their id back.
	id := model.ID(strings.TrimSuffix(ev.UID, "@"+uidDomain))
	out := makeEvent(ev, ev.Start, ev.End, id, w.Location)
	if !overlaps(out, w) {
		return nil
	}
	return []model.Event{out}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w Window) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen by one day on each side so events that cross midnight in the
	// display zone are not lost; overlaps() trims precisely afterwards.
	loc := ev.Start.Location()
	from := w.Start.AddDays(-1).In(loc)
	to := w.End.AddDays(2).In(loc)
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > w.MaxOccurrencesPerEvent {
		starts = starts[:w.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.Event, 0, len(starts))
	for _, start := range starts {
		end := start.Add(dur)
		if ev.AllDay {
			days := int(dur.Hours()/24 + 0.5)
			end = start.AddDate(0, 0, max(days, 1))
		}

		// The id names the original occurrence so a moved instance
		// cannot collide with another one.
		id := model.ID(ev.UID + "@" + model.DateOf(start).String())

		inst := ev
		if o, ok := findOverride(overrides, start); ok {
			inst = o
			start, end = o.Start, o.End
		}

		e := makeEvent(inst, start, end, id, w.Location)
		if overlaps(e, w) {
			out = append(out, e)
		}
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts one instance into a model.Event. All-day instances
// keep their own calendar days; timed ones are read in loc.
func makeEvent(ev ParsedEvent, start, end time.Time, id model.ID, loc *time.Location) model.Event {
	var startDate, endDate model.Date
	if ev.AllDay {
		startDate = model.DateOf(start)
		endDate = model.DateOf(end).AddDays(-1)
	} else {
		s, e := start.In(loc), end.In(loc)
		startDate = model.DateOf(s)
		endDate = model.DateOf(e)
		if e.After(s) && e.Equal(endDate.In(loc)) {
			// Ends exactly at midnight: the last day is the previous one.
			endDate = endDate.AddDays(-1)
		}
	}
	if endDate.Before(startDate) {
		endDate = startDate
	}

	typ := ev.Source.Type
	if len(ev.Categories) > 0 {
		typ = ev.Categories[0]
	}
	if typ == "" {
		typ = defaultEventType
	}

	sem := ev.Semester
	if sem == "" {
		sem = ev.Source.Semester
	}
	if sem == "" {
		sem = SemesterFor(startDate)
	}

	return model.Event{
		ID:        id,
		Title:     ev.Summary,
		Type:      typ,
		Semester:  sem,
		StartDate: startDate,
		EndDate:   endDate,
		Color:     ev.Source.Color,
	}
}

func overlaps(e model.Event, w Window) bool {
	return !e.EndDate.Before(w.Start) && !e.StartDate.After(w.End)
}

// SemesterFor maps a date onto the trimester it falls in: January to
// April is Spring, May to August Summer, September to December Autumn.
func SemesterFor(d model.Date) string {
	switch {
	case d.Month <= time.April:
		return "Spring"
	case d.Month <= time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}
