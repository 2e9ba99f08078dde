package view

import (
	"time"

	"acadcal/internal/model"
	"acadcal/internal/query"
)

// Day is one cell of the month grid.
type Day struct {
	Date    model.Date
	InMonth bool
	IsToday bool
	Events  []model.Event
}

// Week is seven consecutive Days starting at the configured week start.
type Week []Day

// MonthGrid lays out the month containing month as whole weeks, from the
// start of the week holding the 1st to the end of the week holding the
// last day. Each Day carries the events active on it.
func MonthGrid(month model.Date, weekStart time.Weekday, today model.Date, events []model.Event) []Week {
	first := month.FirstOfMonth()
	last := first.LastOfMonth()

	start := first.AddDays(-daysSince(first.Weekday(), weekStart))
	end := last.AddDays(6 - daysSince(last.Weekday(), weekStart))

	weeks := make([]Week, 0, 6)
	var week Week
	for d := start; !d.After(end); d = d.AddDays(1) {
		week = append(week, Day{
			Date:    d,
			InMonth: d.SameMonth(first),
			IsToday: d == today,
			Events:  query.EventsOnDay(events, d),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks
}

// WeekdayHeaders returns the weekday column order for weekStart.
func WeekdayHeaders(weekStart time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range 7 {
		out[i] = (weekStart + time.Weekday(i)) % 7
	}
	return out
}

func daysSince(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}

// SemesterColumn is one semester card of the semester view.
type SemesterColumn struct {
	Semester string
	Events   []model.Event
}

// SemesterColumns builds one column per semester in the given order,
// each holding that semester's events sorted by start date. Events of
// semesters not listed are not shown.
func SemesterColumns(semesters []string, events []model.Event) []SemesterColumn {
	cols := make([]SemesterColumn, 0, len(semesters))
	for _, sem := range semesters {
		matched := query.FilterBySemesterAndType(events, query.Filter{Semester: query.Only(sem)})
		cols = append(cols, SemesterColumn{
			Semester: sem,
			Events:   query.SortByStart(matched),
		})
	}
	return cols
}

// HeroPanel is the "coming up" panel of the month view.
type HeroPanel struct {
	Primary model.Event
	Next    []model.Event
}

// Hero splits an upcoming list into the highlighted event and the rest.
// It reports false when there is nothing upcoming.
func Hero(upcoming []model.Event) (HeroPanel, bool) {
	if len(upcoming) == 0 {
		return HeroPanel{}, false
	}
	return HeroPanel{Primary: upcoming[0], Next: upcoming[1:]}, true
}
