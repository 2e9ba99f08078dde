package query

import (
	"testing"

	"acadcal/internal/model"
)

func ev(id, title, typ, sem, start, end string) model.Event {
	return model.Event{
		ID:        model.ID(id),
		Title:     title,
		Type:      typ,
		Semester:  sem,
		StartDate: model.MustParseDate(start),
		EndDate:   model.MustParseDate(end),
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e.ID))
	}
	return out
}

func equalIDs(t *testing.T, got []model.Event, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got ids %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got ids %v, want %v", g, want)
		}
	}
}

func exampleEvents() []model.Event {
	return []model.Event{
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
	}
}

func TestWorkedExample(t *testing.T) {
	events := exampleEvents()
	e := New(events)

	equalIDs(t, e.EventsOnDay(model.MustParseDate("2026-03-21")), "2")
	equalIDs(t, Search(events, "exam"), "1")
	equalIDs(t, FilterBySemesterAndType(events, Filter{
		Semester: Only("Spring"),
		Type:     Only("Holiday"),
	}), "2")
}

func TestEventsOnDayBoundaries(t *testing.T) {
	events := []model.Event{
		ev("a", "Registration", "Registration", "Spring", "2026-01-05", "2026-01-09"),
		ev("b", "Classes Begin", "Academic", "Spring", "2026-01-10", "2026-01-10"),
		ev("c", "Year End", "Holiday", "Autumn", "2026-12-31", "2027-01-01"),
	}

	tests := []struct {
		day  string
		want []string
	}{
		{"2026-01-04", nil},
		{"2026-01-05", []string{"a"}},
		{"2026-01-07", []string{"a"}},
		{"2026-01-09", []string{"a"}},
		{"2026-01-10", []string{"b"}},
		{"2026-01-11", nil},
		{"2026-12-31", []string{"c"}},
		{"2027-01-01", []string{"c"}},
		{"2027-01-02", nil},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			got := EventsOnDay(events, model.MustParseDate(tt.day))
			equalIDs(t, got, tt.want...)
		})
	}
}

func TestEventsOnDayCoversEveryDayOfRange(t *testing.T) {
	events := exampleEvents()
	for _, e := range events {
		for d := e.StartDate.AddDays(-3); !d.After(e.EndDate.AddDays(3)); d = d.AddDays(1) {
			found := false
			for _, got := range EventsOnDay(events, d) {
				if got.ID == e.ID {
					found = true
				}
			}
			if inside := d.Within(e.StartDate, e.EndDate); found != inside {
				t.Errorf("event %s on %s: found=%v inside=%v", e.ID, d, found, inside)
			}
		}
	}
}

func TestEventsOnDayEmptyResultIsNonNil(t *testing.T) {
	got := EventsOnDay(nil, model.MustParseDate("2026-01-01"))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestFilterIdentity(t *testing.T) {
	events := []model.Event{
		ev("3", "Summer Break", "Holiday", "Summer", "2026-08-01", "2026-08-10"),
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
	}
	equalIDs(t, FilterBySemesterAndType(events, Filter{}), "3", "1", "2")
	equalIDs(t, FilterBySemesterAndType(events, Filter{Semester: Any(), Type: Any()}), "3", "1", "2")
}

func TestFilterCriteria(t *testing.T) {
	events := []model.Event{
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
		ev("3", "Summer Break", "Holiday", "Summer", "2026-08-01", "2026-08-10"),
		ev("4", "All Hands", "All", "Autumn", "2026-09-01", "2026-09-01"),
	}

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"semester only", Filter{Semester: Only("Spring")}, []string{"1", "2"}},
		{"type only", Filter{Type: Only("Holiday")}, []string{"2", "3"}},
		{"both", Filter{Semester: Only("Summer"), Type: Only("Holiday")}, []string{"3"}},
		{"no match", Filter{Semester: Only("Autumn"), Type: Only("Exam")}, nil},
		{"literal All value in data", Filter{Type: Only("All")}, []string{"4"}},
		{"case sensitive", Filter{Semester: Only("spring")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			equalIDs(t, FilterBySemesterAndType(events, tt.f), tt.want...)
		})
	}
}

func TestParseCriterion(t *testing.T) {
	for _, in := range []string{"", "  ", "All", "all", "ALL"} {
		if ParseCriterion(in).IsSet() {
			t.Errorf("ParseCriterion(%q) should be Any", in)
		}
	}
	c := ParseCriterion(" Spring ")
	if v, ok := c.Value(); !ok || v != "Spring" {
		t.Errorf("ParseCriterion(Spring) = %q, %v", v, ok)
	}
	if Any().String() != AllLabel || Only("Exam").String() != "Exam" {
		t.Error("Criterion.String mismatch")
	}
}

func TestSearch(t *testing.T) {
	events := []model.Event{
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
		ev("3", "Final Examinations", "Exam", "Spring", "2026-04-20", "2026-04-28"),
		ev("4", "Convocation", "Ceremony", "Autumn", "2026-11-14", "2026-11-14"),
	}

	tests := []struct {
		q    string
		want []string
	}{
		{"", nil},
		{"exam", []string{"1", "3"}},
		{"EXAM", []string{"1", "3"}},
		{"eid", []string{"2"}},
		{"holiday", []string{"2"}},
		{"ceremony", []string{"4"}},
		{"xyz", nil},
		{" ", []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run("q="+tt.q, func(t *testing.T) {
			equalIDs(t, Search(events, tt.q), tt.want...)
		})
	}
}

func TestUpcomingFrom(t *testing.T) {
	events := []model.Event{
		ev("late", "Convocation", "Ceremony", "Autumn", "2026-11-14", "2026-11-14"),
		ev("past", "New Year", "Holiday", "Spring", "2026-01-01", "2026-01-01"),
		ev("ongoing", "Spring Classes", "Academic", "Spring", "2026-01-10", "2026-04-15"),
		ev("tie1", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
		ev("tie2", "Independence Day", "Holiday", "Spring", "2026-03-20", "2026-03-20"),
		ev("today", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
	}
	today := model.MustParseDate("2026-03-10")

	equalIDs(t, UpcomingFrom(events, today, 3), "ongoing", "today", "tie1")
	equalIDs(t, UpcomingFrom(events, today, 0), "ongoing", "today", "tie1", "tie2", "late")
	equalIDs(t, UpcomingFrom(events, model.MustParseDate("2026-12-01"), 3))

	got := UpcomingFrom(events, today, 3)
	if len(got) > 3 {
		t.Fatalf("limit exceeded: %d", len(got))
	}
	for i, e := range got {
		if e.EndDate.Before(today) {
			t.Errorf("event %s ended before reference", e.ID)
		}
		if i > 0 && e.StartDate.Before(got[i-1].StartDate) {
			t.Errorf("result not sorted at %d", i)
		}
	}

	// Input is left untouched.
	if events[0].ID != "late" {
		t.Error("UpcomingFrom reordered its input")
	}
}

func TestGroupByMonth(t *testing.T) {
	events := []model.Event{
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Final Exam", "Exam", "Spring", "2026-04-20", "2026-04-28"),
		ev("3", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
	}

	groups := GroupByMonth(events)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Key != "March 2026" || groups[1].Key != "April 2026" {
		t.Errorf("keys = %q, %q", groups[0].Key, groups[1].Key)
	}
	equalIDs(t, groups[0].Events, "1", "3")
	equalIDs(t, groups[1].Events, "2")

	for _, g := range groups {
		for _, e := range g.Events {
			if e.StartDate.Year != g.Year || e.StartDate.Month != g.Month {
				t.Errorf("event %s in wrong group %s", e.ID, g.Key)
			}
		}
	}

	if len(GroupByMonth(nil)) != 0 {
		t.Error("expected no groups for empty input")
	}
}

func TestGroupByMonthSeparatesYears(t *testing.T) {
	events := []model.Event{
		ev("1", "A", "Exam", "Autumn", "2026-12-10", "2026-12-10"),
		ev("2", "B", "Exam", "Spring", "2027-12-10", "2027-12-10"),
	}
	groups := GroupByMonth(events)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestEngineByIDAndOptions(t *testing.T) {
	events := []model.Event{
		ev("1", "Midterm Exam", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("2", "Eid Holiday", "Holiday", "Spring", "2026-03-20", "2026-03-22"),
		ev("3", "Summer Break", "Holiday", "Summer", "2026-08-01", "2026-08-10"),
	}
	e := New(events)

	// Mutating the caller's slice must not leak into the engine.
	events[0].Title = "changed"

	got, ok := e.ByID("1")
	if !ok || got.Title != "Midterm Exam" {
		t.Errorf("ByID(1) = %+v, %v", got, ok)
	}
	if _, ok := e.ByID("missing"); ok {
		t.Error("ByID(missing) should fail")
	}
	if e.Len() != 3 {
		t.Errorf("Len = %d", e.Len())
	}

	opts := e.Options()
	if len(opts.Semesters) != 2 || opts.Semesters[0] != "Spring" || opts.Semesters[1] != "Summer" {
		t.Errorf("semesters = %v", opts.Semesters)
	}
	if len(opts.Types) != 2 || opts.Types[0] != "Exam" || opts.Types[1] != "Holiday" {
		t.Errorf("types = %v", opts.Types)
	}
}

func TestInMonth(t *testing.T) {
	events := []model.Event{
		ev("1", "Spans Feb-Mar", "Holiday", "Spring", "2026-02-27", "2026-03-02"),
		ev("2", "March", "Exam", "Spring", "2026-03-15", "2026-03-15"),
		ev("3", "April", "Exam", "Spring", "2026-04-01", "2026-04-01"),
	}
	equalIDs(t, InMonth(events, 2026, 3), "1", "2")
	equalIDs(t, InMonth(events, 2026, 2), "1")
}

func TestSortByStartIsStable(t *testing.T) {
	events := []model.Event{
		ev("b", "B", "Exam", "Spring", "2026-03-10", "2026-03-10"),
		ev("a", "A", "Exam", "Spring", "2026-01-10", "2026-01-10"),
		ev("c", "C", "Exam", "Spring", "2026-03-10", "2026-03-12"),
	}
	equalIDs(t, SortByStart(events), "a", "b", "c")
	equalIDs(t, events, "b", "a", "c")
}
