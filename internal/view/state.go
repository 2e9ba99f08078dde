// Package view holds the view-selector state of the calendar UI (which
// view is shown, which month, filters, search, selected event) and the
// layout helpers the views are built from. Nothing here performs I/O;
// state travels in the URL query string.
package view

import (
	"net/url"
	"strconv"
	"time"

	"acadcal/internal/model"
	"acadcal/internal/query"
)

// Mode selects the main view.
type Mode string

const (
	ModeMonth    Mode = "month"
	ModeSemester Mode = "semester"
	ModeList     Mode = "list"
)

// Modes lists the selectable views in display order.
var Modes = []Mode{ModeMonth, ModeSemester, ModeList}

// Label returns the tab label of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeSemester:
		return "Semester"
	case ModeList:
		return "List"
	default:
		return "Month"
	}
}

// ParseMode maps user input to a Mode, falling back to ModeMonth.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeSemester, ModeList:
		return Mode(s)
	default:
		return ModeMonth
	}
}

// Query parameter names.
const (
	ParamView     = "view"
	ParamMonth    = "month"
	ParamSemester = "semester"
	ParamType     = "type"
	ParamSearch   = "q"
	ParamEvent    = "event"
	ParamFilters  = "filters"
)

// MonthLayout is the URL format of State.Month.
const MonthLayout = "2006-01"

// State is the complete UI state for one page render.
type State struct {
	Mode Mode
	// Month is always the first day of the displayed month.
	Month       model.Date
	Filter      query.Filter
	Query       string
	Selected    model.ID
	ShowFilters bool

	// today is the month FromQuery defaulted to; Values omits Month
	// when it is unchanged.
	today model.Date
}

// New returns the default state for a page opened on today.
func New(today model.Date) State {
	return State{
		Mode:  ModeMonth,
		Month: today.FirstOfMonth(),
		today: today,
	}
}

// FromQuery decodes a State from URL query values. Missing or malformed
// parameters fall back to defaults.
func FromQuery(v url.Values, today model.Date) State {
	s := New(today)
	s.Mode = ParseMode(v.Get(ParamView))
	if m, ok := ParseMonth(v.Get(ParamMonth)); ok {
		s.Month = m
	}
	s.Filter = query.Filter{
		Semester: query.ParseCriterion(v.Get(ParamSemester)),
		Type:     query.ParseCriterion(v.Get(ParamType)),
	}
	s.Query = v.Get(ParamSearch)
	s.Selected = model.ID(v.Get(ParamEvent))
	s.ShowFilters, _ = strconv.ParseBool(v.Get(ParamFilters))
	return s
}

// ParseMonth parses a YYYY-MM month into its first day.
func ParseMonth(s string) (model.Date, bool) {
	if s == "" {
		return model.Date{}, false
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// Values encodes the state as URL query values, leaving out defaults.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Mode != ModeMonth && s.Mode != "" {
		v.Set(ParamView, string(s.Mode))
	}
	if !s.Month.IsZero() && !s.Month.SameMonth(s.today) {
		v.Set(ParamMonth, s.Month.Format(MonthLayout))
	}
	if val, ok := s.Filter.Semester.Value(); ok {
		v.Set(ParamSemester, val)
	}
	if val, ok := s.Filter.Type.Value(); ok {
		v.Set(ParamType, val)
	}
	if s.Query != "" {
		v.Set(ParamSearch, s.Query)
	}
	if s.Selected != "" {
		v.Set(ParamEvent, string(s.Selected))
	}
	if s.ShowFilters {
		v.Set(ParamFilters, "1")
	}
	return v
}

// URL returns "/" plus the encoded query, for links in templates.
func (s State) URL() string {
	q := s.Values().Encode()
	if q == "" {
		return "/"
	}
	return "/?" + q
}

// SearchActive reports whether a search query is entered. While it is,
// views and filters are inactive.
func (s State) SearchActive() bool { return s.Query != "" }

// FiltersActive reports whether any filter criterion is set.
func (s State) FiltersActive() bool { return !s.Filter.IsZero() }

// ShowHero reports whether the upcoming-events panel is displayed.
func (s State) ShowHero() bool {
	return s.Mode == ModeMonth && !s.ShowFilters && !s.SearchActive()
}

func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

func (s State) NextMonth() State {
	s.Month = s.Month.FirstOfMonth().AddMonths(1)
	return s
}

func (s State) PrevMonth() State {
	s.Month = s.Month.FirstOfMonth().AddMonths(-1)
	return s
}

// ThisMonth jumps back to the month containing today.
func (s State) ThisMonth() State {
	s.Month = s.today.FirstOfMonth()
	return s
}

func (s State) WithSemester(c query.Criterion) State {
	s.Filter.Semester = c
	return s
}

func (s State) WithType(c query.Criterion) State {
	s.Filter.Type = c
	return s
}

func (s State) WithSelected(id model.ID) State {
	s.Selected = id
	return s
}

func (s State) WithoutSelected() State {
	s.Selected = ""
	return s
}

func (s State) ToggleFilters() State {
	s.ShowFilters = !s.ShowFilters
	return s
}

func (s State) ClearSearch() State {
	s.Query = ""
	return s
}

// OpenSearchResult is the transition taken when a search hit is chosen:
// the search is cleared, the month view is shown at the event's start
// month and the event is selected.
func (s State) OpenSearchResult(ev model.Event) State {
	s.Query = ""
	s.Mode = ModeMonth
	s.Month = ev.StartDate.FirstOfMonth()
	s.Selected = ev.ID
	return s
}

// Equal compares the user-visible parts of two states.
func (s State) Equal(o State) bool {
	return s.Mode == o.Mode &&
		s.Month == o.Month &&
		s.Filter == o.Filter &&
		s.Query == o.Query &&
		s.Selected == o.Selected &&
		s.ShowFilters == o.ShowFilters
}
