package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	appLog "acadcal/internal/log"
	"acadcal/internal/model"
	"acadcal/internal/query"
	"acadcal/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").Funcs(template.FuncMap{
		"date":      formatDate,
		"dateRange": dateRange,
	}).ParseFS(templateFS, "templates/page.html"),
)

func formatDate(d model.Date, layout string) string {
	return d.Format(layout)
}

// dateRange renders "March 2, 2026" or "March 2, 2026 - March 5, 2026".
func dateRange(ev model.Event) string {
	const layout = "January 2, 2006"
	if ev.SingleDay() {
		return ev.StartDate.Format(layout)
	}
	return ev.StartDate.Format(layout) + " - " + ev.EndDate.Format(layout)
}

type link struct {
	Label  string
	URL    string
	Active bool
}

type monthSection struct {
	Label    string
	Headers  []string
	Weeks    []view.Week
	PrevURL  string
	NextURL  string
	TodayURL string
}

// page is everything the template needs for one render.
type page struct {
	Title string
	State view.State
	Today model.Date

	Tabs             []link
	FilterToggleURL  string
	ClearSearchURL   string
	ClearFiltersURL  string
	SemesterFilters  []link
	TypeFilters      []link
	HiddenSearchArgs map[string]string

	Results []model.Event

	Hero      *view.HeroPanel
	Month     *monthSection
	Semesters []view.SemesterColumn
	Groups    []query.MonthGroup

	Selected *model.Event
	CloseURL string
}

// EventURL links to the current page with the event's detail panel open.
func (p *page) EventURL(id model.ID) string {
	return p.State.WithSelected(id).URL()
}

// OpenURL links a search hit to the month it starts in.
func (p *page) OpenURL(id model.ID) string {
	q := p.State.Values().Encode()
	u := "/open/" + url.PathEscape(string(id))
	if q != "" {
		u += "?" + q
	}
	return u
}

// GET /
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	today := s.today()
	st := view.FromQuery(r.URL.Query(), today)

	p := s.buildPage(eng, st, today)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		appLog.Error("page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// GET /open/{id}
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	ev, found := eng.ByID(model.ID(r.PathValue("id")))
	if !found {
		http.NotFound(w, r)
		return
	}
	st := view.FromQuery(r.URL.Query(), s.today()).OpenSearchResult(ev)
	http.Redirect(w, r, st.URL(), http.StatusSeeOther)
}

func (s *Server) buildPage(eng *query.Engine, st view.State, today model.Date) *page {
	opts := eng.Options()
	p := &page{
		Title:           s.cfg.Title,
		State:           st,
		Today:           today,
		FilterToggleURL: st.ToggleFilters().URL(),
		ClearSearchURL:  st.ClearSearch().URL(),
		ClearFiltersURL: st.WithSemester(query.Any()).WithType(query.Any()).URL(),
		CloseURL:        st.WithoutSelected().URL(),
	}

	for _, m := range view.Modes {
		p.Tabs = append(p.Tabs, link{Label: m.Label(), URL: st.WithMode(m).URL(), Active: st.Mode == m})
	}
	p.SemesterFilters = filterLinks(opts.Semesters, st.Filter.Semester, st.WithSemester)
	p.TypeFilters = filterLinks(opts.Types, st.Filter.Type, st.WithType)

	// The search form resubmits everything but the query itself.
	p.HiddenSearchArgs = map[string]string{}
	for k, v := range st.ClearSearch().WithoutSelected().Values() {
		p.HiddenSearchArgs[k] = strings.Join(v, ",")
	}

	if sel, ok := eng.ByID(st.Selected); ok && st.Selected != "" {
		p.Selected = &sel
	}

	if st.SearchActive() {
		p.Results = query.Search(eng.All(), st.Query)
		return p
	}

	events := query.FilterBySemesterAndType(eng.All(), st.Filter)

	if st.ShowHero() {
		if hero, ok := view.Hero(query.UpcomingFrom(events, today, s.cfg.UpcomingLimit)); ok {
			p.Hero = &hero
		}
	}

	switch st.Mode {
	case view.ModeSemester:
		p.Semesters = view.SemesterColumns(s.cfg.Semesters, events)
	case view.ModeList:
		p.Groups = query.GroupByMonth(query.SortByStart(events))
	default:
		weekStart := s.cfg.FirstWeekday()
		headers := make([]string, 0, 7)
		for _, wd := range view.WeekdayHeaders(weekStart) {
			headers = append(headers, wd.String()[:3])
		}
		p.Month = &monthSection{
			Label:    st.Month.Format(query.MonthKeyLayout),
			Headers:  headers,
			Weeks:    view.MonthGrid(st.Month, weekStart, today, events),
			PrevURL:  st.PrevMonth().URL(),
			NextURL:  st.NextMonth().URL(),
			TodayURL: st.ThisMonth().URL(),
		}
	}
	return p
}

// filterLinks builds the "All" link followed by one link per option.
func filterLinks(options []string, current query.Criterion, with func(query.Criterion) view.State) []link {
	links := []link{{Label: query.AllLabel, URL: with(query.Any()).URL(), Active: !current.IsSet()}}
	for _, o := range options {
		c := query.Only(o)
		links = append(links, link{Label: o, URL: with(c).URL(), Active: current == c})
	}
	return links
}
