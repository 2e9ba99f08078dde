package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"acadcal/internal/ics"
	appLog "acadcal/internal/log"
	"acadcal/internal/model"
	"acadcal/internal/query"
	"acadcal/internal/view"
)

// eventsResponse is the JSON shape of every list endpoint.
type eventsResponse struct {
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

type dayResponse struct {
	Date model.Date `json:"date"`
	eventsResponse
}

type searchResponse struct {
	Query string `json:"query"`
	eventsResponse
}

type upcomingResponse struct {
	From  model.Date `json:"from"`
	Limit int        `json:"limit"`
	eventsResponse
}

type monthsResponse struct {
	Months []query.MonthGroup `json:"months"`
}

type statusResponse struct {
	Events   int       `json:"events"`
	LoadedAt time.Time `json:"loaded_at"`
}

func listOf(events []model.Event) eventsResponse {
	if events == nil {
		events = []model.Event{}
	}
	return eventsResponse{Count: len(events), Events: events}
}

// filterFrom reads the semester/type criteria; "All" or a missing
// parameter leaves that field unconstrained.
func filterFrom(q url.Values) query.Filter {
	return query.Filter{
		Semester: query.ParseCriterion(q.Get(view.ParamSemester)),
		Type:     query.ParseCriterion(q.Get(view.ParamType)),
	}
}

// GET /api/events?semester=&type=&month=YYYY-MM
//
// month keeps only events whose range overlaps that month.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	events := query.FilterBySemesterAndType(eng.All(), filterFrom(q))
	if v := q.Get(view.ParamMonth); v != "" {
		month, ok := view.ParseMonth(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		events = query.InMonth(events, month.Year, month.Month)
	}
	writeJSON(w, http.StatusOK, listOf(events))
}

// GET /api/events/{id}
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	id := model.ID(r.PathValue("id"))
	ev, found := eng.ByID(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("event %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// GET /api/day?date=YYYY-MM-DD&semester=&type=
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	day, err := model.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	events := query.FilterBySemesterAndType(eng.All(), filterFrom(q))
	writeJSON(w, http.StatusOK, dayResponse{
		Date:           day,
		eventsResponse: listOf(query.EventsOnDay(events, day)),
	})
}

// GET /api/search?q=
//
// Search always runs over every event; filters do not apply.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	q := r.URL.Query().Get(view.ParamSearch)
	writeJSON(w, http.StatusOK, searchResponse{
		Query:          q,
		eventsResponse: listOf(query.Search(eng.All(), q)),
	})
}

// GET /api/upcoming?from=YYYY-MM-DD&limit=N&semester=&type=
//
// from defaults to today in the configured zone and limit to the
// configured upcoming_limit. limit=0 returns every remaining event.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	q := r.URL.Query()

	from := s.today()
	if v := q.Get("from"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}

	limit := s.cfg.UpcomingLimit
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := query.FilterBySemesterAndType(eng.All(), filterFrom(q))
	writeJSON(w, http.StatusOK, upcomingResponse{
		From:           from,
		Limit:          limit,
		eventsResponse: listOf(query.UpcomingFrom(events, from, limit)),
	})
}

// GET /api/months?semester=&type=
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	events := query.FilterBySemesterAndType(eng.All(), filterFrom(r.URL.Query()))
	groups := query.GroupByMonth(query.SortByStart(events))

	writeJSON(w, http.StatusOK, monthsResponse{Months: groups})
}

// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Events: eng.Len(), LoadedAt: s.store.LoadedAt()})
}

// GET /api/options
func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eng.Options())
}

// GET /calendar.ics?semester=&type=
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engine(w)
	if !ok {
		return
	}
	events := query.SortByStart(query.FilterBySemesterAndType(eng.All(), filterFrom(r.URL.Query())))

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="acadcal.ics"`)
	err := ics.Export(w, events, ics.ExportOptions{Name: s.cfg.Title, Stamp: s.now()})
	if err != nil {
		appLog.Error("ics export failed", err)
	}
}
