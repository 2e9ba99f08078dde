package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"acadcal/internal/auth"
	"acadcal/internal/config"
	"acadcal/internal/dataset"
	"acadcal/internal/ics"
	"acadcal/internal/model"
)

var testEvents = []model.Event{
	{ID: "1", Title: "Midterm Exam", Type: "Exam", Semester: "Spring", StartDate: model.MustParseDate("2026-03-10"), EndDate: model.MustParseDate("2026-03-10"), Color: "bg-red-100 text-red-700 border-red-200"},
	{ID: "2", Title: "Eid Holiday", Type: "Holiday", Semester: "Spring", StartDate: model.MustParseDate("2026-03-20"), EndDate: model.MustParseDate("2026-03-22"), Color: "bg-emerald-100 text-emerald-700"},
	{ID: "3", Title: "Summer Classes Begin", Type: "Academic", Semester: "Summer", StartDate: model.MustParseDate("2026-05-10"), EndDate: model.MustParseDate("2026-05-10"),
		Schedule: []model.ScheduleDay{{Date: "Sun, 10 May", Slots: []model.Slot{{Time: "8:00 AM", Criteria: "Orientation"}}}}},
	{ID: "4", Title: "Final Exam", Type: "Exam", Semester: "Summer", StartDate: model.MustParseDate("2026-08-15"), EndDate: model.MustParseDate("2026-08-22")},
}

// clock is 2026-03-15 in UTC.
var clock = func() time.Time { return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	store := dataset.NewStore(nil)
	store.Set(testEvents)
	return NewServer(cfg, store, WithClock(clock))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

func ids(events []model.Event) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, string(e.ID))
	}
	return strings.Join(parts, ",")
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNotLoaded(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := NewServer(cfg, dataset.NewStore(nil))
	for _, path := range []string{"/", "/api/events", "/calendar.ics"} {
		rec := get(t, srv.Handler(), path)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, rec.Code)
		}
	}
}

func TestAPIEvents(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		target string
		want   string
	}{
		{"/api/events", "1,2,3,4"},
		{"/api/events?semester=All&type=All", "1,2,3,4"},
		{"/api/events?semester=Spring", "1,2"},
		{"/api/events?type=Exam", "1,4"},
		{"/api/events?semester=Spring&type=Holiday", "2"},
		{"/api/events?semester=Autumn", ""},
		{"/api/events?month=2026-03", "1,2"},
		{"/api/events?month=2026-08&type=Exam", "4"},
		{"/api/events?month=2026-06", ""},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d", tt.target, rec.Code)
		}
		resp := decode[eventsResponse](t, rec)
		if got := ids(resp.Events); got != tt.want || resp.Count != len(resp.Events) {
			t.Errorf("%s = %q (count %d), want %q", tt.target, got, resp.Count, tt.want)
		}
	}
}

func TestAPIEventsBadMonth(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/api/events?month=March")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", rec.Code)
	}
}

func TestAPIStatus(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[statusResponse](t, rec)
	if resp.Events != len(testEvents) || resp.LoadedAt.IsZero() {
		t.Errorf("status = %+v", resp)
	}
}

func TestAPIEventByID(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/api/events/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	ev := decode[model.Event](t, rec)
	if ev.Title != "Eid Holiday" || ev.EndDate.String() != "2026-03-22" {
		t.Errorf("event = %+v", ev)
	}

	rec = get(t, h, "/api/events/99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Error == "" {
		t.Error("missing error message")
	}
}

func TestAPIDay(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	resp := decode[dayResponse](t, get(t, h, "/api/day?date=2026-03-21"))
	if ids(resp.Events) != "2" || resp.Date.String() != "2026-03-21" {
		t.Errorf("day = %+v", resp)
	}

	resp = decode[dayResponse](t, get(t, h, "/api/day?date=2026-03-21&type=Exam"))
	if len(resp.Events) != 0 || resp.Events == nil {
		t.Errorf("filtered day should be an empty list, got %+v", resp.Events)
	}

	for _, bad := range []string{"/api/day", "/api/day?date=21-03-2026"} {
		if rec := get(t, h, bad); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestAPISearch(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	resp := decode[searchResponse](t, get(t, h, "/api/search?q=EXAM"))
	if ids(resp.Events) != "1,4" || resp.Query != "EXAM" {
		t.Errorf("search = %+v", resp)
	}

	resp = decode[searchResponse](t, get(t, h, "/api/search?q="))
	if resp.Count != 0 {
		t.Errorf("empty query should find nothing, got %d", resp.Count)
	}
}

func TestAPIUpcoming(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	resp := decode[upcomingResponse](t, get(t, h, "/api/upcoming"))
	if resp.From.String() != "2026-03-15" || resp.Limit != 3 || ids(resp.Events) != "2,3,4" {
		t.Errorf("upcoming = %+v", resp)
	}

	resp = decode[upcomingResponse](t, get(t, h, "/api/upcoming?from=2026-03-01&limit=0"))
	if ids(resp.Events) != "1,2,3,4" {
		t.Errorf("limit=0 = %q", ids(resp.Events))
	}

	resp = decode[upcomingResponse](t, get(t, h, "/api/upcoming?from=2026-03-22&limit=1"))
	if ids(resp.Events) != "2" {
		t.Errorf("event ending on from should be included, got %q", ids(resp.Events))
	}

	for _, bad := range []string{"/api/upcoming?limit=-1", "/api/upcoming?limit=x", "/api/upcoming?from=soon"} {
		if rec := get(t, h, bad); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestAPIMonthsAndOptions(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	months := decode[monthsResponse](t, get(t, h, "/api/months?type=Exam"))
	if len(months.Months) != 2 || months.Months[0].Key != "March 2026" || months.Months[1].Key != "August 2026" {
		t.Errorf("months = %+v", months)
	}
	if months.Months[1].Month != 8 || ids(months.Months[1].Events) != "4" {
		t.Errorf("August group = %+v", months.Months[1])
	}

	opts := decode[struct {
		Semesters []string `json:"semesters"`
		Types     []string `json:"types"`
	}](t, get(t, h, "/api/options"))
	if strings.Join(opts.Semesters, ",") != "Spring,Summer" || strings.Join(opts.Types, ",") != "Exam,Holiday,Academic" {
		t.Errorf("options = %+v", opts)
	}
}

func TestCalendarICS(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/calendar.ics?semester=Spring")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}

	parsed, err := ics.ParseICS(ics.Source{ID: "download"}, rec.Body.Bytes())
	if err != nil {
		t.Fatalf("downloaded calendar does not parse: %v", err)
	}
	res, err := ics.ToEvents(parsed, ics.YearWindow(2026, 2026, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if ids(res.Events) != "1,2" {
		t.Errorf("round-tripped ids = %q", ids(res.Events))
	}
	if res.Events[1].EndDate.String() != "2026-03-22" || res.Events[1].Type != "Holiday" {
		t.Errorf("round-tripped event = %+v", res.Events[1])
	}
}

func TestPageMonthView(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-ready="true"`,
		"March 2026",
		"Midterm Exam",
		`id="hero"`,
		"Coming up",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	rec = get(t, h, "/?month=2026-05&filters=1")
	body = rec.Body.String()
	if strings.Contains(body, `id="hero"`) {
		t.Error("hero must be hidden while the filter panel is open")
	}
	if !strings.Contains(body, "May 2026") || !strings.Contains(body, `id="filters"`) {
		t.Error("May page with filter panel not rendered")
	}
}

func TestPageOtherViews(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	body := get(t, h, "/?view=semester").Body.String()
	if !strings.Contains(body, `id="semesters"`) || !strings.Contains(body, "Autumn") {
		t.Error("semester view should show every configured semester")
	}
	if strings.Contains(body, `id="hero"`) {
		t.Error("hero is only shown in the month view")
	}

	body = get(t, h, "/?view=list&type=Exam").Body.String()
	if !strings.Contains(body, "March 2026") || !strings.Contains(body, "August 2026") || strings.Contains(body, "Eid Holiday") {
		t.Error("list view should group the filtered events by month")
	}

	body = get(t, h, "/?event=3").Body.String()
	if !strings.Contains(body, `id="event"`) || !strings.Contains(body, "Orientation") {
		t.Error("selected event panel with schedule missing")
	}
}

func TestPageSearch(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	body := get(t, h, "/?q=holiday&semester=Summer").Body.String()
	if !strings.Contains(body, "1 found") || !strings.Contains(body, "Eid Holiday") {
		t.Error("search should run over all events regardless of filters")
	}
	if !strings.Contains(body, `href="/open/2?q=holiday&amp;semester=Summer"`) {
		t.Errorf("missing open link in:\n%s", body)
	}
	if strings.Contains(body, `id="month"`) {
		t.Error("views are hidden while searching")
	}

	body = get(t, h, "/?q=nothing-matches").Body.String()
	if !strings.Contains(body, "0 found") {
		t.Error("missing empty search state")
	}
}

func TestOpenSearchResult(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/open/3?q=summer&view=list&type=Exam")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	for _, want := range []string{"month=2026-05", "event=3", "type=Exam"} {
		if !strings.Contains(loc, want) {
			t.Errorf("Location %q missing %q", loc, want)
		}
	}
	if strings.Contains(loc, "q=") || strings.Contains(loc, "view=") {
		t.Errorf("Location %q should clear the search and switch to month view", loc)
	}

	if rec := get(t, h, "/open/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "registrar", Password: "s3cret"}
	}).Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health must stay public, got %d", rec.Code)
	}
	rec := get(t, h, "/api/events")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("unauthenticated = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("registrar", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated = %d", rec.Code)
	}

	req.SetBasicAuth("registrar", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", rec.Code)
	}
}

func TestBasicAuthPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "registrar", PasswordHash: hash}
	}).Handler()

	for _, tc := range []struct {
		password string
		want     int
	}{
		{"s3cret", http.StatusOK},
		{"wrong", http.StatusUnauthorized},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.SetBasicAuth("registrar", tc.password)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("password %q = %d, want %d", tc.password, rec.Code, tc.want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
	rec := httptest.NewRecorder()
	newTestServer(t, nil).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST = %d, want 405", rec.Code)
	}
}
