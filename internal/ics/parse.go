package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "acadcal/internal/log"
)

// PropSemester carries an event's semester through export and import.
const PropSemester = ical.ComponentProperty("X-ACADCAL-SEMESTER")

// ParsedEvent is a VEVENT reduced to the fields the calendar uses.
// Recurrences are kept as raw rules and expanded by ToEvents.
type ParsedEvent struct {
	Source Source

	UID         string
	Summary     string
	Description string
	Categories  []string
	Semester    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
	IsOverride bool
}

// ParseICS parses one ICS payload. A malformed VEVENT is logged and
// skipped; only an unreadable calendar is an error.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(protectCategoryCommas(body)))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if out.Summary == "" {
		return out, fmt.Errorf("event %s has no SUMMARY", out.UID)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			c = strings.ReplaceAll(c, escapedComma, ",")
			if c = strings.TrimSpace(c); c != "" {
				out.Categories = append(out.Categories, c)
			}
		}
	}
	if p := ve.GetProperty(PropSemester); p != nil {
		out.Semester = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("event %s has no DTSTART", out.UID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
	}
	out.Start = start
	out.AllDay = isDateValue(dtStart)

	// DTEND is optional; a missing one means a one-day (all-day) or
	// zero-length (timed) event.
	if end, err := ve.GetEndAt(); err == nil && !end.IsZero() {
		out.End = end
	} else if out.AllDay {
		out.End = start.AddDate(0, 0, 1)
	} else {
		out.End = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, start.Location()); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// escapedComma stands in for an escaped "\," inside a CATEGORIES value.
// The parser unescapes TEXT before we see it, after which a literal comma
// and the list separator look the same.
const escapedComma = "\uE000"

// protectCategoryCommas unfolds body and replaces every escaped comma in
// CATEGORIES lines with escapedComma.
func protectCategoryCommas(body []byte) []byte {
	text := string(body)
	if !strings.Contains(text, `\,`) {
		return body
	}
	text = strings.NewReplacer("\r\n ", "", "\r\n\t", "", "\n ", "", "\n\t", "").Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !isCategoriesLine(line) {
			continue
		}
		if v := valueStart(line); v >= 0 {
			lines[i] = line[:v] + protectCommas(line[v:])
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func isCategoriesLine(line string) bool {
	const name = "CATEGORIES"
	return len(line) > len(name) &&
		strings.EqualFold(line[:len(name)], name) &&
		(line[len(name)] == ':' || line[len(name)] == ';')
}

// valueStart returns the index just past the first unquoted colon.
func valueStart(line string) int {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				return i + 1
			}
		}
	}
	return -1
}

func protectCommas(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			if v[i+1] == ',' {
				b.WriteString(escapedComma)
			} else {
				b.WriteByte(v[i])
				b.WriteByte(v[i+1])
			}
			i++
			continue
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// isDateValue reports whether a DTSTART carries a DATE rather than a
// DATE-TIME, either by VALUE=DATE or by its bare YYYYMMDD form.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
