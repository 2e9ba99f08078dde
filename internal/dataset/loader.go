package dataset

import (
	"context"
	"fmt"
	"os"

	"acadcal/internal/ics"
	appLog "acadcal/internal/log"
	"acadcal/internal/model"
)

// Loader assembles the event list from a data file and ICS feeds.
type Loader struct {
	// File is a JSON or YAML event list. Empty means the bundled data.
	File string

	// Sources are merged after the file. Fetcher must be set when
	// Sources is non-empty.
	Sources []ics.Source
	Fetcher *ics.Fetcher
	Window  ics.Window
}

// Load reads and validates the file, then appends events imported from
// every source. A broken file is an error; a broken feed is logged and
// skipped. Imported events whose id is already taken are dropped.
func (l *Loader) Load(ctx context.Context) ([]model.Event, error) {
	base, err := l.loadFile()
	if err != nil {
		return nil, err
	}
	events, err := Validate(base)
	if err != nil {
		return nil, err
	}

	if len(l.Sources) == 0 || l.Fetcher == nil {
		return events, nil
	}

	taken := make(map[model.ID]bool, len(events))
	for _, ev := range events {
		taken[ev.ID] = true
	}

	results, _ := l.Fetcher.FetchAll(ctx, l.Sources)
	for _, res := range results {
		imported, err := l.importFeed(res)
		if err != nil {
			appLog.Error("ics import failed; skipping source", err, "id", res.Source.ID)
			continue
		}

		dropped := 0
		for _, ev := range imported {
			if taken[ev.ID] {
				dropped++
				continue
			}
			taken[ev.ID] = true
			events = append(events, ev)
		}
		appLog.Info("ics source merged",
			"id", res.Source.ID,
			"events", len(imported)-dropped,
			"duplicates", dropped,
			"from_cache", res.FromCache,
		)
	}

	return events, nil
}

func (l *Loader) loadFile() ([]model.Event, error) {
	if l.File == "" {
		return Bundled()
	}
	data, err := os.ReadFile(l.File)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return Decode(l.File, data)
}

func (l *Loader) importFeed(res ics.FetchResult) ([]model.Event, error) {
	parsed, err := ics.ParseICS(res.Source, res.Body)
	if err != nil {
		return nil, err
	}
	out, err := ics.ToEvents(parsed, l.Window)
	if err != nil {
		return nil, err
	}
	return Validate(out.Events)
}
