// Package dataset loads, validates and serves the calendar's event list.
// A Store holds the current query snapshot and a Refresher reloads it on
// a cron schedule.
package dataset

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"acadcal/internal/model"
)

//go:embed data/events.json
var bundled embed.FS

const bundledName = "data/events.json"

// Decode parses an event list. The format is chosen by the extension of
// name: ".yaml" and ".yml" are YAML, everything else is JSON.
func Decode(name string, data []byte) ([]model.Event, error) {
	var events []model.Event

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("dataset: decode %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("dataset: decode %s: %w", name, err)
		}
	}

	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Bundled returns the calendar compiled into the binary.
func Bundled() ([]model.Event, error) {
	data, err := bundled.ReadFile(bundledName)
	if err != nil {
		return nil, fmt.Errorf("dataset: bundled data: %w", err)
	}
	return Decode(bundledName, data)
}
