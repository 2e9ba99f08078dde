package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"acadcal/internal/config"
	"acadcal/internal/dataset"
	"acadcal/internal/ics"
	appLog "acadcal/internal/log"
	"acadcal/internal/model"
)

const version = "0.3.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		appLog.Error("acadcal failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "acadcal",
		Usage:   "Serve and query an academic calendar.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file; created with defaults if missing",
				EnvVars: []string{"ACADCAL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (default: $ACADCAL_LOG_LEVEL or info)",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCommand(),
			eventsCommand(),
			exportCommand(),
			snapshotCommand(),
			validateCommand(),
			hashPasswordCommand(),
		},
	}
}

func setupLogging(c *cli.Context) error {
	level := c.String("log-level")
	if level == "" {
		overrides, err := config.ParseEnv(nil)
		if err != nil {
			return err
		}
		level = overrides.LogLevel
	}
	l, err := appLog.ParseLevel(level)
	if err != nil {
		return err
	}
	appLog.SetLevel(l)
	return nil
}

// loadConfig reads the --config file and applies ACADCAL_* overrides.
func loadConfig(c *cli.Context) (*config.Config, *time.Location, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	overrides, err := config.ParseEnv(nil)
	if err != nil {
		return nil, nil, err
	}
	overrides.Apply(cfg)

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("invalid timezone; using local time", "timezone", cfg.Timezone, "err", err)
	}

	appLog.Debug("effective config",
		"config_path", path,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"data_file", cfg.DataFile,
		"refresh", cfg.RefreshCron,
		"ics_count", len(cfg.ICS),
	)
	return cfg, loc, nil
}

// newLoader builds the dataset loader for cfg. Imported feeds are kept
// for last year through next year.
func newLoader(cfg *config.Config, loc *time.Location) *dataset.Loader {
	l := &dataset.Loader{File: cfg.DataFile}
	if len(cfg.ICS) == 0 {
		return l
	}

	for _, src := range cfg.ICS {
		if src.URL == "" {
			continue
		}
		l.Sources = append(l.Sources, ics.Source{
			ID:       src.ID,
			URL:      src.URL,
			Semester: src.Semester,
			Type:     src.Type,
			Color:    src.Color,
		})
	}
	year := model.Today(time.Now(), loc).Year
	l.Fetcher = ics.NewFetcher(cfg.CacheDir, nil)
	l.Window = ics.YearWindow(year-1, year+1, loc)
	return l
}
