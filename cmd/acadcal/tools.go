package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"acadcal/internal/capture"
	"acadcal/internal/convert"
	"acadcal/internal/dataset"
	"acadcal/internal/ics"
	appLog "acadcal/internal/log"
	"acadcal/internal/model"
	"acadcal/internal/query"
	"acadcal/internal/view"
	"acadcal/internal/web"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Write the calendar as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `FILE` (default: stdout)"},
			&cli.StringFlag{Name: "semester", Usage: "only this semester"},
			&cli.StringFlag{Name: "type", Usage: "only this event type"},
		},
		Action: func(c *cli.Context) error {
			cfg, loc, err := loadConfig(c)
			if err != nil {
				return err
			}
			all, err := newLoader(cfg, loc).Load(c.Context)
			if err != nil {
				return err
			}
			events := query.SortByStart(query.FilterBySemesterAndType(all, query.Filter{
				Semester: query.ParseCriterion(c.String("semester")),
				Type:     query.ParseCriterion(c.String("type")),
			}))

			write := func(w io.Writer) error {
				return ics.Export(w, events, ics.ExportOptions{Name: cfg.Title})
			}
			if path := c.String("out"); path != "" {
				err = writeFile(path, write)
			} else {
				err = write(c.App.Writer)
			}
			if err != nil {
				return err
			}
			appLog.Info("ics exported", "events", len(events), "out", c.String("out"))
			return nil
		},
	}
}

// writeFile creates path and hands it to write. A failed close is
// reported like a failed write.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Render a month of the calendar to PNG with headless Chromium.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "month", Usage: "`YYYY-MM` to render (default: current month)"},
			&cli.StringFlag{Name: "view", Value: string(view.ModeMonth), Usage: "month, semester or list"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "calendar.png", Usage: "output PNG `FILE`"},
			&cli.IntFlag{Name: "width", Usage: "viewport width (default: capture.width)"},
			&cli.IntFlag{Name: "height", Usage: "viewport height (default: capture.height)"},
			&cli.StringFlag{Name: "palette", Usage: "full, bw or bwr (default: capture.palette)"},
		},
		Action: runSnapshot,
	}
}

// runSnapshot serves the page on an ephemeral loopback port and points
// Chromium at it.
func runSnapshot(c *cli.Context) error {
	cfg, loc, err := loadConfig(c)
	if err != nil {
		return err
	}

	st := view.New(model.Today(time.Now(), loc)).WithMode(view.ParseMode(c.String("view")))
	if m := c.String("month"); m != "" {
		month, ok := view.ParseMonth(m)
		if !ok {
			return cli.Exit(fmt.Sprintf("invalid --month %q, want YYYY-MM", m), 2)
		}
		st.Month = month
	}

	paletteName := cfg.Capture.Palette
	if c.IsSet("palette") {
		paletteName = c.String("palette")
	}
	palette, err := convert.ParsePalette(paletteName)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	store := dataset.NewStore(newLoader(cfg, loc))
	if err := store.Reload(c.Context); err != nil {
		return err
	}

	// The loopback server never asks for credentials.
	local := *cfg
	local.BasicAuth = nil

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: web.NewServer(&local, store).Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	width, height := cfg.Capture.Width, cfg.Capture.Height
	if c.IsSet("width") {
		width = c.Int("width")
	}
	if c.IsSet("height") {
		height = c.Int("height")
	}

	return capture.CapturePNG(c.Context, capture.Options{
		URL:        "http://" + ln.Addr().String() + st.URL(),
		OutputPath: c.String("out"),
		Width:      width,
		Height:     height,
		Timeout:    cfg.CaptureTimeout(),
		Palette:    palette,
	})
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a JSON or YAML event file.",
		ArgsUsage: "[FILE]",
		Action: func(c *cli.Context) error {
			file := c.Args().First()
			if file == "" {
				cfg, _, err := loadConfig(c)
				if err != nil {
					return err
				}
				file = cfg.DataFile
			}

			var (
				raw []model.Event
				err error
			)
			if file == "" {
				file = "(bundled)"
				raw, err = dataset.Bundled()
			} else {
				var data []byte
				if data, err = os.ReadFile(file); err == nil {
					raw, err = dataset.Decode(file, data)
				}
			}
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			events, err := dataset.Validate(raw)
			var verr *dataset.ValidationError
			if errors.As(err, &verr) {
				for _, v := range verr.Violations {
					fmt.Fprintln(c.App.ErrWriter, v)
				}
				return cli.Exit(fmt.Sprintf("%s: %d problem(s)", file, len(verr.Violations)), 1)
			}
			if err != nil {
				return err
			}

			opts := query.OptionsOf(events)
			fmt.Fprintf(c.App.Writer, "%s: %d events, semesters %v, types %v\n", file, len(events), opts.Semesters, opts.Types)
			return nil
		},
	}
}
