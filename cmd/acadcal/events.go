package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"acadcal/internal/model"
	"acadcal/internal/query"
	"acadcal/internal/view"
)

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Query the calendar from the command line.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "day", Usage: "events active on `DATE` (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "month", Usage: "events overlapping `MONTH` (YYYY-MM)"},
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "case-insensitive title/type search over all events"},
			&cli.StringFlag{Name: "semester", Usage: "only this semester (All for any)"},
			&cli.StringFlag{Name: "type", Usage: "only this event type (All for any)"},
			&cli.BoolFlag{Name: "upcoming", Usage: "events that have not ended yet, by start date"},
			&cli.StringFlag{Name: "from", Usage: "reference `DATE` for --upcoming (default: today)"},
			&cli.IntFlag{Name: "limit", Usage: "max events for --upcoming; 0 for all (default: upcoming_limit)"},
			&cli.BoolFlag{Name: "by-month", Usage: "group by start month"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: runEvents,
	}
}

func runEvents(c *cli.Context) error {
	cfg, loc, err := loadConfig(c)
	if err != nil {
		return err
	}
	all, err := newLoader(cfg, loc).Load(c.Context)
	if err != nil {
		return err
	}

	var events []model.Event
	if c.IsSet("search") {
		events = query.Search(all, c.String("search"))
	} else {
		events = query.FilterBySemesterAndType(all, query.Filter{
			Semester: query.ParseCriterion(c.String("semester")),
			Type:     query.ParseCriterion(c.String("type")),
		})

		if c.IsSet("day") {
			day, err := model.ParseDate(c.String("day"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			events = query.EventsOnDay(events, day)
		}

		if c.IsSet("month") {
			month, ok := view.ParseMonth(c.String("month"))
			if !ok {
				return cli.Exit(fmt.Sprintf("invalid --month %q, want YYYY-MM", c.String("month")), 2)
			}
			events = query.InMonth(events, month.Year, month.Month)
		}

		if c.Bool("upcoming") {
			from := model.Today(time.Now(), loc)
			if c.IsSet("from") {
				if from, err = model.ParseDate(c.String("from")); err != nil {
					return cli.Exit(err.Error(), 2)
				}
			}
			limit := cfg.UpcomingLimit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			events = query.UpcomingFrom(events, from, limit)
		}
	}

	out := c.App.Writer
	if c.Bool("by-month") {
		groups := query.GroupByMonth(query.SortByStart(events))
		if c.Bool("json") {
			return writeJSON(out, groups)
		}
		for i, g := range groups {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s ==\n", g.Key)
			if err := writeTable(out, g.Events); err != nil {
				return err
			}
		}
		return nil
	}

	if c.Bool("json") {
		if events == nil {
			events = []model.Event{}
		}
		return writeJSON(out, events)
	}
	return writeTable(out, events)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, events []model.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tDAYS\tTYPE\tSEMESTER\tTITLE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", ev.ID, ev.StartDate, ev.EndDate, ev.Days(), ev.Type, ev.Semester, ev.Title)
	}
	return tw.Flush()
}
