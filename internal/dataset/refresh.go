package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "acadcal/internal/log"
)

// Refresher reloads a Store on a cron schedule.
type Refresher struct {
	store *Store
	cron  *cron.Cron

	// ctx is the context given to Run; reloads are cancelled with it.
	ctx context.Context
}

// NewRefresher schedules store reloads with a standard 5-field cron spec
// (or a descriptor such as "@hourly") evaluated in loc.
func NewRefresher(store *Store, spec string, loc *time.Location) (*Refresher, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	r := &Refresher{store: store, cron: c, ctx: context.Background()}
	if _, err := c.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("dataset: refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Run starts the schedule and blocks until ctx is done. A reload that is
// in flight when ctx ends is cancelled and waited for.
func (r *Refresher) Run(ctx context.Context) {
	r.ctx = ctx
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		appLog.Info("dataset refresh scheduled", "next", e.Next.Format(time.RFC3339))
	}
	<-ctx.Done()
	<-r.cron.Stop().Done()
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Minute)
	defer cancel()
	_ = r.store.Reload(ctx)
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
