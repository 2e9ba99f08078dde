package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	appLog "acadcal/internal/log"
	"acadcal/internal/model"
	"acadcal/internal/query"
)

// ErrNotLoaded is returned by Store.Engine before the first successful
// reload.
var ErrNotLoaded = errors.New("dataset: not loaded")

// EventSource produces a validated event list. *Loader implements it.
type EventSource interface {
	Load(ctx context.Context) ([]model.Event, error)
}

type snapshot struct {
	engine   *query.Engine
	loadedAt time.Time
}

// Store holds the current query engine. Readers never block; Reload
// swaps in a new engine only when loading succeeds.
type Store struct {
	src EventSource

	reloadMu sync.Mutex
	cur      atomic.Pointer[snapshot]
}

func NewStore(src EventSource) *Store {
	return &Store{src: src}
}

// Engine returns the current snapshot.
func (s *Store) Engine() (*query.Engine, error) {
	snap := s.cur.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.engine, nil
}

// LoadedAt is the time of the last successful reload, or the zero time.
func (s *Store) LoadedAt() time.Time {
	if snap := s.cur.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

// Reload loads the source and replaces the snapshot. On error the
// previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	events, err := s.src.Load(ctx)
	if err != nil {
		if s.cur.Load() != nil {
			appLog.Error("dataset reload failed; keeping previous snapshot", err)
		}
		return err
	}

	s.cur.Store(&snapshot{engine: query.New(events), loadedAt: time.Now()})
	appLog.Info("dataset loaded", "events", len(events), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// Set installs events directly, bypassing the source.
func (s *Store) Set(events []model.Event) {
	s.cur.Store(&snapshot{engine: query.New(events), loadedAt: time.Now()})
}
