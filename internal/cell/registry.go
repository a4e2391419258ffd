package cell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/logstore"
	"github.com/dshills/tasklisthub/internal/tasklist"
	"golang.org/x/sync/singleflight"
)

// registryConfig collects Option values before they're applied to a
// Registry. This indirection mirrors the teacher's engineConfig pattern
// and lets the constructor validate before committing to field values.
type registryConfig struct {
	broadcastCapacity int
	idleGrace         time.Duration
	recorder          Recorder
}

// Option configures a Registry at construction time.
type Option func(*registryConfig)

// WithBroadcastCapacity overrides the per-subscriber channel size each new
// cell's broadcast hub is created with. Default: 1000.
func WithBroadcastCapacity(n int) Option {
	return func(c *registryConfig) { c.broadcastCapacity = n }
}

// WithIdleEviction enables a background sweep that removes a cell from
// the registry once it has had zero subscribers for at least grace. This
// is a SHOULD-have: the source never evicts and grows unboundedly with
// the cumulative user set. Eviction only ever removes the in-memory cell;
// its checkpoint and operation log rows are untouched, so a later
// reconnect replays transparently through GetOrCreate.
func WithIdleEviction(grace time.Duration) Option {
	return func(c *registryConfig) { c.idleGrace = grace }
}

// WithRecorder attaches a metrics Recorder; every cell the registry
// constructs shares it. Default: a no-op recorder.
func WithRecorder(r Recorder) Option {
	return func(c *registryConfig) { c.recorder = r }
}

// Registry maps user id to per-user Cell, guarded by a single coarse
// mutex held only during map lookup/insertion (§4.3). Concurrent
// first-handshakes for the same user are deduplicated via singleflight so
// only one of them pays the cold-load cost.
type Registry struct {
	store    logstore.Store
	emit     emit.Emitter
	recorder Recorder

	broadcastCapacity int
	idleGrace         time.Duration

	mu    sync.Mutex
	cells map[string]*entry

	loadGroup singleflight.Group

	stopSweep chan struct{}
	sweepOnce sync.Once
}

type entry struct {
	cell        *Cell
	lastEmptyAt time.Time // zero while subscriberCount > 0
}

// NewRegistry constructs an empty Registry backed by store.
func NewRegistry(store logstore.Store, emitter emit.Emitter, opts ...Option) *Registry {
	cfg := registryConfig{broadcastCapacity: broadcastCapacity, recorder: noopRecorder{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{
		store:             store,
		emit:              emitter,
		recorder:          cfg.recorder,
		broadcastCapacity: cfg.broadcastCapacity,
		idleGrace:         cfg.idleGrace,
		cells:             make(map[string]*entry),
		stopSweep:         make(chan struct{}),
	}

	if cfg.idleGrace > 0 {
		go r.sweepLoop(cfg.idleGrace)
	}

	return r
}

// GetOrCreate returns the cell for userID, constructing and cold-loading
// it from the store on first use. Per §4.3:
//
//  1. If a cell already exists, return it directly.
//  2. Otherwise load the most recent checkpoint (creating an empty one if
//     absent), load every operation recorded since it, fold them over the
//     checkpoint's snapshot, and construct the cell from the result.
//
// Concurrent first-handshakes for the same never-before-seen user are
// collapsed via singleflight so the cold load happens exactly once.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (*Cell, error) {
	r.mu.Lock()
	if e, ok := r.cells[userID]; ok {
		r.mu.Unlock()
		return e.cell, nil
	}
	r.mu.Unlock()

	v, err, _ := r.loadGroup.Do(userID, func() (interface{}, error) {
		return r.loadOrCreate(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cell), nil
}

func (r *Registry) loadOrCreate(ctx context.Context, userID string) (*Cell, error) {
	r.mu.Lock()
	if e, ok := r.cells[userID]; ok {
		r.mu.Unlock()
		return e.cell, nil
	}
	r.mu.Unlock()

	checkpoint, err := r.store.GetRecentCheckpoint(ctx, userID)
	switch {
	case err == nil:
		// use checkpoint as loaded
	case err == logstore.ErrNotFound:
		checkpoint, err = r.store.AddCheckpoint(ctx, userID, tasklist.NewSnapshot())
		if err != nil {
			return nil, fmt.Errorf("cell: create initial checkpoint for user %s: %w", userID, err)
		}
		r.recorder.CheckpointCreated()
	default:
		return nil, fmt.Errorf("cell: load checkpoint for user %s: %w", userID, err)
	}

	ops, err := r.store.GetOperationsSince(ctx, checkpoint.CheckpointID)
	if err != nil {
		return nil, fmt.Errorf("cell: load operations for user %s: %w", userID, err)
	}
	operations := make([]tasklist.Operation, len(ops))
	for i, rec := range ops {
		operations[i] = rec.Operation
	}
	snapshot := tasklist.Fold(checkpoint.Snapshot, operations)

	c := newCell(userID, r.store, r.emit, r.recorder, snapshot, checkpoint.CheckpointID, r.broadcastCapacity)

	r.mu.Lock()
	r.cells[userID] = &entry{cell: c}
	count := len(r.cells)
	r.mu.Unlock()

	r.recorder.SetActiveCells(count)
	r.emit.Emit(emit.Event{UserID: userID, Msg: "cell_created"})

	return c, nil
}

// Close stops the idle-eviction sweep, if running. It does not touch any
// cell or the underlying store.
func (r *Registry) Close() {
	r.sweepOnce.Do(func() { close(r.stopSweep) })
}

func (r *Registry) sweepLoop(grace time.Duration) {
	ticker := time.NewTicker(grace / 2)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopSweep:
			return
		case now := <-ticker.C:
			r.sweep(now, grace)
		}
	}
}

func (r *Registry) sweep(now time.Time, grace time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, e := range r.cells {
		if e.cell.SubscriberCount() > 0 {
			e.lastEmptyAt = time.Time{}
			continue
		}
		if e.lastEmptyAt.IsZero() {
			e.lastEmptyAt = now
			continue
		}
		if now.Sub(e.lastEmptyAt) >= grace {
			delete(r.cells, userID)
			r.recorder.SetActiveCells(len(r.cells))
			r.emit.Emit(emit.Event{UserID: userID, Msg: "cell_evicted"})
		}
	}
}
