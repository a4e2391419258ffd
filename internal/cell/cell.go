// Package cell implements the per-user in-memory state aggregate: the
// current snapshot, its broadcast fan-out, and the registry that lazily
// constructs one cell per user and replays it from durable storage.
package cell

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/logstore"
	"github.com/dshills/tasklisthub/internal/tasklist"
)

// Recorder receives metrics observations from a Cell. It is satisfied by
// *metrics.Metrics; cell deliberately depends on this narrow interface
// rather than the metrics package, mirroring the emit.Emitter seam. A nil
// Recorder is replaced with a no-op at construction.
type Recorder interface {
	OperationApplied()
	BroadcastLagged()
	CheckpointCreated()
	SetActiveCells(count int)
}

type noopRecorder struct{}

func (noopRecorder) OperationApplied()  {}
func (noopRecorder) BroadcastLagged()   {}
func (noopRecorder) CheckpointCreated() {}
func (noopRecorder) SetActiveCells(int) {}

// Cell is the shared mutable aggregate for one user: `{snapshot,
// current_checkpoint_id, broadcast_sender, user}` guarded by a single
// mutex. Only one goroutine may mutate snapshot/log at a time for a given
// cell (invariant 5, single applier); that serialization is this type's
// entire purpose.
type Cell struct {
	userID   string
	store    logstore.Store
	emit     emit.Emitter
	recorder Recorder

	mu                  sync.Mutex
	snapshot            tasklist.Snapshot
	currentCheckpointID string

	hub             *broadcastHub
	subscriberCount int64 // atomic, for registry idle-eviction bookkeeping
}

// newCell constructs a cell already primed with snapshot and checkpointID,
// as produced by a cold load (see registry.go). It does not touch the
// store; callers are responsible for having already loaded/created the
// checkpoint.
func newCell(userID string, store logstore.Store, emitter emit.Emitter, recorder Recorder, snapshot tasklist.Snapshot, checkpointID string, broadcastCap int) *Cell {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Cell{
		userID:              userID,
		store:               store,
		emit:                emitter,
		recorder:            recorder,
		snapshot:            snapshot,
		currentCheckpointID: checkpointID,
		hub:                 newBroadcastHub(broadcastCap),
	}
}

// Subscription is a handle a session holds while joined to a cell. Recv
// delivers tasklist.Operation or Lagged values in cell order; Close
// releases the subscription.
type Subscription struct {
	cell *Cell
	sub  *subscriber
}

// Recv returns the subscriber's channel. Callers select on it alongside
// their own ticker/read-pump channels.
func (s *Subscription) Recv() <-chan interface{} {
	return s.sub.ch
}

// Close unsubscribes and decrements the cell's subscriber count.
func (s *Subscription) Close() {
	s.cell.hub.unsubscribe(s.sub)
	atomic.AddInt64(&s.cell.subscriberCount, -1)
}

// SubscribeAndSnapshot atomically subscribes to the cell's broadcast and
// clones its current snapshot, while holding the cell mutex. This is what
// makes the subscription's starting point well-defined: no operation can
// be applied (and hence published) between the clone and the subscribe,
// because both happen under the same lock that ApplyOperation also
// requires.
func (c *Cell) SubscribeAndSnapshot() (*Subscription, tasklist.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := c.hub.subscribe()
	atomic.AddInt64(&c.subscriberCount, 1)
	return &Subscription{cell: c, sub: sub}, c.snapshot.Clone()
}

// SubscriberCount reports the number of sessions currently joined to this
// cell. Used by the registry's idle-eviction sweep.
func (c *Cell) SubscriberCount() int64 {
	return atomic.LoadInt64(&c.subscriberCount)
}

// ApplyOperation performs the three steps invariant 2 and invariant 5
// require to happen in order, under one lock: durably append the
// operation, apply it to the in-memory snapshot, then publish it to every
// subscriber (including the originator — echo is not a local shortcut, it
// flows through the same broadcast path as every other subscriber).
//
// On a storage failure the snapshot is left completely untouched and
// nothing is published; the caller (the session) is responsible for
// closing with the Storage failure kind.
func (c *Cell) ApplyOperation(ctx context.Context, op tasklist.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.AddOperation(ctx, c.currentCheckpointID, op); err != nil {
		return fmt.Errorf("cell: append operation for user %s: %w", c.userID, err)
	}

	tasklist.Apply(&c.snapshot, op)
	lagged := c.hub.publish(op)
	c.recorder.OperationApplied()
	for i := 0; i < lagged; i++ {
		c.recorder.BroadcastLagged()
	}

	c.emit.Emit(emit.Event{
		UserID: c.userID,
		Msg:    "operation_applied",
	})

	return nil
}
