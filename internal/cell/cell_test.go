package cell

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/logstore"
	"github.com/dshills/tasklisthub/internal/tasklist"
)

func newTestRegistry(t *testing.T) (*Registry, logstore.Store) {
	t.Helper()
	store := logstore.NewMemStore()
	return NewRegistry(store, emit.NewNullEmitter()), store
}

// TestCell_SubscribeAndSnapshot_SeesPriorOpsOnly verifies a subscriber's
// clone reflects ops applied before it joined, and that it receives every
// op applied after (P4's linearization starting point).
func TestCell_SubscribeAndSnapshot_SeesPriorOpsOnly(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	c, err := reg.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := c.ApplyOperation(ctx, tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0}); err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}

	sub, snapshot := c.SubscribeAndSnapshot()
	defer sub.Close()

	if len(snapshot.Live) != 1 || snapshot.Live[0].ID != "a" {
		t.Fatalf("expected snapshot to include prior op, got %+v", snapshot)
	}

	if err := c.ApplyOperation(ctx, tasklist.LiveTaskInsNew{LiveTaskID: "b", Value: "B", Position: 1}); err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}

	select {
	case msg := <-sub.Recv():
		op, ok := msg.(tasklist.LiveTaskInsNew)
		if !ok || op.LiveTaskID != "b" {
			t.Fatalf("expected to receive op b, got %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast op")
	}
}

// TestCell_ApplyOperation_OriginatorReceivesEcho covers P5: a session that
// submits an op observes that same op on its own outbound stream.
func TestCell_ApplyOperation_OriginatorReceivesEcho(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	c, err := reg.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	sub, _ := c.SubscribeAndSnapshot()
	defer sub.Close()

	op := tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0}
	if err := c.ApplyOperation(ctx, op); err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}

	select {
	case msg := <-sub.Recv():
		if msg != tasklist.Operation(op) {
			t.Fatalf("expected echo of submitted op, got %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

// TestCell_ApplyOperation_FanOutOrderingMatchesForAllSubscribers covers P4:
// two subscribers joined before a batch of ops observe that batch in
// identical order.
func TestCell_ApplyOperation_FanOutOrderingMatchesForAllSubscribers(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	c, err := reg.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	subA, _ := c.SubscribeAndSnapshot()
	defer subA.Close()
	subB, _ := c.SubscribeAndSnapshot()
	defer subB.Close()

	const n = 10
	for i := 0; i < n; i++ {
		op := tasklist.LiveTaskInsNew{LiveTaskID: string(rune('a' + i)), Value: "v", Position: i}
		if err := c.ApplyOperation(ctx, op); err != nil {
			t.Fatalf("ApplyOperation %d: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		wantID := string(rune('a' + i))
		for _, sub := range []*Subscription{subA, subB} {
			select {
			case msg := <-sub.Recv():
				op, ok := msg.(tasklist.LiveTaskInsNew)
				if !ok || op.LiveTaskID != wantID {
					t.Fatalf("op %d: expected %s, got %#v", i, wantID, msg)
				}
			case <-time.After(time.Second):
				t.Fatalf("op %d: timed out waiting for fan-out", i)
			}
		}
	}
}

// TestCell_ApplyOperation_StorageFailureLeavesSnapshotUntouched covers the
// durability-before-visibility invariant's negative case: a store that
// always errors must never let the in-memory snapshot move.
func TestCell_ApplyOperation_StorageFailureLeavesSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	store := logstore.NewMemStore()
	reg := NewRegistry(store, emit.NewNullEmitter())

	c, err := reg.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	sub, before := c.SubscribeAndSnapshot()
	defer sub.Close()

	failing := &failingStore{Store: store}
	c.store = failing

	if err := c.ApplyOperation(ctx, tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0}); err == nil {
		t.Fatal("expected ApplyOperation to fail")
	}

	_, after := c.SubscribeAndSnapshot()
	if len(after.Live) != len(before.Live) {
		t.Fatalf("expected snapshot unchanged after storage failure, before=%+v after=%+v", before, after)
	}
}

type failingStore struct {
	logstore.Store
}

// recordingRecorder counts calls instead of reporting to Prometheus, so the
// wiring between Cell/Registry and a Recorder can be asserted directly.
type recordingRecorder struct {
	operationsApplied  int
	broadcastLagged    int
	checkpointsCreated int
	activeCells        int
}

func (r *recordingRecorder) OperationApplied()        { r.operationsApplied++ }
func (r *recordingRecorder) BroadcastLagged()         { r.broadcastLagged++ }
func (r *recordingRecorder) CheckpointCreated()       { r.checkpointsCreated++ }
func (r *recordingRecorder) SetActiveCells(count int) { r.activeCells = count }

// TestRegistry_Recorder_ObservesCheckpointAndOperationEvents verifies a
// WithRecorder option reaches both the registry's cold-load path and every
// cell it constructs.
func TestRegistry_Recorder_ObservesCheckpointAndOperationEvents(t *testing.T) {
	ctx := context.Background()
	store := logstore.NewMemStore()
	rec := &recordingRecorder{}
	reg := NewRegistry(store, emit.NewNullEmitter(), WithRecorder(rec))

	c, err := reg.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if rec.checkpointsCreated != 1 {
		t.Fatalf("expected 1 checkpoint created, got %d", rec.checkpointsCreated)
	}
	if rec.activeCells != 1 {
		t.Fatalf("expected activeCells=1, got %d", rec.activeCells)
	}

	if err := c.ApplyOperation(ctx, tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0}); err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}
	if rec.operationsApplied != 1 {
		t.Fatalf("expected 1 operation applied, got %d", rec.operationsApplied)
	}
}

func (f *failingStore) AddOperation(_ context.Context, _ string, _ tasklist.Operation) (logstore.OperationRecord, error) {
	return logstore.OperationRecord{}, errAlwaysFails
}

var errAlwaysFails = &alwaysFailsError{}

type alwaysFailsError struct{}

func (*alwaysFailsError) Error() string { return "simulated storage failure" }
