package logstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/tasklisthub/internal/tasklist"
)

// storeFactories enumerates every Store implementation the conformance
// suite below must pass against.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"MemStore": func() Store { return NewMemStore() },
		"SQLiteStore": func() Store {
			s, err := NewSQLiteStore(":memory:")
			if err != nil {
				t.Fatalf("open in-memory sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreConformance(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			testGetRecentCheckpointNotFound(t, factory())
		})
		t.Run(name, func(t *testing.T) {
			testCheckpointRoundTrip(t, factory())
		})
		t.Run(name, func(t *testing.T) {
			testOperationsSinceOrdering(t, factory())
		})
		t.Run(name, func(t *testing.T) {
			testMostRecentCheckpointWins(t, factory())
		})
	}
}

func testGetRecentCheckpointNotFound(t *testing.T, store Store) {
	ctx := context.Background()
	_, err := store.GetRecentCheckpoint(ctx, "no-such-user")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCheckpointRoundTrip(t *testing.T, store Store) {
	ctx := context.Background()
	snapshot := tasklist.NewSnapshot()
	tasklist.Apply(&snapshot, tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0})

	written, err := store.AddCheckpoint(ctx, "user-1", snapshot)
	if err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}
	if written.CheckpointID == "" {
		t.Fatal("expected a non-empty checkpoint id")
	}

	read, err := store.GetRecentCheckpoint(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRecentCheckpoint: %v", err)
	}
	if read.CheckpointID != written.CheckpointID {
		t.Fatalf("checkpoint id mismatch: got %s, want %s", read.CheckpointID, written.CheckpointID)
	}
	if len(read.Snapshot.Live) != 1 || read.Snapshot.Live[0].ID != "a" {
		t.Fatalf("unexpected snapshot after round trip: %+v", read.Snapshot)
	}
}

func testOperationsSinceOrdering(t *testing.T, store Store) {
	ctx := context.Background()
	cp, err := store.AddCheckpoint(ctx, "user-2", tasklist.NewSnapshot())
	if err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	ops := []tasklist.Operation{
		tasklist.LiveTaskInsNew{LiveTaskID: "a", Value: "A", Position: 0},
		tasklist.LiveTaskInsNew{LiveTaskID: "b", Value: "B", Position: 1},
		tasklist.LiveTaskEdit{LiveTaskID: "a", Value: "A2"},
	}
	for _, op := range ops {
		if _, err := store.AddOperation(ctx, cp.CheckpointID, op); err != nil {
			t.Fatalf("AddOperation: %v", err)
		}
	}

	records, err := store.GetOperationsSince(ctx, cp.CheckpointID)
	if err != nil {
		t.Fatalf("GetOperationsSince: %v", err)
	}
	if len(records) != len(ops) {
		t.Fatalf("expected %d operations, got %d", len(ops), len(records))
	}

	folded := tasklist.Fold(cp.Snapshot, func() []tasklist.Operation {
		out := make([]tasklist.Operation, len(records))
		for i, r := range records {
			out[i] = r.Operation
		}
		return out
	}())
	if len(folded.Live) != 2 || folded.Live[0].Value != "A2" {
		t.Fatalf("replay produced unexpected snapshot: %+v", folded)
	}
}

func testMostRecentCheckpointWins(t *testing.T, store Store) {
	ctx := context.Background()
	if _, err := store.AddCheckpoint(ctx, "user-3", tasklist.NewSnapshot()); err != nil {
		t.Fatalf("AddCheckpoint #1: %v", err)
	}

	snap2 := tasklist.NewSnapshot()
	tasklist.Apply(&snap2, tasklist.LiveTaskInsNew{LiveTaskID: "z", Value: "Z", Position: 0})
	second, err := store.AddCheckpoint(ctx, "user-3", snap2)
	if err != nil {
		t.Fatalf("AddCheckpoint #2: %v", err)
	}

	got, err := store.GetRecentCheckpoint(ctx, "user-3")
	if err != nil {
		t.Fatalf("GetRecentCheckpoint: %v", err)
	}
	if got.CheckpointID != second.CheckpointID {
		t.Fatalf("expected the most recently added checkpoint, got %s want %s", got.CheckpointID, second.CheckpointID)
	}
}
