// Package logstore provides durable persistence for per-user task-list
// state: point-in-time checkpoints and the append-only operation log that
// extends each checkpoint forward.
//
// A checkpoint plus the operations recorded since it fully determine a
// user's current snapshot; replay is just tasklist.Fold applied to that
// pair. Implementations must preserve insertion order for operations under
// a given checkpoint and must be safe under concurrent writers for
// different checkpoint ids; single-writer-per-checkpoint is the only
// concurrency guarantee required of a Store, because the cell layer
// serializes all writes for one user through a single mutex.
package logstore

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/tasklisthub/internal/tasklist"
)

// ErrNotFound is returned when a requested user has no checkpoint yet.
var ErrNotFound = errors.New("logstore: not found")

// CheckpointRecord is a point-in-time snapshot of one user's task list.
type CheckpointRecord struct {
	CheckpointID string
	UserID       string
	CreatedAt    time.Time
	Snapshot     tasklist.Snapshot
}

// OperationRecord is one durably-logged mutation against a checkpoint.
type OperationRecord struct {
	OperationID  string
	CheckpointID string
	CreatedAt    time.Time
	Operation    tasklist.Operation
}

// Store persists checkpoints and the operation log that extends them.
//
// Callers load cold state by calling GetRecentCheckpoint, then
// GetOperationsSince, then folding the operations over the checkpoint's
// snapshot via tasklist.Fold. Callers append live state by calling
// AddOperation once per inbound client operation, ordered before that
// operation is applied in memory or broadcast to other subscribers.
type Store interface {
	// GetRecentCheckpoint returns the most recently created checkpoint for
	// userID, or ErrNotFound if the user has never been checkpointed.
	GetRecentCheckpoint(ctx context.Context, userID string) (CheckpointRecord, error)

	// AddCheckpoint durably writes a new checkpoint for userID and returns
	// it with its assigned id and timestamp populated.
	AddCheckpoint(ctx context.Context, userID string, snapshot tasklist.Snapshot) (CheckpointRecord, error)

	// GetOperationsSince returns every operation recorded against
	// checkpointID, in the order they were appended (ties in creation time
	// broken by id).
	GetOperationsSince(ctx context.Context, checkpointID string) ([]OperationRecord, error)

	// AddOperation durably appends op against checkpointID and returns only
	// after the write is committed.
	AddOperation(ctx context.Context, checkpointID string, op tasklist.Operation) (OperationRecord, error)
}
