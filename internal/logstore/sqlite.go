package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/tasklisthub/internal/tasklist"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store, for single-process deployments that
// need durability across restarts without standing up a server database.
//
// Schema:
//   - checkpoint(checkpoint_id PK, user_id, created_at, jsonval)
//   - operation(operation_id PK, checkpoint_id FK, created_at, jsonval)
//
// jsonval holds the JSON-encoded StateSnapshot or Operation respectively,
// using the same externally-tagged operation envelope as the wire protocol.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("logstore: open sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	checkpointTable := `
		CREATE TABLE IF NOT EXISTS checkpoint (
			checkpoint_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			jsonval TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, checkpointTable); err != nil {
		return fmt.Errorf("create checkpoint table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoint_user_created ON checkpoint(user_id, created_at)"); err != nil {
		return fmt.Errorf("create idx_checkpoint_user_created: %w", err)
	}

	operationTable := `
		CREATE TABLE IF NOT EXISTS operation (
			operation_id TEXT PRIMARY KEY,
			checkpoint_id TEXT NOT NULL REFERENCES checkpoint(checkpoint_id),
			created_at TIMESTAMP NOT NULL,
			jsonval TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, operationTable); err != nil {
		return fmt.Errorf("create operation table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_operation_checkpoint_created ON operation(checkpoint_id, created_at)"); err != nil {
		return fmt.Errorf("create idx_operation_checkpoint_created: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetRecentCheckpoint(ctx context.Context, userID string) (CheckpointRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT checkpoint_id, user_id, created_at, jsonval
		FROM checkpoint WHERE user_id = ?
		ORDER BY created_at DESC, checkpoint_id DESC LIMIT 1
	`, userID)

	var (
		cp        CheckpointRecord
		createdAt time.Time
		jsonval   string
	)
	if err := row.Scan(&cp.CheckpointID, &cp.UserID, &createdAt, &jsonval); err != nil {
		if err == sql.ErrNoRows {
			return CheckpointRecord{}, ErrNotFound
		}
		return CheckpointRecord{}, fmt.Errorf("logstore: scan checkpoint: %w", err)
	}
	cp.CreatedAt = createdAt
	if err := json.Unmarshal([]byte(jsonval), &cp.Snapshot); err != nil {
		return CheckpointRecord{}, fmt.Errorf("logstore: unmarshal checkpoint snapshot: %w", err)
	}
	return cp, nil
}

func (s *SQLiteStore) AddCheckpoint(ctx context.Context, userID string, snapshot tasklist.Snapshot) (CheckpointRecord, error) {
	jsonval, err := json.Marshal(snapshot)
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("logstore: marshal snapshot: %w", err)
	}

	cp := CheckpointRecord{
		CheckpointID: newCheckpointID(),
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
		Snapshot:     snapshot.Clone(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoint (checkpoint_id, user_id, created_at, jsonval) VALUES (?, ?, ?, ?)
	`, cp.CheckpointID, cp.UserID, cp.CreatedAt, string(jsonval))
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("logstore: insert checkpoint: %w", err)
	}
	return cp, nil
}

func (s *SQLiteStore) GetOperationsSince(ctx context.Context, checkpointID string) ([]OperationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation_id, checkpoint_id, created_at, jsonval
		FROM operation WHERE checkpoint_id = ?
		ORDER BY created_at ASC, operation_id ASC
	`, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("logstore: query operations: %w", err)
	}
	defer rows.Close()

	var out []OperationRecord
	for rows.Next() {
		var (
			rec       OperationRecord
			createdAt time.Time
			jsonval   string
		)
		if err := rows.Scan(&rec.OperationID, &rec.CheckpointID, &createdAt, &jsonval); err != nil {
			return nil, fmt.Errorf("logstore: scan operation: %w", err)
		}
		rec.CreatedAt = createdAt
		op, err := tasklist.DecodeOperation([]byte(jsonval))
		if err != nil {
			return nil, fmt.Errorf("logstore: decode operation %s: %w", rec.OperationID, err)
		}
		rec.Operation = op
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logstore: iterate operations: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) AddOperation(ctx context.Context, checkpointID string, op tasklist.Operation) (OperationRecord, error) {
	jsonval, err := tasklist.EncodeOperation(op)
	if err != nil {
		return OperationRecord{}, fmt.Errorf("logstore: encode operation: %w", err)
	}

	rec := OperationRecord{
		OperationID:  newOperationID(),
		CheckpointID: checkpointID,
		CreatedAt:    time.Now().UTC(),
		Operation:    op,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operation (operation_id, checkpoint_id, created_at, jsonval) VALUES (?, ?, ?, ?)
	`, rec.OperationID, rec.CheckpointID, rec.CreatedAt, string(jsonval))
	if err != nil {
		return OperationRecord{}, fmt.Errorf("logstore: insert operation: %w", err)
	}
	return rec, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
