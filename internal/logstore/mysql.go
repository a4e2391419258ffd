package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/tasklisthub/internal/tasklist"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store, for deployments that run
// multiple tasklisthub processes against one shared database.
//
// The DSN format is the standard go-sql-driver/mysql one, e.g.
// "user:pass@tcp(localhost:3306)/tasklisthub?parseTime=true".
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a MySQL connection pool and ensures its schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("logstore: open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logstore: create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	checkpointTable := `
		CREATE TABLE IF NOT EXISTS checkpoint (
			checkpoint_id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			jsonval JSON NOT NULL,
			INDEX idx_checkpoint_user_created (user_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, checkpointTable); err != nil {
		return fmt.Errorf("create checkpoint table: %w", err)
	}

	operationTable := `
		CREATE TABLE IF NOT EXISTS operation (
			operation_id VARCHAR(64) PRIMARY KEY,
			checkpoint_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			jsonval JSON NOT NULL,
			INDEX idx_operation_checkpoint_created (checkpoint_id, created_at),
			CONSTRAINT fk_operation_checkpoint FOREIGN KEY (checkpoint_id) REFERENCES checkpoint(checkpoint_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, operationTable); err != nil {
		return fmt.Errorf("create operation table: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetRecentCheckpoint(ctx context.Context, userID string) (CheckpointRecord, error) {
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

func (s *MySQLStore) AddCheckpoint(ctx context.Context, userID string, snapshot tasklist.Snapshot) (CheckpointRecord, error) {
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

func (s *MySQLStore) GetOperationsSince(ctx context.Context, checkpointID string) ([]OperationRecord, error) {
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

func (s *MySQLStore) AddOperation(ctx context.Context, checkpointID string, op tasklist.Operation) (OperationRecord, error) {
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

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
