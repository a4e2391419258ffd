package collab

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLHabitTracker stores integration credentials in the same relational
// database the rest of the service already has a connection pool for.
// It expects the caller to have opened db against a driver already
// registered elsewhere and to have created the habit_integration table.
// The SQL it issues (a TEXT primary key and an ON CONFLICT upsert) is
// SQLite syntax; it does not work against a MySQL connection.
type SQLHabitTracker struct {
	db *sql.DB
}

// NewSQLHabitTracker wraps an existing connection pool. It does not own
// db's lifecycle; the caller is responsible for closing it.
func NewSQLHabitTracker(db *sql.DB) *SQLHabitTracker {
	return &SQLHabitTracker{db: db}
}

// EnsureSchema creates the habit_integration table if it doesn't already
// exist. Safe to call repeatedly.
func (t *SQLHabitTracker) EnsureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS habit_integration (
			user_id TEXT PRIMARY KEY,
			integration_user_id TEXT NOT NULL,
			integration_api_key TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("collab: create habit_integration table: %w", err)
	}
	return nil
}

func (t *SQLHabitTracker) Add(ctx context.Context, userID, integrationUserID, integrationAPIKey string) (IntegrationCredentials, error) {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO habit_integration (user_id, integration_user_id, integration_api_key, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			integration_user_id = excluded.integration_user_id,
			integration_api_key = excluded.integration_api_key,
			updated_at = excluded.updated_at
	`, userID, integrationUserID, integrationAPIKey)
	if err != nil {
		return IntegrationCredentials{}, fmt.Errorf("collab: upsert habit integration: %w", err)
	}
	return IntegrationCredentials{IntegrationUserID: integrationUserID, IntegrationAPIKey: integrationAPIKey}, nil
}

func (t *SQLHabitTracker) GetRecentByUser(ctx context.Context, userID string) (IntegrationCredentials, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT integration_user_id, integration_api_key FROM habit_integration WHERE user_id = ?
	`, userID)

	var creds IntegrationCredentials
	if err := row.Scan(&creds.IntegrationUserID, &creds.IntegrationAPIKey); err != nil {
		if err == sql.ErrNoRows {
			return IntegrationCredentials{}, ErrIntegrationNotFound
		}
		return IntegrationCredentials{}, fmt.Errorf("collab: scan habit integration: %w", err)
	}
	return creds, nil
}
