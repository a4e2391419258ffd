package collab

import (
	"context"
	"errors"
)

// ErrIntegrationNotFound is returned by HabitTracker.GetRecentByUser when
// the user has never linked an integration.
var ErrIntegrationNotFound = errors.New("collab: habit-tracker integration not found")

// IntegrationCredentials are the remote habit-tracker account credentials
// stored on a user's behalf, so that completed tasks can later be synced
// there. This is unrelated to the session's task-list core; it exists
// because the same HTTP API surface as the WebSocket endpoint also serves
// these two thin REST routes.
type IntegrationCredentials struct {
	IntegrationUserID string
	IntegrationAPIKey string
}

// HabitTracker is the contract the habitica_integration_new and
// habitica_integration_view REST handlers depend on. The session/cell/
// tasklist core never calls this interface.
type HabitTracker interface {
	Add(ctx context.Context, userID, integrationUserID, integrationAPIKey string) (IntegrationCredentials, error)
	GetRecentByUser(ctx context.Context, userID string) (IntegrationCredentials, error)
}
