// Package collab defines the two external-collaborator contracts the core
// session path and its surrounding HTTP routes depend on: resolving an api
// key to a user, and the unrelated habit-tracker integration lookup. Both
// are named only by interface; the core never depends on a concrete
// implementation.
package collab

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned by Auth.Resolve when api_key is well-formed
// but does not identify a known, authorized user. This is the only Auth
// failure that maps to a user-facing authentication failure; any other
// error is an internal/transport failure of the auth collaborator itself.
var ErrUnauthorized = errors.New("collab: unauthorized api key")

// User is the identity the session layer cares about: enough to key a
// cell and attribute log records, nothing more.
type User struct {
	UserID string
}

// Auth resolves a client-presented api key to a User. Implementations may
// call out to a remote auth service (see the auth_service_api contract in
// the original source); network or protocol failures of that call are
// reported as an opaque error distinct from ErrUnauthorized, because only
// "this key is not valid" is meaningful to the session state machine — any
// other failure is classified as a Storage/Internal kind by the caller.
type Auth interface {
	Resolve(ctx context.Context, apiKey string) (User, error)
}

// Credentials are claims carried in a JWT issued by the auth collaborator,
// used by adapters that need to decode a bearer token rather than look one
// up out-of-band.
type Credentials struct {
	UserID string `json:"sub"`
}
