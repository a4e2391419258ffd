package logstore

import "github.com/google/uuid"

// newCheckpointID and newOperationID are separate functions, not a shared
// newID, so that the two id spaces can diverge later (e.g. a prefix) without
// touching call sites.

func newCheckpointID() string {
	return uuid.NewString()
}

func newOperationID() string {
	return uuid.NewString()
}
