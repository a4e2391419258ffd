package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, keyed by
// user id. It is meant for tests and for short-lived debugging sessions.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // userID -> events
}

// HistoryFilter narrows GetHistoryWithFilter results. Empty fields are not
// applied; non-empty fields combine with AND logic.
type HistoryFilter struct {
	SessionID string
	Msg       string
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores the event under event.UserID.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.UserID] = append(b.events[event.UserID], event)
}

// EmitBatch stores each event in order.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

// Flush is a no-op; BufferedEmitter has no downstream backend.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// GetHistory returns a copy of all events recorded for userID, in emission
// order.
func (b *BufferedEmitter) GetHistory(userID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[userID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// GetHistoryWithFilter returns events for userID matching filter.
func (b *BufferedEmitter) GetHistoryWithFilter(userID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []Event
	for _, event := range b.events[userID] {
		if filter.SessionID != "" && event.SessionID != filter.SessionID {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Clear removes stored events for userID, or all events when userID is
// empty.
func (b *BufferedEmitter) Clear(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, userID)
}
