package cell

import (
	"sync"

	"github.com/dshills/tasklisthub/internal/tasklist"
)

// broadcastCapacity is the default bounded size of each subscriber's
// pending-operations channel. A subscriber that falls behind this many
// unread ops starts dropping (lagging) rather than blocking the publisher.
const broadcastCapacity = 1000

// Lagged is sent on a subscriber's channel in place of an operation it
// could not buffer. Per spec, the subscriber is expected to ignore it and
// continue; recovery from a gap is the client's responsibility (it will
// get a fresh OverwriteState on its next handshake).
type Lagged struct{}

// subscriber is a single broadcast recipient. Its channel carries either a
// tasklist.Operation or a Lagged marker.
type subscriber struct {
	ch   chan interface{}
	done chan struct{}
}

// broadcastHub is the fan-out primitive owned by a Cell. Every operation
// the cell applies is published here exactly once, and every subscribed
// session receives it in that same order (or a Lagged marker if its
// channel was full).
type broadcastHub struct {
	capacity int

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

func newBroadcastHub(capacity int) *broadcastHub {
	if capacity <= 0 {
		capacity = broadcastCapacity
	}
	return &broadcastHub{
		capacity:    capacity,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// subscribe registers a new subscriber. The caller MUST hold the owning
// cell's mutex while calling this, so that subscription and snapshot-clone
// happen atomically with respect to concurrent publish calls (see Cell).
func (h *broadcastHub) subscribe() *subscriber {
	sub := &subscriber{
		ch:   make(chan interface{}, h.capacity),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// unsubscribe removes a subscriber. Safe to call more than once.
func (h *broadcastHub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()

	select {
	case <-sub.done:
	default:
		close(sub.done)
	}
}

// publish fans op out to every current subscriber and reports how many of
// them lagged. The caller MUST hold the owning cell's mutex, so that
// publish order matches log-append order (invariant: per-cell causal
// ordering).
func (h *broadcastHub) publish(op tasklist.Operation) (lagged int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- op:
		case <-sub.done:
		default:
			// Channel full: the subscriber lags. Drop the op and tell it
			// so, but never block the publisher on a slow reader.
			select {
			case sub.ch <- Lagged{}:
				lagged++
			default:
			}
		}
	}
	return lagged
}
