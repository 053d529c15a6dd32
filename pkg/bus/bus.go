package bus

import (
	"sync"
	"time"
)

// Bus fans bridge events out to observers: the websocket hub, the
// contacts directory and the alert notifier all watch the same stream.
// Publishing never blocks; a slow observer misses events instead of
// stalling the session event loop.
type Bus struct {
	mu        sync.RWMutex
	observers []chan Event
}

func New() *Bus {
	return &Bus{observers: make([]chan Event, 0)}
}

// Subscribe returns a channel that receives copies of all events.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 50)
	b.mu.Lock()
	b.observers = append(b.observers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes an observer channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, obs := range b.observers {
		if obs == ch {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish delivers evt to every observer that has room for it.
func (b *Bus) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, obs := range b.observers {
		select {
		case obs <- evt:
		default:
			// Non-blocking: skip slow observers
		}
	}
}
