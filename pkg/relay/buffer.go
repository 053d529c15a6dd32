package relay

import (
	"sync"
)

// DefaultCapacity bounds the relay buffer. Old entries are dropped,
// never persisted; a consumer that polls slower than 200 messages per
// interval loses the overflow.
const DefaultCapacity = 200

// Buffer is a fixed-capacity ring of InboundMessage in insertion
// order. Appends evict from the front in O(1) once the ring is full.
// Safe for one writer and many readers.
type Buffer struct {
	mu      sync.RWMutex
	entries []InboundMessage
	start   int
	count   int
}

// NewBuffer returns a ring holding at most capacity messages.
// Non-positive capacity falls back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]InboundMessage, capacity)}
}

// Add appends msg, evicting the oldest entry when the ring is full.
func (b *Buffer) Add(msg InboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == len(b.entries) {
		b.entries[b.start] = msg
		b.start = (b.start + 1) % len(b.entries)
		return
	}
	b.entries[(b.start+b.count)%len(b.entries)] = msg
	b.count++
}

// Len reports how many messages are currently buffered.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap reports the fixed capacity of the ring.
func (b *Buffer) Cap() int {
	return len(b.entries)
}

// Since returns every buffered message whose timestamp is strictly
// greater than since, in insertion order, plus the timestamp of the
// last returned message. When nothing matches, since comes back
// unchanged so pollers can feed the value straight into the next call.
func (b *Buffer) Since(since int64) ([]InboundMessage, int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]InboundMessage, 0, b.count)
	latest := since
	for i := 0; i < b.count; i++ {
		m := b.entries[(b.start+i)%len(b.entries)]
		if m.Timestamp > since {
			out = append(out, m)
			latest = m.Timestamp
		}
	}
	return out, latest
}
