// Package history provides bounded in-memory snapshot buffers.
package history

import (
	"sync"
	"time"
)

// Default capacities for the two buffers the monitor keeps
const (
	DefaultSnapshotCap = 200
	DefaultAlertCap    = 100
)

// Buffer is a bounded, append-only sequence. When the cap is exceeded the
// oldest entry (index 0) is evicted. Reads return copies.
type Buffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	stamp    func(T) time.Time
	now      func() time.Time
}

// BufferOption configures a Buffer
type BufferOption[T any] func(*Buffer[T])

// WithClock overrides the clock used by Window
func WithClock[T any](now func() time.Time) BufferOption[T] {
	return func(b *Buffer[T]) {
		b.now = now
	}
}

// NewBuffer creates a buffer holding at most capacity entries. stamp extracts
// the timestamp Window filters on.
func NewBuffer[T any](capacity int, stamp func(T) time.Time, opts ...BufferOption[T]) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultSnapshotCap
	}
	b := &Buffer[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		stamp:    stamp,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds v at the tail, evicting the oldest entry when full
func (b *Buffer[T]) Append(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.capacity {
		// shift in place so the backing array never grows past capacity
		copy(b.items, b.items[1:])
		b.items[len(b.items)-1] = v
		return
	}
	b.items = append(b.items, v)
}

// Len returns the number of stored entries
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Cap returns the configured capacity
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Snapshot returns a copy of every entry in chronological order
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Latest returns the newest entry
func (b *Buffer[T]) Latest() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Last returns up to n newest entries in chronological order
func (b *Buffer[T]) Last(n int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 {
		return []T{}
	}
	start := len(b.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]T, len(b.items)-start)
	copy(out, b.items[start:])
	return out
}

// Window returns entries whose timestamp is within d of now, oldest first
func (b *Buffer[T]) Window(d time.Duration) []T {
	return b.Since(b.now().Add(-d))
}

// Since returns entries stamped strictly after t, oldest first
func (b *Buffer[T]) Since(t time.Time) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, len(b.items))
	for _, item := range b.items {
		if b.stamp(item).After(t) {
			out = append(out, item)
		}
	}
	return out
}
