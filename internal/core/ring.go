package core

import "sync"

// Ring is a bounded, append-only ring buffer holding the last N entries.
// Used for the in-memory activity and message logs; observability only,
// never an audit record. Safe for concurrent use.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	next  int
	full  bool
}

// NewRing creates a ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Append adds an entry, evicting the oldest when full.
func (r *Ring[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = item
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns up to limit entries in append order, oldest first.
// limit <= 0 returns everything retained.
func (r *Ring[T]) Snapshot(limit int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []T
	if r.full {
		ordered = make([]T, 0, len(r.items))
		ordered = append(ordered, r.items[r.next:]...)
		ordered = append(ordered, r.items[:r.next]...)
	} else {
		ordered = make([]T, 0, r.next)
		ordered = append(ordered, r.items[:r.next]...)
	}

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Len returns the number of retained entries.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return len(r.items)
	}
	return r.next
}
