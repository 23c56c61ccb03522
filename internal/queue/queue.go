// Package queue provides the pending-row buffer the database exporters batch from.
package queue

import "sync"

// Queue is a thread-safe FIFO buffer that hands out its items in batches.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	// limit is the size at which Push reports the queue as ready to flush. Zero never does.
	limit int
}

// New creates an empty queue that reports ready once it holds limit items.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{items: make([]T, 0, max(limit, 0)), limit: limit}
}

// Push appends items and reports whether the queue has reached its limit.
func (q *Queue[T]) Push(items ...T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return q.limit > 0 && len(q.items) >= q.limit
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Drain removes and returns up to n items from the front, oldest first. n <= 0 drains
// everything.
func (q *Queue[T]) Drain(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n >= len(q.items) {
		out := q.items
		q.items = make([]T, 0, cap(out))
		return out
	}
	out := append([]T(nil), q.items[:n]...)
	q.items = append(q.items[:0], q.items[n:]...)
	return out
}
