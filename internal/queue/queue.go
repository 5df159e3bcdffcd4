package queue

import (
	"sync"
)

// Queue buffers items for batch writes. It is safe for concurrent use.
type Queue[T any] struct {
	mu        sync.Mutex
	items     []T
	batchSize int
}

// New creates an empty queue that reports itself full once batchSize items
// are held. A batchSize below 1 never reports full.
func New[T any](batchSize int) *Queue[T] {
	return &Queue[T]{
		items:     make([]T, 0, max(batchSize, 0)),
		batchSize: batchSize,
	}
}

// Push appends items and reports whether a full batch is now waiting.
func (q *Queue[T]) Push(items ...T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return q.batchSize > 0 && len(q.items) >= q.batchSize
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns all items in push order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(result))
	return result
}

// Requeue puts items back in front of anything pushed since they were
// drained, used when a batch write fails.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(items[:len(items):len(items)], q.items...)
}
