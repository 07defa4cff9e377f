// Package queue provides bounded, non-blocking in-memory queues.
//
// The live feed gives each websocket client one queue as its outbox: the
// dispatcher enqueues without waiting and a slow client loses frames instead
// of stalling everyone else.
package queue

import (
	"context"
	"sync"
)

const defaultCapacity = 64

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item. It returns false when the queue is full or closed.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns the channel items are read from. It is closed by Close.
	Dequeue() <-chan T

	Len() int

	// Close stops accepting items; buffered items can still be drained.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue[T any] struct {
	items   chan T
	dropped func()
	mu      sync.RWMutex
	closed  bool
}

// NewInMemoryQueue creates a queue holding up to 64 items unless WithCapacity says otherwise.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InMemoryQueue[T]{
		items:   make(chan T, cfg.capacity),
		dropped: cfg.onDrop,
	}
}

func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed || ctx.Err() != nil {
		return false
	}
	select {
	case q.items <- item:
		return true
	default:
		if q.dropped != nil {
			q.dropped()
		}
		return false
	}
}

func (q *InMemoryQueue[T]) Dequeue() <-chan T {
	return q.items
}

func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
