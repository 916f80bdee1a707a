package core

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is an unbounded, thread-safe FIFO.
//
// Push never blocks. Pop blocks until an item is available or the stop channel
// closes. Items pushed by the same goroutine are popped in push order.
type Queue[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	signal chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		items:  queue.New(),
		signal: make(chan struct{}, 1),
	}
}

// Push appends v to the tail of the queue.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items.Add(v)
	q.mu.Unlock()

	q.wake()
}

// TryPop removes the head of the queue without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.items.Length() == 0 {
		return zero, false
	}
	v := q.items.Remove().(T)
	if q.items.Length() > 0 {
		// Pass the wakeup on so other blocked consumers see the remaining items.
		q.wake()
	}
	return v, true
}

// Pop removes the head of the queue, blocking until one is available.
// It returns false if stop is closed first. A nil stop blocks forever.
func (q *Queue[T]) Pop(stop <-chan struct{}) (T, bool) {
	for {
		if v, ok := q.TryPop(); ok {
			return v, true
		}

		select {
		case <-q.signal:
			continue
		case <-stop:
			var zero T
			return zero, false
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Clear drops every queued item and releases the references.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = queue.New()
}

func (q *Queue[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
		// A wakeup is already pending
	}
}
