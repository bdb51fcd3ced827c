package server

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull means the queue stayed at capacity for the whole enqueue
	// timeout; the session owning it is a slow consumer.
	ErrQueueFull = errors.New("outbound queue full")

	// ErrQueueClosed means the session is shutting down and accepts no more
	// deliveries.
	ErrQueueClosed = errors.New("outbound queue closed")
)

// Queue is the bounded outbound delivery queue for one session. Many
// producers (router fan-out, registry broadcasts) enqueue; exactly one
// consumer (the session's writer) drains. The element channel is never
// closed, since with multiple producers that would race; closing is
// signalled through a separate done channel instead.
type Queue struct {
	items chan string
	done  chan struct{}
	once  sync.Once
}

// NewQueue creates a queue holding at most capacity pending lines.
func NewQueue(capacity int) *Queue {
	return &Queue{
		items: make(chan string, capacity),
		done:  make(chan struct{}),
	}
}

// Send enqueues a line, waiting up to timeout for space. It returns
// ErrQueueFull if the queue stays saturated for the whole wait and
// ErrQueueClosed if the queue was closed before or during the wait.
func (q *Queue) Send(line string, timeout time.Duration) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.items <- line:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-timer.C:
		return ErrQueueFull
	}
}

// TrySend enqueues without blocking. It is the only enqueue form the
// registry may use while holding its lock.
func (q *Queue) TrySend(line string) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.items <- line:
		return nil
	case <-q.done:
		return ErrQueueClosed
	default:
		return ErrQueueFull
	}
}

// Close marks the queue closed. Idempotent. Lines already queued remain
// readable so the consumer can drain them.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
	})
}

// Items exposes the element channel to the single consumer.
func (q *Queue) Items() <-chan string {
	return q.items
}

// Done is closed when the queue is closed.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of pending lines.
func (q *Queue) Len() int {
	return len(q.items)
}
