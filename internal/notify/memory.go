// Package notify provides a dependency-free domain.Notifier for local and
// development runs, where standing up Postgres-outbox plus RabbitMQ is
// overkill. It keeps the last N events in memory and drops the oldest one
// on overflow rather than blocking the caller or growing without bound.
package notify

import "github.com/tallercloud/turnero/internal/domain"

// BoundedQueue is a fixed-capacity, drop-oldest-on-overflow buffer of
// TurnCreated events. Safe for concurrent use; TurnCreated never blocks.
type BoundedQueue struct {
	capacity int
	events   chan domain.Turn
}

// NewBoundedQueue returns a queue that holds at most capacity events.
// capacity <= 0 is treated as 1.
func NewBoundedQueue(capacity int) *BoundedQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &BoundedQueue{
		capacity: capacity,
		events:   make(chan domain.Turn, capacity),
	}
}

var _ domain.Notifier = (*BoundedQueue)(nil)

// TurnCreated enqueues turn, discarding the oldest queued event first if
// the queue is already at capacity.
func (q *BoundedQueue) TurnCreated(turn domain.Turn) {
	for {
		select {
		case q.events <- turn:
			return
		default:
			select {
			case <-q.events:
			default:
			}
		}
	}
}

// Drain removes and returns every event currently queued, oldest first.
func (q *BoundedQueue) Drain() []domain.Turn {
	out := make([]domain.Turn, 0, len(q.events))
	for {
		select {
		case t := <-q.events:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Len reports how many events are currently queued.
func (q *BoundedQueue) Len() int {
	return len(q.events)
}
