package dcd

import (
	"context"
	"sync/atomic"

	"github.com/ardnew/usbhs/pkg"
)

// DefaultQueueDepth is the event capacity used when NewQueue is given a
// non-positive depth.
const DefaultQueueDepth = 32

// Queue carries events from an interrupt handler to one consumer.
// Post never blocks; an event that does not fit is counted and dropped.
type Queue struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewQueue returns a queue that holds up to depth events.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue{events: make(chan Event, depth)}
}

// Post enqueues ev. It is safe to call from interrupt context.
func (q *Queue) Post(ev Event) {
	select {
	case q.events <- ev:
	default:
		n := q.dropped.Add(1)
		pkg.LogWarn(pkg.ComponentQueue, "event dropped", "event", ev.String(), "dropped", n)
	}
}

// Handler returns Post as a controller event handler.
func (q *Queue) Handler() Handler { return q.Post }

// Next blocks until an event is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.events:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Dropped returns the number of events discarded because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
