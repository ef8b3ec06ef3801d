package automation

import (
	"sync"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// EventQueue buffers domain events observed between evaluator ticks. The
// platform pushes events in through the API; the scheduler drains the queue
// once per tick.
type EventQueue struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) Push(event domain.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
}

// Drain returns the buffered events and empties the queue. Each event is
// observed by exactly one tick.
func (q *EventQueue) Drain() []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
