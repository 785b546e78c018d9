package transport

import (
	"sync"
)

// EventQueue is an unbounded FIFO of events. Posting never blocks.
type EventQueue struct {
	mu      sync.Mutex
	events  []Event
	changed chan struct{}
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{changed: make(chan struct{})}
}

// Post appends ev and wakes up waiters.
func (q *EventQueue) Post(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	close(q.changed)
	q.changed = make(chan struct{})
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Wait pops the head of the queue, blocking until one is posted or done is closed.
func (q *EventQueue) Wait(done <-chan struct{}) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			ev := q.events[0]
			q.events[0] = Event{}
			q.events = q.events[1:]
			q.mu.Unlock()
			return ev, nil
		}
		ch := q.changed
		q.mu.Unlock()
		select {
		case <-ch:
		case <-done:
			return Event{}, ErrClosed
		}
	}
}

// CounterCell is a monotonic pair of success and failure tallies.
type CounterCell struct {
	mu      sync.Mutex
	value   Counter
	changed chan struct{}
}

// NewCounterCell creates a zeroed counter.
func NewCounterCell() *CounterCell {
	return &CounterCell{changed: make(chan struct{})}
}

// Add increments the tallies and wakes up waiters.
func (c *CounterCell) Add(success, failure uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value.Success += success
	c.value.Failure += failure
	close(c.changed)
	c.changed = make(chan struct{})
}

// Get returns the current value.
func (c *CounterCell) Get() Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Wait blocks until the total of the counter reaches threshold or done is closed.
func (c *CounterCell) Wait(done <-chan struct{}, threshold uint64) (Counter, error) {
	for {
		c.mu.Lock()
		v := c.value
		ch := c.changed
		c.mu.Unlock()
		if v.Total() >= threshold {
			return v, nil
		}
		select {
		case <-ch:
		case <-done:
			return v, ErrClosed
		}
	}
}
