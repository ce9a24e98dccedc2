package midi

import (
	"sort"
	"sync"
)

// EventQueue holds timestamped events until the clock reaches them.
type EventQueue struct {
	events []Event
	mu     sync.Mutex
	sorted bool
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]Event, 0, 128),
		sorted: true,
	}
}

func (q *EventQueue) Add(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, event)
	q.sorted = false
}

func (q *EventQueue) AddMultiple(events []Event) {
	if len(events) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, events...)
	q.sorted = false
}

// GetAllEvents returns every queued event in time order.
func (q *EventQueue) GetAllEvents() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sortEvents()
	result := make([]Event, len(q.events))
	copy(result, q.events)
	return result
}

// PopUntil removes and returns the events stamped at or before t, in time
// order. Events with equal stamps keep their insertion order.
func (q *EventQueue) PopUntil(t float64) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sortEvents()
	n := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].At() > t
	})
	if n == 0 {
		return nil
	}
	due := make([]Event, n)
	copy(due, q.events[:n])
	copy(q.events, q.events[n:])
	q.events = q.events[:len(q.events)-n]
	return due
}

// NextAt returns the stamp of the earliest queued event.
func (q *EventQueue) NextAt() (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return 0, false
	}
	q.sortEvents()
	return q.events[0].At(), true
}

func (q *EventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = q.events[:0]
	q.sorted = true
}

func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *EventQueue) IsEmpty() bool {
	return q.Size() == 0
}

func (q *EventQueue) sortEvents() {
	if q.sorted {
		return
	}
	sort.SliceStable(q.events, func(i, j int) bool {
		return q.events[i].At() < q.events[j].At()
	})
	q.sorted = true
}

// Shift moves every queued event by offset seconds.
func (q *EventQueue) Shift(offset float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.events {
		q.events[i] = WithTime(e, e.At()+offset)
	}
}

// EventHandler consumes events, usually the synth engine.
type EventHandler interface {
	HandleEvent(event Event)
}

// Dispatch hands every event due by t to h.
func (q *EventQueue) Dispatch(h EventHandler, t float64) int {
	events := q.PopUntil(t)
	for _, event := range events {
		h.HandleEvent(event)
	}
	return len(events)
}
