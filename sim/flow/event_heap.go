package flow

import "container/heap"

// EventHeap implements a priority queue with deterministic ordering
// Ordering: timestamp → event ID. Event IDs are handed out in schedule
// order, so same-timestamp events dispatch first-scheduled-first.
type EventHeap struct {
	events []Event
}

// NewEventHeap creates a new event heap
func NewEventHeap() *EventHeap {
	h := &EventHeap{
		events: make([]Event, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface with deterministic ordering
// Order by: timestamp → event ID
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]

	// Primary: timestamp (lower first)
	if ei.Timestamp() != ej.Timestamp() {
		return ei.Timestamp() < ej.Timestamp()
	}

	// Secondary: event ID (lower first, deterministic tie-breaker)
	return ei.EventID() < ej.EventID()
}

// Swap implements heap.Interface
func (h *EventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface
func (h *EventHeap) Push(x interface{}) {
	h.events = append(h.events, x.(Event))
}

// Pop implements heap.Interface
func (h *EventHeap) Pop() interface{} {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[0 : n-1]
	return item
}

// Schedule adds an event to the heap
func (h *EventHeap) Schedule(e Event) {
	heap.Push(h, e)
}

// PopNext removes and returns the next event
func (h *EventHeap) PopNext() Event {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(Event)
}

// Peek returns the next event without removing it
func (h *EventHeap) Peek() Event {
	if h.Len() == 0 {
		return nil
	}
	return h.events[0]
}

// Cancel removes the pending event with the given ID. Returns false when no
// such event is queued, including events already dispatched.
func (h *EventHeap) Cancel(id uint64) bool {
	for i, e := range h.events {
		if e.EventID() == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
