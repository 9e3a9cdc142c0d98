package flow

// Event represents a scheduled simulation occurrence
type Event interface {
	Timestamp() int64
	EventID() uint64
	Execute(g *Graph)
}

// BaseEvent provides common event fields. Event IDs come from the owning
// graph's counter, not a global, so runs with equal seeds replay the same
// ID sequence.
type BaseEvent struct {
	timestamp int64
	eventID   uint64
}

func newBaseEvent(timestamp int64, eventID uint64) BaseEvent {
	return BaseEvent{
		timestamp: timestamp,
		eventID:   eventID,
	}
}

func (e *BaseEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *BaseEvent) EventID() uint64 {
	return e.eventID
}

// CompletionEvent fires when a process's active phase ends: its payload has
// spent the sampled duration in flight and is due for deposit.
type CompletionEvent struct {
	BaseEvent
	Process Process
}

func (e *CompletionEvent) Execute(g *Graph) {
	e.Process.complete(g, e)
}
