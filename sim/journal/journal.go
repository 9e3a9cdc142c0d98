package journal

import (
	"fmt"
)

// Stream is a fixed-capacity, append-then-evict record buffer. Once full,
// each append drops the oldest record (FIFO eviction). Not thread-safe; a
// stream belongs to one run.
type Stream struct {
	name    string
	kind    string
	cap     int
	buf     []Record
	head    int // index of the oldest record
	count   int
	evicted int64
}

// NewStream creates a bounded stream. Capacity must be positive.
func NewStream(name, kind string, capacity int) (*Stream, error) {
	if name == "" {
		return nil, fmt.Errorf("stream name must not be empty")
	}
	if !IsValidKind(kind) {
		return nil, fmt.Errorf("stream %q: unknown kind %q; valid: stock, queue, process", name, kind)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("stream %q: capacity must be positive, got %d", name, capacity)
	}
	return &Stream{
		name: name,
		kind: kind,
		cap:  capacity,
		buf:  make([]Record, capacity),
	}, nil
}

// Name returns the stream's registered name.
func (s *Stream) Name() string { return s.name }

// Kind returns the stream's record schema kind.
func (s *Stream) Kind() string { return s.kind }

// Cap returns the configured capacity.
func (s *Stream) Cap() int { return s.cap }

// Len returns the number of records currently held.
func (s *Stream) Len() int { return s.count }

// Evicted returns how many records have been dropped to make room.
func (s *Stream) Evicted() int64 { return s.evicted }

// Append adds a record, evicting the oldest one when the stream is full.
func (s *Stream) Append(r Record) {
	if s.count < s.cap {
		s.buf[(s.head+s.count)%s.cap] = r
		s.count++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	s.buf[s.head] = r
	s.head = (s.head + 1) % s.cap
	s.evicted++
}

// Records returns the held records oldest-first. The returned slice is a
// copy; mutating it does not affect the stream.
func (s *Stream) Records() []Record {
	out := make([]Record, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%s.cap]
	}
	return out
}

// Journal is the registry of named streams for one run. Components hold
// references to the streams they are bound to and append records as state
// transitions happen; persistence drains the journal after the run.
type Journal struct {
	streams []*Stream
	index   map[string]*Stream
}

// New creates an empty Journal.
func New() *Journal {
	return &Journal{index: make(map[string]*Stream)}
}

// Register creates and registers a stream. Duplicate names are rejected.
func (j *Journal) Register(name, kind string, capacity int) (*Stream, error) {
	if _, exists := j.index[name]; exists {
		return nil, fmt.Errorf("stream %q already registered", name)
	}
	s, err := NewStream(name, kind, capacity)
	if err != nil {
		return nil, err
	}
	j.streams = append(j.streams, s)
	j.index[name] = s
	return s, nil
}

// Stream returns the named stream, or nil if none is registered.
func (j *Journal) Stream(name string) *Stream {
	return j.index[name]
}

// Streams returns all registered streams in registration order.
func (j *Journal) Streams() []*Stream {
	return j.streams
}
