// Implements the stock containers: TankStock for continuous material and
// ItemStock for discrete items. Stocks are passive. They accept and release
// resources, classify their fill level, and report which processes should be
// re-evaluated. They never call into processes directly.

package flow

import (
	"errors"
	"fmt"
	"math"

	"github.com/flowsim/flowsim/sim/journal"
)

// StockState classifies a stock's fill level against its thresholds.
type StockState string

const (
	// StateEmpty means total content is at or below low_capacity.
	StateEmpty StockState = "Empty"
	// StateNormal means content is between the thresholds.
	StateNormal StockState = "Normal"
	// StateFull means content is at or above max_capacity.
	StateFull StockState = "Full"
)

// Component kind labels, shared by journal records and model files.
const (
	KindTankStock  = "array-stock"
	KindQueueStock = "queue-stock"
)

// Transient operation failures. Processes treat both as "not now": a failed
// withdrawal leaves the process idle, a failed deposit parks the payload
// until a capacity-freeing wake.
var (
	ErrInsufficient = errors.New("insufficient quantity")
	ErrCapacity     = errors.New("capacity exceeded")
)

// Wake lists processes that must be re-evaluated after a stock operation.
// The graph's dispatch loop drains wake sets to quiescence; stocks never
// invoke processes themselves.
type Wake []Process

// Stock is a bounded resource container connecting processes. TankStock and
// ItemStock are the two implementations; the wiring methods are unexported
// so only the graph can connect them.
type Stock interface {
	Name() string
	Kind() string
	State() StockState
	Total() float64

	// watchUpstream registers a process that deposits into this stock.
	// It is notified when capacity frees up.
	watchUpstream(p Process)
	// watchDownstream registers a process that withdraws from this stock.
	// It is notified when material becomes available.
	watchDownstream(p Process)
	// initRecord journals the starting contents before the first dispatch.
	initRecord(now int64)
	// levelSeries exposes the occupancy history for summary statistics.
	levelSeries() []levelPoint
}

// levelPoint is one step of a stock's occupancy history: level held from
// At until the next point.
type levelPoint struct {
	At    int64
	Level float64
}

type levelTrack struct {
	points []levelPoint
}

func (lt *levelTrack) mark(at int64, level float64) {
	lt.points = append(lt.points, levelPoint{At: at, Level: level})
}

func (lt *levelTrack) series() []levelPoint {
	return lt.points
}

// TankStock holds continuous, divisible material with graded composition.
type TankStock struct {
	name     string
	contents Amount
	lowCap   float64
	maxCap   float64 // <= 0 means unbounded

	upstream   []Process
	downstream []Process
	streams    []*journal.Stream
	track      levelTrack
}

// NewTankStock builds a tank stock. maxCap <= 0 means unbounded; a bounded
// tank must start within capacity and have lowCap strictly below maxCap.
func NewTankStock(name string, initial Amount, lowCap, maxCap float64) (*TankStock, error) {
	if name == "" {
		return nil, errors.New("tank stock: name must not be empty")
	}
	if !initial.Valid() {
		return nil, fmt.Errorf("stock %s: initial contents must be finite and non-negative", name)
	}
	if lowCap < 0 {
		return nil, fmt.Errorf("stock %s: low_capacity %g must not be negative", name, lowCap)
	}
	if maxCap > 0 && lowCap >= maxCap {
		return nil, fmt.Errorf("stock %s: low_capacity %g must be below max_capacity %g", name, lowCap, maxCap)
	}
	if maxCap > 0 && initial.Total() > maxCap {
		return nil, fmt.Errorf("stock %s: initial contents %g exceed max_capacity %g", name, initial.Total(), maxCap)
	}
	return &TankStock{
		name:     name,
		contents: initial,
		lowCap:   lowCap,
		maxCap:   maxCap,
	}, nil
}

// AttachStreams binds journal streams that receive this stock's records.
func (s *TankStock) AttachStreams(ss ...*journal.Stream) {
	s.streams = append(s.streams, ss...)
}

func (s *TankStock) Name() string { return s.name }
func (s *TankStock) Kind() string { return KindTankStock }

// Contents returns the current material with its composition.
func (s *TankStock) Contents() Amount { return s.contents }

// Total returns the summed material quantity.
func (s *TankStock) Total() float64 { return s.contents.Total() }

// Remaining returns the spare capacity, or +Inf when unbounded.
func (s *TankStock) Remaining() float64 {
	if s.maxCap <= 0 {
		return math.Inf(1)
	}
	return s.maxCap - s.contents.Total()
}

// State classifies the fill level: Empty at or below low_capacity, Full at
// or above max_capacity, Normal in between. Unbounded tanks are never Full.
func (s *TankStock) State() StockState {
	total := s.contents.Total()
	switch {
	case total <= s.lowCap:
		return StateEmpty
	case s.maxCap > 0 && total >= s.maxCap:
		return StateFull
	default:
		return StateNormal
	}
}

// TryAdd deposits a into the tank. It fails with ErrCapacity when the
// deposit would push contents above max_capacity; the tank is unchanged on
// failure. On success the returned wake set holds the withdrawing processes
// to re-evaluate, non-empty only when the deposit changed the stock's state
// or raised it from zero.
func (s *TankStock) TryAdd(now int64, a Amount) (Wake, error) {
	if !a.Valid() {
		panic(fmt.Sprintf("stock %s: invalid deposit %v at %d ticks", s.name, a, now))
	}
	add := a.Total()
	if add <= 0 {
		return nil, nil
	}
	if s.maxCap > 0 && s.contents.Total()+add > s.maxCap {
		return nil, ErrCapacity
	}
	prevState := s.State()
	prevTotal := s.contents.Total()
	s.contents = s.contents.Add(a)
	s.guard(now)
	s.record(now, "add")
	if s.State() != prevState || prevTotal == 0 {
		return append(Wake{}, s.downstream...), nil
	}
	return nil, nil
}

// TryRemove withdraws qty, taken proportionally across grade components so
// composition is preserved. It fails with ErrInsufficient when the tank
// holds less than qty; the tank is unchanged on failure. Every successful
// withdrawal frees capacity, so the wake set always holds the depositing
// processes: a producer parked on a full tank must see the very next
// capacity-freed notification.
func (s *TankStock) TryRemove(now int64, qty float64) (Amount, Wake, error) {
	if qty <= 0 {
		return Amount{}, nil, nil
	}
	if qty > s.contents.Total() {
		return Amount{}, nil, ErrInsufficient
	}
	removed, rest := s.contents.Split(qty)
	s.contents = rest
	s.guard(now)
	s.record(now, "remove")
	return removed, append(Wake{}, s.upstream...), nil
}

func (s *TankStock) watchUpstream(p Process)   { s.upstream = append(s.upstream, p) }
func (s *TankStock) watchDownstream(p Process) { s.downstream = append(s.downstream, p) }

func (s *TankStock) initRecord(now int64) {
	s.track.mark(now, s.contents.Total())
	s.append(now, "init")
}

func (s *TankStock) levelSeries() []levelPoint { return s.track.series() }

func (s *TankStock) record(now int64, event string) {
	s.track.mark(now, s.contents.Total())
	s.append(now, event)
}

func (s *TankStock) append(now int64, event string) {
	if len(s.streams) == 0 {
		return
	}
	remaining := -1.0
	if s.maxCap > 0 {
		remaining = s.maxCap - s.contents.Total()
	}
	rec := journal.StockRecord{
		Time:      now,
		Component: s.name,
		Kind:      KindTankStock,
		Event:     event,
		Occupied:  s.contents.Total(),
		Remaining: remaining,
		State:     string(s.State()),
		Grades:    s.contents,
	}
	for _, st := range s.streams {
		st.Append(rec)
	}
}

// guard panics when the tank's invariants break: contents must stay finite,
// non-negative and within capacity at every event.
func (s *TankStock) guard(now int64) {
	if !s.contents.Valid() {
		panic(fmt.Sprintf("stock %s: contents went invalid at %d ticks: %v", s.name, now, s.contents))
	}
	if s.maxCap > 0 && s.contents.Total() > s.maxCap {
		panic(fmt.Sprintf("stock %s: contents %g exceed max_capacity %g at %d ticks",
			s.name, s.contents.Total(), s.maxCap, now))
	}
}

// ItemStock holds discrete items in FIFO order.
type ItemStock struct {
	name   string
	queue  itemQueue
	lowCap int
	maxCap int // <= 0 means unbounded

	upstream   []Process
	downstream []Process
	streams    []*journal.Stream
	track      levelTrack
}

// NewItemStock builds an item stock seeded with initial items in slice
// order. maxCap <= 0 means unbounded.
func NewItemStock(name string, initial []Item, lowCap, maxCap int) (*ItemStock, error) {
	if name == "" {
		return nil, errors.New("item stock: name must not be empty")
	}
	if lowCap < 0 {
		return nil, fmt.Errorf("stock %s: low_capacity %d must not be negative", name, lowCap)
	}
	if maxCap > 0 && lowCap >= maxCap {
		return nil, fmt.Errorf("stock %s: low_capacity %d must be below max_capacity %d", name, lowCap, maxCap)
	}
	if maxCap > 0 && len(initial) > maxCap {
		return nil, fmt.Errorf("stock %s: %d initial items exceed max_capacity %d", name, len(initial), maxCap)
	}
	s := &ItemStock{
		name:   name,
		lowCap: lowCap,
		maxCap: maxCap,
	}
	s.queue.EnqueueAll(initial)
	return s, nil
}

// AttachStreams binds journal streams that receive this stock's records.
func (s *ItemStock) AttachStreams(ss ...*journal.Stream) {
	s.streams = append(s.streams, ss...)
}

func (s *ItemStock) Name() string { return s.name }
func (s *ItemStock) Kind() string { return KindQueueStock }

// Count returns the number of parked items.
func (s *ItemStock) Count() int { return s.queue.Len() }

// Total returns the item count as a float for the Stock interface.
func (s *ItemStock) Total() float64 { return float64(s.queue.Len()) }

// CargoTotal sums the material carried by every parked item.
func (s *ItemStock) CargoTotal() Amount { return s.queue.CargoTotal() }

// Contents renders the parked item IDs oldest first.
func (s *ItemStock) Contents() string { return s.queue.String() }

// Remaining returns the spare item slots, or -1 when unbounded.
func (s *ItemStock) Remaining() int {
	if s.maxCap <= 0 {
		return -1
	}
	return s.maxCap - s.queue.Len()
}

// State classifies the fill level the same way TankStock does.
func (s *ItemStock) State() StockState {
	count := s.queue.Len()
	switch {
	case count <= s.lowCap:
		return StateEmpty
	case s.maxCap > 0 && count >= s.maxCap:
		return StateFull
	default:
		return StateNormal
	}
}

// TryAdd parks items at the back of the queue. It fails with ErrCapacity
// when the deposit would push the count above max_capacity; the stock is
// unchanged on failure. The wake set mirrors TankStock.TryAdd.
func (s *ItemStock) TryAdd(now int64, items []Item) (Wake, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if s.maxCap > 0 && s.queue.Len()+len(items) > s.maxCap {
		return nil, ErrCapacity
	}
	prevState := s.State()
	prevCount := s.queue.Len()
	s.queue.EnqueueAll(items)
	s.record(now, "add")
	if s.State() != prevState || prevCount == 0 {
		return append(Wake{}, s.downstream...), nil
	}
	return nil, nil
}

// TryRemove withdraws the n oldest items in arrival order. It fails with
// ErrInsufficient when fewer than n items are parked; the stock is unchanged
// on failure. As with TankStock, every successful withdrawal wakes the
// depositing processes.
func (s *ItemStock) TryRemove(now int64, n int) ([]Item, Wake, error) {
	if n <= 0 {
		return nil, nil, nil
	}
	if n > s.queue.Len() {
		return nil, nil, ErrInsufficient
	}
	items := s.queue.DequeueN(n)
	s.record(now, "remove")
	return items, append(Wake{}, s.upstream...), nil
}

func (s *ItemStock) watchUpstream(p Process)   { s.upstream = append(s.upstream, p) }
func (s *ItemStock) watchDownstream(p Process) { s.downstream = append(s.downstream, p) }

func (s *ItemStock) initRecord(now int64) {
	s.track.mark(now, float64(s.queue.Len()))
	s.append(now, "init")
}

func (s *ItemStock) levelSeries() []levelPoint { return s.track.series() }

func (s *ItemStock) record(now int64, event string) {
	s.track.mark(now, float64(s.queue.Len()))
	s.append(now, event)
}

func (s *ItemStock) append(now int64, event string) {
	if len(s.streams) == 0 {
		return
	}
	rec := journal.QueueRecord{
		Time:      now,
		Component: s.name,
		Kind:      KindQueueStock,
		Event:     event,
		Occupied:  s.queue.Len(),
		Remaining: s.Remaining(),
		State:     string(s.State()),
		Contents:  s.queue.String(),
	}
	for _, st := range s.streams {
		st.Append(rec)
	}
}
