// Implements the Process interface and the state shared by all process
// kinds. A process cycles between two phases: Idle (waiting for workable
// stock states) and Active (payload withdrawn, completion event pending).
// Deposits that hit a full stock park the payload; the process stays Active
// and retries when a capacity-freeing wake arrives. The payload is never
// returned upstream and never discarded.

package flow

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/dist"
	"github.com/flowsim/flowsim/sim/journal"
)

// ProcState is a process's lifecycle phase.
type ProcState string

const (
	// Idle means no payload is in flight; the process starts a cycle as
	// soon as its stock gates pass.
	Idle ProcState = "Idle"
	// Active means a payload is in flight or parked awaiting deposit.
	Active ProcState = "Active"
)

// Process kind labels, shared by journal records and model files.
const (
	KindTransfer = "transfer"
	KindSource   = "source"
	KindSink     = "sink"
	KindLoading  = "loading"
	KindDumping  = "dumping"
	KindMovement = "movement"
)

// Process is a timed transformation that moves resources between stocks.
// Implementations: Transfer, Source, Sink, Loader, Dumper, Mover. The
// lifecycle methods are unexported so only the graph's dispatch loop can
// drive mutation.
type Process interface {
	Name() string
	Kind() string
	State() ProcState
	AttachStreams(ss ...*journal.Stream)

	// attachUpstream wires a stock this process withdraws from.
	attachUpstream(s Stock) error
	// attachDownstream wires a stock this process deposits into.
	attachDownstream(s Stock) error
	// validateWiring reports missing or mismatched connections after the
	// model is assembled.
	validateWiring() error
	// bindRNG hands the process its named random stream.
	bindRNG(r *rand.Rand)

	// evaluate retries any parked deposit, then attempts to start a new
	// cycle. Called by the graph on wakes and during the initial sweep.
	evaluate(g *Graph)
	// complete handles the process's completion event.
	complete(g *Graph, e *CompletionEvent)

	// inFlightMaterial and inFlightItems report withheld resources for
	// conservation accounting.
	inFlightMaterial() Amount
	inFlightItems() int
	// stats reports lifetime counters for the run summary.
	stats() (completions int, moved float64, quantities []float64)
}

// procBase carries the identity, bookkeeping and journal plumbing common to
// every process kind.
type procBase struct {
	name  string
	kind  string
	state ProcState
	rng   *rand.Rand

	streams    []*journal.Stream
	nextAction uint64

	completions int
	moved       float64
	quantities  []float64
}

func newProcBase(name, kind string) procBase {
	return procBase{
		name:  name,
		kind:  kind,
		state: Idle,
	}
}

func (b *procBase) Name() string     { return b.name }
func (b *procBase) Kind() string     { return b.kind }
func (b *procBase) State() ProcState { return b.state }

// AttachStreams binds journal streams that receive this process's records.
func (b *procBase) AttachStreams(ss ...*journal.Stream) {
	b.streams = append(b.streams, ss...)
}

func (b *procBase) bindRNG(r *rand.Rand) { b.rng = r }

func (b *procBase) stats() (int, float64, []float64) {
	return b.completions, b.moved, b.quantities
}

// newActionID mints the next cycle identifier, e.g. "loader1-0000003".
func (b *procBase) newActionID() string {
	b.nextAction++
	return fmt.Sprintf("%s-%07d", b.name, b.nextAction)
}

// noteCompletion updates the lifetime counters after a successful cycle.
func (b *procBase) noteCompletion(qty float64) {
	b.completions++
	b.moved += qty
	b.quantities = append(b.quantities, qty)
}

// sampleQty draws a quantity, floored at zero.
func (b *procBase) sampleQty(d dist.Sampler) float64 {
	return math.Max(0, d.Sample(b.rng))
}

// sampleTicks draws a duration in seconds and converts to ticks, floored
// at zero.
func (b *procBase) sampleTicks(d dist.Sampler) int64 {
	return sim.TicksFromSeconds(d.Sample(b.rng))
}

// logProc appends a process record to every bound stream.
func (b *procBase) logProc(now int64, actionID, event string, itemID int, qty float64, reason string) {
	if len(b.streams) == 0 {
		return
	}
	rec := journal.ProcessRecord{
		Time:      now,
		Component: b.name,
		Kind:      b.kind,
		ActionID:  actionID,
		Event:     event,
		ItemID:    itemID,
		Quantity:  qty,
		Reason:    reason,
	}
	for _, st := range b.streams {
		st.Append(rec)
	}
}
