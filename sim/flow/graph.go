// Package flow implements a discrete-event stock and flow simulator.
// A model is a bipartite graph of stocks (passive containers) and processes
// (timed movers). The graph owns the clock, the event heap and the wake
// queue; all mutation happens inside its single-threaded dispatch loop, so
// a run with a given model and seed is exactly reproducible.
package flow

import (
	"errors"
	"fmt"

	"github.com/flowsim/flowsim/sim"
	"github.com/sirupsen/logrus"
)

// Graph is a wired simulation model plus its execution state.
type Graph struct {
	stocks   []Stock
	procs    []Process
	stockIdx map[string]int
	procIdx  map[string]int

	rng    *sim.PartitionedRNG
	events *EventHeap

	clock       int64
	nextEventID uint64
	dispatched  int
	maxEvents   int
	wakes       []Process
	built       bool
	started     bool
}

// NewGraph creates an empty graph. The seed fixes every random stream in
// the run; two graphs built identically from the same seed replay the same
// trajectory.
func NewGraph(seed int64) *Graph {
	return &Graph{
		stockIdx: make(map[string]int),
		procIdx:  make(map[string]int),
		rng:      sim.NewPartitionedRNG(sim.NewSimulationKey(seed)),
		events:   NewEventHeap(),
	}
}

// AddStock registers a stock. Component names are unique across stocks and
// processes.
func (g *Graph) AddStock(s Stock) error {
	if err := g.checkName(s.Name()); err != nil {
		return err
	}
	g.stockIdx[s.Name()] = len(g.stocks)
	g.stocks = append(g.stocks, s)
	return nil
}

// AddProcess registers a process and binds its named random stream.
func (g *Graph) AddProcess(p Process) error {
	if err := g.checkName(p.Name()); err != nil {
		return err
	}
	p.bindRNG(g.rng.ForComponent(p.Name()))
	g.procIdx[p.Name()] = len(g.procs)
	g.procs = append(g.procs, p)
	return nil
}

func (g *Graph) checkName(name string) error {
	if name == "" {
		return errors.New("component name must not be empty")
	}
	if _, ok := g.stockIdx[name]; ok {
		return fmt.Errorf("duplicate component name %q", name)
	}
	if _, ok := g.procIdx[name]; ok {
		return fmt.Errorf("duplicate component name %q", name)
	}
	return nil
}

// Stock returns the named stock, or nil.
func (g *Graph) Stock(name string) Stock {
	i, ok := g.stockIdx[name]
	if !ok {
		return nil
	}
	return g.stocks[i]
}

// Process returns the named process, or nil.
func (g *Graph) Process(name string) Process {
	i, ok := g.procIdx[name]
	if !ok {
		return nil
	}
	return g.procs[i]
}

// Connect wires an edge from upstream to downstream. Every edge joins a
// stock and a process: stock to process means the process withdraws from
// the stock, process to stock means it deposits into it. Connecting also
// registers the process for the stock's wake notifications in the helpful
// direction only.
func (g *Graph) Connect(upstream, downstream string) error {
	us, uIsStock := g.stockIdx[upstream]
	up, uIsProc := g.procIdx[upstream]
	ds, dIsStock := g.stockIdx[downstream]
	dp, dIsProc := g.procIdx[downstream]

	switch {
	case !uIsStock && !uIsProc:
		return fmt.Errorf("connection %s -> %s: unknown component %q", upstream, downstream, upstream)
	case !dIsStock && !dIsProc:
		return fmt.Errorf("connection %s -> %s: unknown component %q", upstream, downstream, downstream)
	case uIsStock && dIsStock:
		return fmt.Errorf("connection %s -> %s: stocks cannot connect directly, put a process between them", upstream, downstream)
	case uIsProc && dIsProc:
		return fmt.Errorf("connection %s -> %s: processes cannot connect directly, put a stock between them", upstream, downstream)
	case uIsStock:
		s, p := g.stocks[us], g.procs[dp]
		if err := p.attachUpstream(s); err != nil {
			return err
		}
		s.watchDownstream(p)
	default:
		p, s := g.procs[up], g.stocks[ds]
		if err := p.attachDownstream(s); err != nil {
			return err
		}
		s.watchUpstream(p)
	}
	return nil
}

// Build finalizes the graph, validating every process's wiring. Errors are
// aggregated so a broken model reports all problems at once.
func (g *Graph) Build() error {
	var errs []error
	for _, p := range g.procs {
		if err := p.validateWiring(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	g.built = true
	return nil
}

// Clock returns the current simulation time in ticks.
func (g *Graph) Clock() int64 { return g.clock }

// EventsDispatched returns the number of events executed so far.
func (g *Graph) EventsDispatched() int { return g.dispatched }

// PendingEvents returns the number of scheduled, undispatched events.
func (g *Graph) PendingEvents() int { return g.events.Len() }

// LimitEvents caps the number of events a run may dispatch. Zero means
// unlimited. The cap is a safety net against runaway models.
func (g *Graph) LimitEvents(n int) { g.maxEvents = n }

// Schedule queues a completion event for p at the given tick and returns
// its event ID. Scheduling into the past is a bug and panics.
func (g *Graph) Schedule(at int64, p Process) uint64 {
	if at < g.clock {
		panic(fmt.Sprintf("process %s: scheduled into the past: %d < %d", p.Name(), at, g.clock))
	}
	g.nextEventID++
	ev := &CompletionEvent{
		BaseEvent: newBaseEvent(at, g.nextEventID),
		Process:   p,
	}
	g.events.Schedule(ev)
	return ev.EventID()
}

// Cancel removes a pending event by ID. Returns false when the event was
// already dispatched or never existed.
func (g *Graph) Cancel(id uint64) bool {
	return g.events.Cancel(id)
}

// enqueueWake appends woken processes to the wake queue in order. The
// dispatch loop drains the queue after every event; a process may appear
// more than once, which is harmless because evaluate re-checks its gates.
func (g *Graph) enqueueWake(w Wake) {
	g.wakes = append(g.wakes, w...)
}

func (g *Graph) drainWakes() {
	for len(g.wakes) > 0 {
		p := g.wakes[0]
		g.wakes = g.wakes[1:]
		p.evaluate(g)
	}
}

// kickstart journals every stock's starting contents and evaluates every
// process once in registration order, letting those whose gates already
// pass begin their first cycle.
func (g *Graph) kickstart() {
	g.started = true
	for _, s := range g.stocks {
		s.initRecord(g.clock)
	}
	for _, p := range g.procs {
		p.evaluate(g)
	}
	g.drainWakes()
}

// RunTo dispatches events in timestamp order until the next event would lie
// beyond end, then advances the clock to end. Events beyond end stay queued
// so a later RunTo resumes seamlessly. Events exactly at end are
// dispatched. Returns the number of events dispatched by this call.
func (g *Graph) RunTo(end int64) int {
	if !g.built {
		panic("graph not built: call Build before running")
	}
	if !g.started {
		logrus.Infof("Starting flow simulation: end=%d ticks, %d stocks, %d processes",
			end, len(g.stocks), len(g.procs))
		g.kickstart()
	}
	count := 0
	capped := false
	for g.events.Len() > 0 {
		if g.maxEvents > 0 && g.dispatched >= g.maxEvents {
			logrus.Warnf("Event cap reached: %d events dispatched, stopping at %d ticks", g.dispatched, g.clock)
			capped = true
			break
		}
		next := g.events.Peek()
		if next.Timestamp() > end {
			break
		}
		e := g.events.PopNext()
		if e.Timestamp() < g.clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", e.Timestamp(), g.clock))
		}
		g.clock = e.Timestamp()
		e.Execute(g)
		g.drainWakes()
		g.dispatched++
		count++
	}
	// A capped run has not simulated the remaining span, so the clock only
	// advances to end on a normal horizon stop.
	if !capped && end > g.clock {
		g.clock = end
	}
	return count
}

// RunN dispatches at most n events regardless of their timestamps. Useful
// for stepping a model through interesting moments in tests.
func (g *Graph) RunN(n int) int {
	if !g.built {
		panic("graph not built: call Build before running")
	}
	if !g.started {
		g.kickstart()
	}
	count := 0
	for count < n && g.events.Len() > 0 {
		if g.maxEvents > 0 && g.dispatched >= g.maxEvents {
			break
		}
		e := g.events.PopNext()
		if e.Timestamp() < g.clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", e.Timestamp(), g.clock))
		}
		g.clock = e.Timestamp()
		e.Execute(g)
		g.drainWakes()
		g.dispatched++
		count++
	}
	return count
}

// TotalMaterial sums the material everywhere it can sit: tank contents,
// cargo on parked items, and payloads held in flight by processes. In a
// closed model (no sources or sinks) the total is invariant across events.
func (g *Graph) TotalMaterial() float64 {
	var total Amount
	for _, s := range g.stocks {
		switch st := s.(type) {
		case *TankStock:
			total = total.Add(st.Contents())
		case *ItemStock:
			total = total.Add(st.CargoTotal())
		}
	}
	for _, p := range g.procs {
		total = total.Add(p.inFlightMaterial())
	}
	return total.Total()
}

// TotalItems counts items in stocks and in flight. Items are never created
// or destroyed after build, so the count is invariant.
func (g *Graph) TotalItems() int {
	n := 0
	for _, s := range g.stocks {
		if st, ok := s.(*ItemStock); ok {
			n += st.Count()
		}
	}
	for _, p := range g.procs {
		n += p.inFlightItems()
	}
	return n
}
