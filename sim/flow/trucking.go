// Implements the item-handling processes: Loader fills items with material,
// Dumper empties them, Mover carries them between item stocks. Together
// with TankStock and ItemStock these model haulage circuits: trucks loaded
// at a pit, driven to a dump, emptied and driven back.

package flow

import (
	"errors"
	"fmt"
	"math"

	"github.com/flowsim/flowsim/sim/dist"
	"github.com/sirupsen/logrus"
)

// Loader withdraws one item and a sampled material quantity, loads the
// material into the item's cargo over a sampled duration, then deposits the
// loaded item downstream.
type Loader struct {
	procBase
	matUp   *TankStock
	itemUp  *ItemStock
	down    *ItemStock
	qtyDist dist.Sampler
	durDist dist.Sampler

	holding   *Item
	blocked   bool
	curAction string
	curQty    float64
}

// NewLoader builds a loading process. It expects two upstreams, a tank for
// material and an item stock for empty items, plus an item downstream.
func NewLoader(name string, qty, dur dist.Sampler) *Loader {
	return &Loader{
		procBase: newProcBase(name, KindLoading),
		qtyDist:  qty,
		durDist:  dur,
	}
}

func (t *Loader) attachUpstream(s Stock) error {
	switch us := s.(type) {
	case *TankStock:
		if t.matUp != nil {
			return fmt.Errorf("loading %s: material upstream already connected to %s", t.name, t.matUp.Name())
		}
		t.matUp = us
	case *ItemStock:
		if t.itemUp != nil {
			return fmt.Errorf("loading %s: item upstream already connected to %s", t.name, t.itemUp.Name())
		}
		t.itemUp = us
	default:
		return fmt.Errorf("loading %s: unsupported upstream %s", t.name, s.Name())
	}
	return nil
}

func (t *Loader) attachDownstream(s Stock) error {
	is, ok := s.(*ItemStock)
	if !ok {
		return fmt.Errorf("loading %s: downstream %s must be a queue stock", t.name, s.Name())
	}
	if t.down != nil {
		return fmt.Errorf("loading %s: downstream already connected to %s", t.name, t.down.Name())
	}
	t.down = is
	return nil
}

func (t *Loader) validateWiring() error {
	var errs []error
	if t.matUp == nil {
		errs = append(errs, fmt.Errorf("loading %s: no material upstream connected", t.name))
	}
	if t.itemUp == nil {
		errs = append(errs, fmt.Errorf("loading %s: no item upstream connected", t.name))
	}
	if t.down == nil {
		errs = append(errs, fmt.Errorf("loading %s: no downstream queue connected", t.name))
	}
	if t.qtyDist == nil {
		errs = append(errs, fmt.Errorf("loading %s: quantity distribution required", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("loading %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Loader) evaluate(g *Graph) {
	if t.blocked {
		if !t.tryDeposit(g) {
			return
		}
	}
	if t.state != Idle {
		return
	}
	t.tryStart(g)
}

func (t *Loader) complete(g *Graph, _ *CompletionEvent) {
	if t.tryDeposit(g) {
		t.tryStart(g)
	}
}

func (t *Loader) tryStart(g *Graph) {
	now := g.Clock()
	if t.matUp.State() == StateEmpty {
		t.logProc(now, "", "start_failed", -1, 0, "upstream is empty")
		return
	}
	if t.itemUp.State() == StateEmpty {
		t.logProc(now, "", "start_failed", -1, 0, "no item available")
		return
	}
	if t.down.State() == StateFull {
		t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
		return
	}
	qty := math.Min(t.sampleQty(t.qtyDist), t.matUp.Total())
	if qty <= 0 {
		return
	}
	dur := t.sampleTicks(t.durDist)
	removed, wake, err := t.matUp.TryRemove(now, qty)
	if err != nil {
		panic(fmt.Sprintf("loading %s: material withdrawal of %g failed after gate: %v", t.name, qty, err))
	}
	g.enqueueWake(wake)
	items, wake, err := t.itemUp.TryRemove(now, 1)
	if err != nil {
		panic(fmt.Sprintf("loading %s: item withdrawal failed after gate: %v", t.name, err))
	}
	g.enqueueWake(wake)
	it := items[0]
	it.Cargo = it.Cargo.Add(removed)
	t.holding = &it
	t.state = Active
	t.curAction = t.newActionID()
	t.curQty = removed.Total()
	g.Schedule(now+dur, t)
	t.logProc(now, t.curAction, "start", it.ID, removed.Total(), "")
	logrus.Infof(">> Loading start: %s loading %.3f onto item %d at %d ticks", t.name, removed.Total(), it.ID, now)
}

func (t *Loader) tryDeposit(g *Graph) bool {
	now := g.Clock()
	wake, err := t.down.TryAdd(now, []Item{*t.holding})
	if err != nil {
		if !t.blocked {
			t.blocked = true
			t.logProc(now, t.curAction, "deposit_blocked", t.holding.ID, t.curQty,
				fmt.Sprintf("downstream %s is full", t.down.Name()))
		}
		return false
	}
	g.enqueueWake(wake)
	itemID := t.holding.ID
	t.holding = nil
	t.blocked = false
	t.state = Idle
	t.noteCompletion(t.curQty)
	t.logProc(now, t.curAction, "complete", itemID, t.curQty, "")
	logrus.Infof("<< Loading complete: %s loaded %.3f onto item %d at %d ticks", t.name, t.curQty, itemID, now)
	return true
}

func (t *Loader) inFlightMaterial() Amount {
	if t.holding == nil {
		return Amount{}
	}
	return t.holding.Cargo
}

func (t *Loader) inFlightItems() int {
	if t.holding == nil {
		return 0
	}
	return 1
}

// Dumper withdraws one loaded item, empties its cargo over a sampled
// duration, then deposits the cargo into a tank and the emptied item into a
// queue. The two deposits land independently; either can block.
type Dumper struct {
	procBase
	up       *ItemStock
	matDown  *TankStock
	itemDown *ItemStock
	durDist  dist.Sampler

	pendingCargo *Amount
	pendingItem  *Item
	blocked      bool
	curAction    string
	curQty       float64
	curItemID    int
}

// NewDumper builds a dumping process. The whole cargo is dumped each cycle,
// so no quantity distribution is taken.
func NewDumper(name string, dur dist.Sampler) *Dumper {
	return &Dumper{
		procBase: newProcBase(name, KindDumping),
		durDist:  dur,
	}
}

func (t *Dumper) attachUpstream(s Stock) error {
	is, ok := s.(*ItemStock)
	if !ok {
		return fmt.Errorf("dumping %s: upstream %s must be a queue stock", t.name, s.Name())
	}
	if t.up != nil {
		return fmt.Errorf("dumping %s: upstream already connected to %s", t.name, t.up.Name())
	}
	t.up = is
	return nil
}

func (t *Dumper) attachDownstream(s Stock) error {
	switch ds := s.(type) {
	case *TankStock:
		if t.matDown != nil {
			return fmt.Errorf("dumping %s: material downstream already connected to %s", t.name, t.matDown.Name())
		}
		t.matDown = ds
	case *ItemStock:
		if t.itemDown != nil {
			return fmt.Errorf("dumping %s: item downstream already connected to %s", t.name, t.itemDown.Name())
		}
		t.itemDown = ds
	default:
		return fmt.Errorf("dumping %s: unsupported downstream %s", t.name, s.Name())
	}
	return nil
}

func (t *Dumper) validateWiring() error {
	var errs []error
	if t.up == nil {
		errs = append(errs, fmt.Errorf("dumping %s: no upstream queue connected", t.name))
	}
	if t.matDown == nil {
		errs = append(errs, fmt.Errorf("dumping %s: no material downstream connected", t.name))
	}
	if t.itemDown == nil {
		errs = append(errs, fmt.Errorf("dumping %s: no item downstream connected", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("dumping %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Dumper) evaluate(g *Graph) {
	if t.blocked {
		if !t.tryDeposit(g) {
			return
		}
	}
	if t.state != Idle {
		return
	}
	t.tryStart(g)
}

func (t *Dumper) complete(g *Graph, _ *CompletionEvent) {
	if t.tryDeposit(g) {
		t.tryStart(g)
	}
}

func (t *Dumper) tryStart(g *Graph) {
	now := g.Clock()
	if t.up.State() == StateEmpty {
		t.logProc(now, "", "start_failed", -1, 0, "no item available")
		return
	}
	if t.matDown.State() == StateFull {
		t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
		return
	}
	if t.itemDown.State() == StateFull {
		t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
		return
	}
	items, wake, err := t.up.TryRemove(now, 1)
	if err != nil {
		panic(fmt.Sprintf("dumping %s: item withdrawal failed after gate: %v", t.name, err))
	}
	g.enqueueWake(wake)
	it := items[0]
	cargo := it.Cargo
	it.Cargo = Amount{}
	dur := t.sampleTicks(t.durDist)
	t.pendingCargo = &cargo
	t.pendingItem = &it
	t.state = Active
	t.curAction = t.newActionID()
	t.curQty = cargo.Total()
	t.curItemID = it.ID
	g.Schedule(now+dur, t)
	t.logProc(now, t.curAction, "start", it.ID, cargo.Total(), "")
	logrus.Infof(">> Dumping start: %s emptying %.3f from item %d at %d ticks", t.name, cargo.Total(), it.ID, now)
}

// tryDeposit lands the cargo first, then the emptied item. A block in
// either phase parks the rest; the cargo is never re-attached to the item.
func (t *Dumper) tryDeposit(g *Graph) bool {
	now := g.Clock()
	if t.pendingCargo != nil {
		wake, err := t.matDown.TryAdd(now, *t.pendingCargo)
		if err != nil {
			if !t.blocked {
				t.blocked = true
				t.logProc(now, t.curAction, "deposit_blocked", t.curItemID, t.curQty,
					fmt.Sprintf("downstream %s is full", t.matDown.Name()))
			}
			return false
		}
		g.enqueueWake(wake)
		t.pendingCargo = nil
		t.blocked = false
	}
	if t.pendingItem != nil {
		wake, err := t.itemDown.TryAdd(now, []Item{*t.pendingItem})
		if err != nil {
			if !t.blocked {
				t.blocked = true
				t.logProc(now, t.curAction, "deposit_blocked", t.curItemID, 0,
					fmt.Sprintf("downstream %s is full", t.itemDown.Name()))
			}
			return false
		}
		g.enqueueWake(wake)
		t.pendingItem = nil
		t.blocked = false
	}
	t.state = Idle
	t.noteCompletion(t.curQty)
	t.logProc(now, t.curAction, "complete", t.curItemID, t.curQty, "")
	logrus.Infof("<< Dumping complete: %s emptied %.3f from item %d at %d ticks", t.name, t.curQty, t.curItemID, now)
	return true
}

func (t *Dumper) inFlightMaterial() Amount {
	if t.pendingCargo == nil {
		return Amount{}
	}
	return *t.pendingCargo
}

func (t *Dumper) inFlightItems() int {
	if t.pendingItem == nil {
		return 0
	}
	return 1
}

// moverLeg is one item in transit, keyed by its completion event.
type moverLeg struct {
	eventID uint64
	item    Item
	action  string
	logged  bool
}

// Mover carries items between two item stocks with a per-item travel time.
// Unlike the single-payload processes it keeps any number of legs in
// flight at once, so a fleet of trucks can be on the road together.
type Mover struct {
	procBase
	up      *ItemStock
	down    *ItemStock
	durDist dist.Sampler

	inFlight []moverLeg
	parked   []moverLeg
}

// NewMover builds a movement process.
func NewMover(name string, dur dist.Sampler) *Mover {
	return &Mover{
		procBase: newProcBase(name, KindMovement),
		durDist:  dur,
	}
}

// State reports Active while any leg is travelling or parked.
func (t *Mover) State() ProcState {
	if len(t.inFlight)+len(t.parked) > 0 {
		return Active
	}
	return Idle
}

func (t *Mover) attachUpstream(s Stock) error {
	is, ok := s.(*ItemStock)
	if !ok {
		return fmt.Errorf("movement %s: upstream %s must be a queue stock", t.name, s.Name())
	}
	if t.up != nil {
		return fmt.Errorf("movement %s: upstream already connected to %s", t.name, t.up.Name())
	}
	t.up = is
	return nil
}

func (t *Mover) attachDownstream(s Stock) error {
	is, ok := s.(*ItemStock)
	if !ok {
		return fmt.Errorf("movement %s: downstream %s must be a queue stock", t.name, s.Name())
	}
	if t.down != nil {
		return fmt.Errorf("movement %s: downstream already connected to %s", t.name, t.down.Name())
	}
	t.down = is
	return nil
}

func (t *Mover) validateWiring() error {
	var errs []error
	if t.up == nil {
		errs = append(errs, fmt.Errorf("movement %s: no upstream queue connected", t.name))
	}
	if t.down == nil {
		errs = append(errs, fmt.Errorf("movement %s: no downstream queue connected", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("movement %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Mover) evaluate(g *Graph) {
	t.drainParked(g)
	t.tryStartAll(g)
}

func (t *Mover) complete(g *Graph, e *CompletionEvent) {
	idx := -1
	for i, leg := range t.inFlight {
		if leg.eventID == e.EventID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("movement %s: completion for unknown event %d", t.name, e.EventID()))
	}
	leg := t.inFlight[idx]
	t.inFlight = append(t.inFlight[:idx], t.inFlight[idx+1:]...)
	t.parked = append(t.parked, leg)
	t.drainParked(g)
	t.tryStartAll(g)
}

// drainParked deposits arrived legs in arrival order, stopping at the first
// capacity miss. Each leg logs at most one blocked record.
func (t *Mover) drainParked(g *Graph) {
	now := g.Clock()
	for len(t.parked) > 0 {
		leg := t.parked[0]
		wake, err := t.down.TryAdd(now, []Item{leg.item})
		if err != nil {
			if !t.parked[0].logged {
				t.parked[0].logged = true
				t.logProc(now, leg.action, "deposit_blocked", leg.item.ID, leg.item.Cargo.Total(),
					fmt.Sprintf("downstream %s is full", t.down.Name()))
			}
			return
		}
		g.enqueueWake(wake)
		t.parked = t.parked[1:]
		t.noteCompletion(leg.item.Cargo.Total())
		t.logProc(now, leg.action, "complete", leg.item.ID, leg.item.Cargo.Total(), "")
		logrus.Infof("<< Movement complete: %s delivered item %d at %d ticks", t.name, leg.item.ID, now)
	}
}

// tryStartAll dispatches every item currently available upstream, each with
// its own sampled travel time and completion event.
func (t *Mover) tryStartAll(g *Graph) {
	now := g.Clock()
	for t.up.State() != StateEmpty {
		if t.down.State() == StateFull {
			t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
			return
		}
		items, wake, err := t.up.TryRemove(now, 1)
		if err != nil {
			panic(fmt.Sprintf("movement %s: item withdrawal failed after gate: %v", t.name, err))
		}
		g.enqueueWake(wake)
		it := items[0]
		dur := t.sampleTicks(t.durDist)
		action := t.newActionID()
		evID := g.Schedule(now+dur, t)
		t.inFlight = append(t.inFlight, moverLeg{eventID: evID, item: it, action: action})
		t.logProc(now, action, "start", it.ID, it.Cargo.Total(), "")
		logrus.Infof(">> Movement start: %s carrying item %d for %d ticks at %d ticks", t.name, it.ID, dur, now)
	}
}

func (t *Mover) inFlightMaterial() Amount {
	var total Amount
	for _, leg := range t.inFlight {
		total = total.Add(leg.item.Cargo)
	}
	for _, leg := range t.parked {
		total = total.Add(leg.item.Cargo)
	}
	return total
}

func (t *Mover) inFlightItems() int {
	return len(t.inFlight) + len(t.parked)
}
