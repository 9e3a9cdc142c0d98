// Implements the boundary processes: Source creates material out of nothing
// and Sink destroys it. Models using either are open systems, so total
// material is not conserved across them.

package flow

import (
	"errors"
	"fmt"
	"math"

	"github.com/flowsim/flowsim/sim/dist"
	"github.com/sirupsen/logrus"
)

// Source injects material into a downstream tank. Each cycle creates a
// sampled quantity with the configured grade proportions, holds it for a
// sampled duration, then deposits it.
type Source struct {
	procBase
	down    *TankStock
	qtyDist dist.Sampler
	durDist dist.Sampler
	split   Amount

	holding   *Amount
	blocked   bool
	curAction string
}

// NewSource builds a source process. split gives the grade proportions of
// created material and is normalized; a zero split creates plain
// component-0 material.
func NewSource(name string, split Amount, qty, dur dist.Sampler) *Source {
	return &Source{
		procBase: newProcBase(name, KindSource),
		qtyDist:  qty,
		durDist:  dur,
		split:    split.Normalized(),
	}
}

func (t *Source) attachUpstream(s Stock) error {
	return fmt.Errorf("source %s: takes no upstream, got %s", t.name, s.Name())
}

func (t *Source) attachDownstream(s Stock) error {
	ts, ok := s.(*TankStock)
	if !ok {
		return fmt.Errorf("source %s: downstream %s must be a tank stock", t.name, s.Name())
	}
	if t.down != nil {
		return fmt.Errorf("source %s: downstream already connected to %s", t.name, t.down.Name())
	}
	t.down = ts
	return nil
}

func (t *Source) validateWiring() error {
	var errs []error
	if t.down == nil {
		errs = append(errs, fmt.Errorf("source %s: no downstream tank connected", t.name))
	}
	if t.qtyDist == nil {
		errs = append(errs, fmt.Errorf("source %s: quantity distribution required", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("source %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Source) evaluate(g *Graph) {
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

func (t *Source) complete(g *Graph, _ *CompletionEvent) {
	if t.tryDeposit(g) {
		t.tryStart(g)
	}
}

func (t *Source) tryStart(g *Graph) {
	now := g.Clock()
	if t.down.State() == StateFull {
		t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
		return
	}
	qty := t.sampleQty(t.qtyDist)
	if qty <= 0 {
		return
	}
	dur := t.sampleTicks(t.durDist)
	created := t.split.Scale(qty)
	t.holding = &created
	t.state = Active
	t.curAction = t.newActionID()
	g.Schedule(now+dur, t)
	t.logProc(now, t.curAction, "start", -1, created.Total(), "")
	logrus.Infof(">> Source start: %s creating %.3f over %d ticks at %d ticks", t.name, created.Total(), dur, now)
}

func (t *Source) tryDeposit(g *Graph) bool {
	now := g.Clock()
	wake, err := t.down.TryAdd(now, *t.holding)
	if err != nil {
		if !t.blocked {
			t.blocked = true
			t.logProc(now, t.curAction, "deposit_blocked", -1, t.holding.Total(),
				fmt.Sprintf("downstream %s is full", t.down.Name()))
		}
		return false
	}
	g.enqueueWake(wake)
	qty := t.holding.Total()
	t.holding = nil
	t.blocked = false
	t.state = Idle
	t.noteCompletion(qty)
	t.logProc(now, t.curAction, "complete", -1, qty, "")
	logrus.Infof("<< Source complete: %s created %.3f at %d ticks", t.name, qty, now)
	return true
}

func (t *Source) inFlightMaterial() Amount {
	if t.holding == nil {
		return Amount{}
	}
	return *t.holding
}

func (t *Source) inFlightItems() int { return 0 }

// Sink withdraws material from an upstream tank and destroys it. Each cycle
// removes a sampled quantity, holds it for a sampled duration, then drops
// it. A sink never blocks.
type Sink struct {
	procBase
	up      *TankStock
	qtyDist dist.Sampler
	durDist dist.Sampler

	holding   *Amount
	curAction string
}

// NewSink builds a sink process.
func NewSink(name string, qty, dur dist.Sampler) *Sink {
	return &Sink{
		procBase: newProcBase(name, KindSink),
		qtyDist:  qty,
		durDist:  dur,
	}
}

func (t *Sink) attachUpstream(s Stock) error {
	ts, ok := s.(*TankStock)
	if !ok {
		return fmt.Errorf("sink %s: upstream %s must be a tank stock", t.name, s.Name())
	}
	if t.up != nil {
		return fmt.Errorf("sink %s: upstream already connected to %s", t.name, t.up.Name())
	}
	t.up = ts
	return nil
}

func (t *Sink) attachDownstream(s Stock) error {
	return fmt.Errorf("sink %s: takes no downstream, got %s", t.name, s.Name())
}

func (t *Sink) validateWiring() error {
	var errs []error
	if t.up == nil {
		errs = append(errs, fmt.Errorf("sink %s: no upstream tank connected", t.name))
	}
	if t.qtyDist == nil {
		errs = append(errs, fmt.Errorf("sink %s: quantity distribution required", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("sink %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Sink) evaluate(g *Graph) {
	if t.state != Idle {
		return
	}
	t.tryStart(g)
}

func (t *Sink) complete(g *Graph, _ *CompletionEvent) {
	now := g.Clock()
	qty := t.holding.Total()
	t.holding = nil
	t.state = Idle
	t.noteCompletion(qty)
	t.logProc(now, t.curAction, "complete", -1, qty, "")
	logrus.Infof("<< Sink complete: %s destroyed %.3f at %d ticks", t.name, qty, now)
	t.tryStart(g)
}

func (t *Sink) tryStart(g *Graph) {
	now := g.Clock()
	if t.up.State() == StateEmpty {
		t.logProc(now, "", "start_failed", -1, 0, "upstream is empty")
		return
	}
	qty := math.Min(t.sampleQty(t.qtyDist), t.up.Total())
	if qty <= 0 {
		return
	}
	dur := t.sampleTicks(t.durDist)
	removed, wake, err := t.up.TryRemove(now, qty)
	if err != nil {
		panic(fmt.Sprintf("sink %s: withdrawal of %g failed after gate: %v", t.name, qty, err))
	}
	g.enqueueWake(wake)
	t.holding = &removed
	t.state = Active
	t.curAction = t.newActionID()
	g.Schedule(now+dur, t)
	t.logProc(now, t.curAction, "start", -1, removed.Total(), "")
	logrus.Infof(">> Sink start: %s draining %.3f over %d ticks at %d ticks", t.name, removed.Total(), dur, now)
}

func (t *Sink) inFlightMaterial() Amount {
	if t.holding == nil {
		return Amount{}
	}
	return *t.holding
}

func (t *Sink) inFlightItems() int { return 0 }
