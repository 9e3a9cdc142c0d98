package flow

import (
	"errors"
	"fmt"
	"math"

	"github.com/flowsim/flowsim/sim/dist"
	"github.com/sirupsen/logrus"
)

// Transfer moves continuous material from one tank to another. Each cycle
// withdraws a sampled quantity, holds it in flight for a sampled duration,
// then deposits it downstream.
type Transfer struct {
	procBase
	up      *TankStock
	down    *TankStock
	qtyDist dist.Sampler
	durDist dist.Sampler

	holding   *Amount
	blocked   bool
	curAction string
}

// NewTransfer builds a transfer process. Wiring and distributions are
// checked at graph build time.
func NewTransfer(name string, qty, dur dist.Sampler) *Transfer {
	return &Transfer{
		procBase: newProcBase(name, KindTransfer),
		qtyDist:  qty,
		durDist:  dur,
	}
}

func (t *Transfer) attachUpstream(s Stock) error {
	ts, ok := s.(*TankStock)
	if !ok {
		return fmt.Errorf("transfer %s: upstream %s must be a tank stock", t.name, s.Name())
	}
	if t.up != nil {
		return fmt.Errorf("transfer %s: upstream already connected to %s", t.name, t.up.Name())
	}
	t.up = ts
	return nil
}

func (t *Transfer) attachDownstream(s Stock) error {
	ts, ok := s.(*TankStock)
	if !ok {
		return fmt.Errorf("transfer %s: downstream %s must be a tank stock", t.name, s.Name())
	}
	if t.down != nil {
		return fmt.Errorf("transfer %s: downstream already connected to %s", t.name, t.down.Name())
	}
	t.down = ts
	return nil
}

func (t *Transfer) validateWiring() error {
	var errs []error
	if t.up == nil {
		errs = append(errs, fmt.Errorf("transfer %s: no upstream tank connected", t.name))
	}
	if t.down == nil {
		errs = append(errs, fmt.Errorf("transfer %s: no downstream tank connected", t.name))
	}
	if t.qtyDist == nil {
		errs = append(errs, fmt.Errorf("transfer %s: quantity distribution required", t.name))
	}
	if t.durDist == nil {
		errs = append(errs, fmt.Errorf("transfer %s: duration distribution required", t.name))
	}
	return errors.Join(errs...)
}

func (t *Transfer) evaluate(g *Graph) {
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

func (t *Transfer) complete(g *Graph, _ *CompletionEvent) {
	if t.tryDeposit(g) {
		t.tryStart(g)
	}
}

// tryStart begins a new cycle when both stock gates pass. The quantity is
// clamped to what the upstream tank holds; the downstream gate is only a
// state check, so an in-flight payload can still find the tank full on
// arrival.
func (t *Transfer) tryStart(g *Graph) {
	now := g.Clock()
	if t.up.State() == StateEmpty {
		t.logProc(now, "", "start_failed", -1, 0, "upstream is empty")
		return
	}
	if t.down.State() == StateFull {
		t.logProc(now, "", "start_failed", -1, 0, "downstream is full")
		return
	}
	qty := math.Min(t.sampleQty(t.qtyDist), t.up.Total())
	if qty <= 0 {
		return
	}
	dur := t.sampleTicks(t.durDist)
	removed, wake, err := t.up.TryRemove(now, qty)
	if err != nil {
		panic(fmt.Sprintf("transfer %s: withdrawal of %g failed after gate: %v", t.name, qty, err))
	}
	g.enqueueWake(wake)
	t.holding = &removed
	t.state = Active
	t.curAction = t.newActionID()
	g.Schedule(now+dur, t)
	t.logProc(now, t.curAction, "start", -1, removed.Total(), "")
	logrus.Infof(">> Transfer start: %s moving %.3f over %d ticks at %d ticks", t.name, removed.Total(), dur, now)
}

// tryDeposit lands the in-flight payload downstream. On a capacity miss the
// payload stays parked, the process stays Active, and the deposit is
// retried on the next capacity-freeing wake. Exactly one completion record
// is written per successful deposit.
func (t *Transfer) tryDeposit(g *Graph) bool {
	now := g.Clock()
	wake, err := t.down.TryAdd(now, *t.holding)
	if err != nil {
		if !t.blocked {
			t.blocked = true
			t.logProc(now, t.curAction, "deposit_blocked", -1, t.holding.Total(),
				fmt.Sprintf("downstream %s is full", t.down.Name()))
			logrus.Infof("|| Transfer blocked: %s holding %.3f for %s at %d ticks",
				t.name, t.holding.Total(), t.down.Name(), now)
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
	logrus.Infof("<< Transfer complete: %s moved %.3f at %d ticks", t.name, qty, now)
	return true
}

func (t *Transfer) inFlightMaterial() Amount {
	if t.holding == nil {
		return Amount{}
	}
	return *t.holding
}

func (t *Transfer) inFlightItems() int { return 0 }
