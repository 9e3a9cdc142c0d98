package model

import (
	"errors"
	"fmt"

	"github.com/flowsim/flowsim/sim/dist"
	"github.com/flowsim/flowsim/sim/flow"
	"github.com/flowsim/flowsim/sim/journal"
)

// Build validates the model and assembles a runnable graph with its journal.
// The seed overrides the one in the file so sweeps can reuse one model.
// Every problem in the file is reported; on any error no graph is returned.
func Build(m *Model, seed int64) (*flow.Graph, *journal.Journal, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	j := journal.New()
	streams := make(map[string]*journal.Stream, len(m.Loggers))
	var errs []error
	for _, lg := range m.Loggers {
		s, err := j.Register(lg.Name, lg.Kind, lg.Capacity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		streams[lg.Name] = s
	}

	g := flow.NewGraph(seed)
	for _, c := range m.Components {
		if err := addComponent(g, c, streams); err != nil {
			errs = append(errs, fmt.Errorf("component %s: %w", c.Name, err))
		}
	}
	for _, edge := range m.Connections {
		if err := g.Connect(edge[0], edge[1]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.Build(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	return g, j, nil
}

// addComponent constructs one component, binds its journal streams, and
// registers it with the graph.
func addComponent(g *flow.Graph, c ComponentSpec, streams map[string]*journal.Stream) error {
	bound := make([]*journal.Stream, 0, len(c.Loggers))
	for _, name := range c.Loggers {
		if s := streams[name]; s != nil {
			bound = append(bound, s)
		}
	}

	switch c.Type {
	case flow.KindTankStock:
		st, err := flow.NewTankStock(c.Name, gradeAmount(c.Initial), c.LowCapacity, c.MaxCapacity)
		if err != nil {
			return err
		}
		st.AttachStreams(bound...)
		return g.AddStock(st)

	case flow.KindQueueStock:
		st, err := flow.NewItemStock(c.Name, seedItems(c.InitialItems, c.FirstItemID), int(c.LowCapacity), int(c.MaxCapacity))
		if err != nil {
			return err
		}
		st.AttachStreams(bound...)
		return g.AddStock(st)

	case flow.KindTransfer:
		qty, dur, err := samplerPair(c.Quantity, c.Duration)
		if err != nil {
			return err
		}
		p := flow.NewTransfer(c.Name, qty, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	case flow.KindSource:
		qty, dur, err := samplerPair(c.Quantity, c.Duration)
		if err != nil {
			return err
		}
		p := flow.NewSource(c.Name, gradeAmount(c.Split), qty, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	case flow.KindSink:
		qty, dur, err := samplerPair(c.Quantity, c.Duration)
		if err != nil {
			return err
		}
		p := flow.NewSink(c.Name, qty, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	case flow.KindLoading:
		qty, dur, err := samplerPair(c.Quantity, c.Duration)
		if err != nil {
			return err
		}
		p := flow.NewLoader(c.Name, qty, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	case flow.KindDumping:
		dur, err := dist.NewSampler(*c.Duration)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		p := flow.NewDumper(c.Name, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	case flow.KindMovement:
		dur, err := dist.NewSampler(*c.Duration)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		p := flow.NewMover(c.Name, dur)
		p.AttachStreams(bound...)
		return g.AddProcess(p)

	default:
		return fmt.Errorf("unknown component type %q", c.Type)
	}
}

// samplerPair builds the quantity and duration samplers of a process spec.
func samplerPair(qty, dur *dist.Spec) (dist.Sampler, dist.Sampler, error) {
	q, err := dist.NewSampler(*qty)
	if err != nil {
		return nil, nil, fmt.Errorf("quantity: %w", err)
	}
	d, err := dist.NewSampler(*dur)
	if err != nil {
		return nil, nil, fmt.Errorf("duration: %w", err)
	}
	return q, d, nil
}

// gradeAmount widens a YAML grade vector to a full Amount, padding with
// zeros.
func gradeAmount(vals []float64) flow.Amount {
	var a flow.Amount
	copy(a[:], vals)
	return a
}

// seedItems creates the initial population of an item stock: empty-cargo
// items with consecutive IDs.
func seedItems(n, firstID int) []flow.Item {
	items := make([]flow.Item, n)
	for i := range items {
		items[i] = flow.Item{ID: firstID + i}
	}
	return items
}
