// Run summary statistics, computed from the stocks' occupancy histories
// and the processes' lifetime counters once a run has finished.

package flow

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StockStats summarizes one stock over the run. Mean is time weighted:
// each occupancy level counts for as long as the stock held it.
type StockStats struct {
	Name  string
	Kind  string
	Final float64
	Mean  float64
	Peak  float64
}

// ProcessStats summarizes one process over the run.
type ProcessStats struct {
	Name        string
	Kind        string
	Completions int
	Moved       float64
	MeanQty     float64
	StdDevQty   float64
}

// RunStats is the full run summary.
type RunStats struct {
	Events    int
	Clock     int64
	Stocks    []StockStats
	Processes []ProcessStats
}

// Summary computes run statistics up to the current clock. Components
// appear in registration order.
func (g *Graph) Summary() *RunStats {
	rs := &RunStats{
		Events: g.dispatched,
		Clock:  g.clock,
	}
	for _, s := range g.stocks {
		st := StockStats{Name: s.Name(), Kind: s.Kind(), Final: s.Total()}
		pts := s.levelSeries()
		if len(pts) > 0 {
			levels := make([]float64, len(pts))
			weights := make([]float64, len(pts))
			for i, pt := range pts {
				levels[i] = pt.Level
				endAt := g.clock
				if i+1 < len(pts) {
					endAt = pts[i+1].At
				}
				weights[i] = float64(endAt - pt.At)
			}
			if floats.Sum(weights) > 0 {
				st.Mean = stat.Mean(levels, weights)
			} else {
				st.Mean = st.Final
			}
			st.Peak = floats.Max(levels)
		}
		rs.Stocks = append(rs.Stocks, st)
	}
	for _, p := range g.procs {
		completions, moved, qs := p.stats()
		ps := ProcessStats{
			Name:        p.Name(),
			Kind:        p.Kind(),
			Completions: completions,
			Moved:       moved,
		}
		if len(qs) > 0 {
			ps.MeanQty = stat.Mean(qs, nil)
			if len(qs) > 1 {
				ps.StdDevQty = stat.StdDev(qs, nil)
			}
		}
		rs.Processes = append(rs.Processes, ps)
	}
	return rs
}
