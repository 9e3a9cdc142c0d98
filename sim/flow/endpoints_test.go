package flow

import (
	"testing"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_CreatesGradedMaterial(t *testing.T) {
	g := NewGraph(1)
	tank := mustTank(t, "feed", Amount{}, 0, 0)
	src := NewSource("src", Amount{3, 1, 0, 0, 0}, constant(t, 50), constant(t, 10))
	require.NoError(t, g.AddStock(tank))
	require.NoError(t, g.AddProcess(src))
	require.NoError(t, g.Connect("src", "feed"))
	require.NoError(t, g.Build())

	g.RunTo(sim.TicksFromSeconds(35))

	// Three 50 t batches landed, each split 3:1 across the first two grades.
	assert.InDelta(t, 150.0, tank.Total(), 1e-9)
	assert.InDelta(t, 112.5, tank.Contents()[0], 1e-9)
	assert.InDelta(t, 37.5, tank.Contents()[1], 1e-9)
	// The fourth batch is already in flight.
	assert.InDelta(t, 50.0, src.inFlightMaterial().Total(), 1e-9)

	rs := g.Summary()
	require.Len(t, rs.Processes, 1)
	assert.Equal(t, 3, rs.Processes[0].Completions)
	assert.InDelta(t, 150.0, rs.Processes[0].Moved, 1e-9)
}

func TestSource_ParksWhenDownstreamFull(t *testing.T) {
	g := NewGraph(1)
	tank := mustTank(t, "feed", Amount{}, 0, 100)
	src := NewSource("src", Amount{}, constant(t, 60), constant(t, 5))
	require.NoError(t, g.AddStock(tank))
	require.NoError(t, g.AddProcess(src))
	require.NoError(t, g.Connect("src", "feed"))
	stream, err := journal.NewStream("procs", journal.KindProcess, 32)
	require.NoError(t, err)
	src.AttachStreams(stream)
	require.NoError(t, g.Build())

	g.RunTo(sim.TicksFromSeconds(30))

	// The second batch does not fit and is held, never discarded.
	assert.InDelta(t, 60.0, tank.Total(), 1e-9)
	assert.Equal(t, Active, src.State())
	assert.InDelta(t, 60.0, src.inFlightMaterial().Total(), 1e-9)
	require.Len(t, procRecords(stream, "complete"), 1)
	require.Len(t, procRecords(stream, "deposit_blocked"), 1)
	assert.Equal(t, int64(10000), procRecords(stream, "deposit_blocked")[0].Time)
}

func TestSink_DrainsAndDestroys(t *testing.T) {
	g := NewGraph(1)
	tank := mustTank(t, "outflow", Scalar(100), 0, 0)
	sink := NewSink("sink", constant(t, 30), constant(t, 2))
	require.NoError(t, g.AddStock(tank))
	require.NoError(t, g.AddProcess(sink))
	require.NoError(t, g.Connect("outflow", "sink"))
	require.NoError(t, g.Build())

	n := g.RunTo(sim.TicksFromSeconds(10))

	// Three full withdrawals, then the clamped 10 t remainder.
	assert.Equal(t, 4, n)
	assert.Equal(t, 0.0, tank.Total())
	assert.InDelta(t, 0.0, g.TotalMaterial(), 1e-9)

	rs := g.Summary()
	assert.Equal(t, 4, rs.Processes[0].Completions)
	assert.InDelta(t, 100.0, rs.Processes[0].Moved, 1e-9)
}

func TestEndpoints_RejectBackwardsWiring(t *testing.T) {
	g := NewGraph(1)
	require.NoError(t, g.AddStock(mustTank(t, "tank1", Scalar(0), 0, 0)))
	require.NoError(t, g.AddProcess(NewSource("src", Amount{}, constant(t, 1), constant(t, 1))))
	require.NoError(t, g.AddProcess(NewSink("snk", constant(t, 1), constant(t, 1))))

	assert.ErrorContains(t, g.Connect("tank1", "src"), "takes no upstream")
	assert.ErrorContains(t, g.Connect("snk", "tank1"), "takes no downstream")

	err := g.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source src: no downstream tank connected")
	assert.Contains(t, err.Error(), "sink snk: no upstream tank connected")
}
