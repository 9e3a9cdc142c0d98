package sim

// TicksPerSecond is the clock resolution: one tick is a millisecond of
// simulated time. Model files express durations and horizons in seconds;
// the engine schedules in ticks.
const TicksPerSecond int64 = 1000

// TicksFromSeconds converts a duration in seconds to clock ticks,
// rounding to the nearest tick. Negative inputs floor to zero.
func TicksFromSeconds(secs float64) int64 {
	if secs <= 0 {
		return 0
	}
	return int64(secs*float64(TicksPerSecond) + 0.5)
}

// SecondsFromTicks converts clock ticks back to seconds for reporting.
func SecondsFromTicks(ticks int64) float64 {
	return float64(ticks) / float64(TicksPerSecond)
}
