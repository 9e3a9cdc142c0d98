// Package sim provides the shared plumbing for the flowsim discrete-event
// stock-flow simulator: clock-resolution helpers and the partitioned
// random-number generator that makes runs reproducible.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - rng.go: per-component deterministic RNG streams (PartitionedRNG)
//   - config.go: tick resolution and clock conversion
//   - flow/graph.go: the event loop, wake queue, and dispatch ordering
//   - flow/stock.go: stock state machine and the TryAdd/TryRemove contract
//   - flow/process.go: the two-phase process state machine
//
// # Architecture
//
// The sim package defines shared types; the engine lives in sub-packages:
//   - sim/flow/: stocks, processes, the event heap, and the flow graph
//   - sim/dist/: distribution samplers (uniform, triangular, truncated-normal, ...)
//   - sim/journal/: bounded log streams and CSV/SQLite persistence
//   - sim/model/: declarative YAML models, validation, and graph assembly
//
// Determinism is the load-bearing property: a model plus a seed fully
// determines every event timestamp, every sampled quantity, and every
// journal record. Each component samples from its own RNG stream derived
// from the master seed, so independent components never perturb each
// other's draws and parallel seed sweeps share nothing.
package sim
