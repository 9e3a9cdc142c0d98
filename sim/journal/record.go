// Package journal provides bounded, named log streams for simulation
// output. This package has no dependencies on sim/ or sim/flow/ — it stores
// pure data types; the engine appends, persistence layers drain.
package journal

// Stream kinds. A stream accepts records of one schema.
const (
	KindStock   = "stock"   // material stock transitions
	KindQueue   = "queue"   // item stock transitions
	KindProcess = "process" // process lifecycle actions
)

// validKinds maps accepted stream kind strings.
var validKinds = map[string]bool{
	KindStock:   true,
	KindQueue:   true,
	KindProcess: true,
}

// IsValidKind reports whether kind names a known stream schema.
func IsValidKind(kind string) bool {
	return validKinds[kind]
}

// Record is one immutable journal entry. The three schemas below implement
// it; persistence layers type-switch on the concrete type.
type Record interface {
	// Timestamp returns the simulation time of the observation, in ticks.
	Timestamp() int64
}

// StockRecord captures one observable transition of a material stock.
type StockRecord struct {
	Time      int64
	Component string
	Kind      string  // component kind, e.g. "array-stock"
	Event     string  // "init", "add", "remove"
	Occupied  float64 // total material after the transition
	Remaining float64 // spare capacity after the transition; -1 when unbounded
	State     string  // "Empty", "Normal", "Full"
	Grades    [5]float64
}

func (r StockRecord) Timestamp() int64 { return r.Time }

// QueueRecord captures one observable transition of an item stock.
type QueueRecord struct {
	Time      int64
	Component string
	Kind      string
	Event     string
	Occupied  int    // items held after the transition
	Remaining int    // spare item slots; -1 when unbounded
	State     string
	Contents  string // space-joined item IDs, oldest first
}

func (r QueueRecord) Timestamp() int64 { return r.Time }

// ProcessRecord captures one process lifecycle action.
type ProcessRecord struct {
	Time      int64
	Component string
	Kind      string  // component kind, e.g. "loading"
	ActionID  string  // per-process action identity, e.g. "loader1-0000003"
	Event     string  // "start", "complete", "start_failed", "deposit_blocked"
	ItemID    int     // item moved, -1 when the action moves no item
	Quantity  float64 // material quantity moved, 0 when none
	Reason    string  // gate failure detail for "start_failed"
}

func (r ProcessRecord) Timestamp() int64 { return r.Time }
