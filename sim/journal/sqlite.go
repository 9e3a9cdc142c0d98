package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunMeta identifies one persisted run. RunID is a fresh UUID so sweep
// output from many seeds can share a database without collisions.
type RunMeta struct {
	RunID       string
	ModelID     string
	ModelName   string
	Seed        int64
	HorizonTick int64
	CreatedAt   string
}

// NewRunMeta stamps run identity for persistence.
func NewRunMeta(modelID, modelName string, seed, horizonTick int64) RunMeta {
	return RunMeta{
		RunID:       uuid.New().String(),
		ModelID:     modelID,
		ModelName:   modelName,
		Seed:        seed,
		HorizonTick: horizonTick,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	model_id TEXT NOT NULL,
	model_name TEXT NOT NULL,
	seed INTEGER NOT NULL,
	horizon_ticks INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stock_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stream TEXT NOT NULL,
	time INTEGER NOT NULL,
	component TEXT NOT NULL,
	kind TEXT NOT NULL,
	event TEXT NOT NULL,
	occupied REAL NOT NULL,
	remaining REAL NOT NULL,
	state TEXT NOT NULL,
	x0 REAL NOT NULL, x1 REAL NOT NULL, x2 REAL NOT NULL, x3 REAL NOT NULL, x4 REAL NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS queue_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stream TEXT NOT NULL,
	time INTEGER NOT NULL,
	component TEXT NOT NULL,
	kind TEXT NOT NULL,
	event TEXT NOT NULL,
	occupied INTEGER NOT NULL,
	remaining INTEGER NOT NULL,
	state TEXT NOT NULL,
	contents TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS process_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stream TEXT NOT NULL,
	time INTEGER NOT NULL,
	component TEXT NOT NULL,
	kind TEXT NOT NULL,
	action_id TEXT NOT NULL,
	event TEXT NOT NULL,
	item_id INTEGER NOT NULL,
	quantity REAL NOT NULL,
	reason TEXT,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_stock_run ON stock_log(run_id, time);
CREATE INDEX IF NOT EXISTS idx_queue_run ON queue_log(run_id, time);
CREATE INDEX IF NOT EXISTS idx_process_run ON process_log(run_id, time);
`

// SQLiteStore handles database persistence for run journals.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the journal database at dbPath and
// migrates the schema.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteRun persists the run row and every stream of j under meta.RunID,
// inside one transaction.
func (s *SQLiteStore) WriteRun(j *Journal, meta RunMeta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, model_id, model_name, seed, horizon_ticks, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		meta.RunID, meta.ModelID, meta.ModelName, meta.Seed, meta.HorizonTick, meta.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", meta.RunID, err)
	}

	for _, stream := range j.Streams() {
		if err := insertStream(tx, meta.RunID, stream); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertStream(tx *sql.Tx, runID string, s *Stream) error {
	for _, r := range s.Records() {
		var err error
		switch rec := r.(type) {
		case StockRecord:
			_, err = tx.Exec(
				`INSERT INTO stock_log (run_id, stream, time, component, kind, event, occupied, remaining, state, x0, x1, x2, x3, x4)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, s.Name(), rec.Time, rec.Component, rec.Kind, rec.Event,
				rec.Occupied, rec.Remaining, rec.State,
				rec.Grades[0], rec.Grades[1], rec.Grades[2], rec.Grades[3], rec.Grades[4],
			)
		case QueueRecord:
			_, err = tx.Exec(
				`INSERT INTO queue_log (run_id, stream, time, component, kind, event, occupied, remaining, state, contents)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, s.Name(), rec.Time, rec.Component, rec.Kind, rec.Event,
				rec.Occupied, rec.Remaining, rec.State, rec.Contents,
			)
		case ProcessRecord:
			_, err = tx.Exec(
				`INSERT INTO process_log (run_id, stream, time, component, kind, action_id, event, item_id, quantity, reason)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, s.Name(), rec.Time, rec.Component, rec.Kind, rec.ActionID,
				rec.Event, rec.ItemID, rec.Quantity, rec.Reason,
			)
		default:
			err = fmt.Errorf("record of unknown type %T", r)
		}
		if err != nil {
			return fmt.Errorf("insert into stream %q: %w", s.Name(), err)
		}
	}
	return nil
}
