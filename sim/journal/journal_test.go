package journal

import (
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStream_Validation(t *testing.T) {
	cases := []struct {
		name     string
		stream   string
		kind     string
		capacity int
	}{
		{"empty name", "", KindStock, 10},
		{"unknown kind", "s", "metrics", 10},
		{"zero capacity", "s", KindStock, 0},
		{"negative capacity", "s", KindStock, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStream(tc.stream, tc.kind, tc.capacity); err == nil {
				t.Errorf("NewStream(%q, %q, %d) accepted a bad config", tc.stream, tc.kind, tc.capacity)
			}
		})
	}
}

func TestStream_AppendBelowCapacity(t *testing.T) {
	s, err := NewStream("stocks", KindStock, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s.Append(StockRecord{Time: int64(i), Component: "pit"})
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, int64(0), s.Evicted())

	recs := s.Records()
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, int64(i), r.Timestamp())
	}
}

// TestStream_FIFOEviction verifies the oldest record is dropped first once
// the stream is full.
func TestStream_FIFOEviction(t *testing.T) {
	s, err := NewStream("procs", KindProcess, 3)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		s.Append(ProcessRecord{Time: int64(i), Component: "loader1"})
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, int64(4), s.Evicted())

	recs := s.Records()
	require.Len(t, recs, 3)
	// Oldest-first: records 4, 5, 6 survive.
	for i, r := range recs {
		if r.Timestamp() != int64(i+4) {
			t.Errorf("record %d: time = %d, want %d", i, r.Timestamp(), i+4)
		}
	}
}

func TestJournal_RegisterAndLookup(t *testing.T) {
	j := New()

	s1, err := j.Register("stocks", KindStock, 100)
	require.NoError(t, err)
	s2, err := j.Register("procs", KindProcess, 100)
	require.NoError(t, err)

	// Duplicate names rejected.
	_, err = j.Register("stocks", KindQueue, 100)
	assert.Error(t, err)

	assert.Same(t, s1, j.Stream("stocks"))
	assert.Same(t, s2, j.Stream("procs"))
	assert.Nil(t, j.Stream("missing"))

	streams := j.Streams()
	require.Len(t, streams, 2)
	assert.Equal(t, "stocks", streams[0].Name())
	assert.Equal(t, "procs", streams[1].Name())
}

func fillJournal(t *testing.T) *Journal {
	t.Helper()
	j := New()
	stocks, err := j.Register("stocks", KindStock, 100)
	require.NoError(t, err)
	queues, err := j.Register("queues", KindQueue, 100)
	require.NoError(t, err)
	procs, err := j.Register("procs", KindProcess, 100)
	require.NoError(t, err)

	stocks.Append(StockRecord{
		Time: 0, Component: "pit", Kind: "array-stock", Event: "init",
		Occupied: 1000, Remaining: 4000, State: "Normal",
		Grades: [5]float64{600, 400, 0, 0, 0},
	})
	stocks.Append(StockRecord{
		Time: 61250, Component: "pit", Kind: "array-stock", Event: "remove",
		Occupied: 958.5, Remaining: 4041.5, State: "Normal",
		Grades: [5]float64{575.1, 383.4, 0, 0, 0},
	})
	queues.Append(QueueRecord{
		Time: 61250, Component: "haul_queue", Kind: "queue-stock", Event: "add",
		Occupied: 2, Remaining: -1, State: "Normal", Contents: "100 101",
	})
	procs.Append(ProcessRecord{
		Time: 61250, Component: "loader1", Kind: "loading", ActionID: "loader1-0000001",
		Event: "complete", ItemID: 100, Quantity: 41.5,
	})
	return j
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	j := fillJournal(t)
	dir := t.TempDir()

	require.NoError(t, WriteCSV(j, dir, "seed42_"))

	for _, tc := range []struct {
		file     string
		wantCols int
		wantRows int
	}{
		{"seed42_stocks.csv", 12, 2},
		{"seed42_queues.csv", 8, 1},
		{"seed42_procs.csv", 8, 1},
	} {
		rows := readCSVFile(t, dir+"/"+tc.file)
		require.Len(t, rows, tc.wantRows+1, "%s: header plus data rows", tc.file)
		for i, row := range rows {
			if len(row) != tc.wantCols {
				t.Errorf("%s row %d: %d columns, want %d", tc.file, i, len(row), tc.wantCols)
			}
		}
	}

	stockRows := readCSVFile(t, dir+"/seed42_stocks.csv")
	assert.Equal(t, []string{"time", "component", "kind", "event", "occupied", "remaining", "state", "x0", "x1", "x2", "x3", "x4"}, stockRows[0])
	assert.Equal(t, "pit", stockRows[1][1])
	assert.Equal(t, "init", stockRows[1][3])
	assert.Equal(t, "1000", stockRows[1][4])
	assert.Equal(t, "958.5", stockRows[2][4])

	procRows := readCSVFile(t, dir+"/seed42_procs.csv")
	assert.Equal(t, "loader1-0000001", procRows[1][3])
	assert.Equal(t, "100", procRows[1][5])
}

func TestSQLiteStore_WriteRun(t *testing.T) {
	j := fillJournal(t)

	store, err := OpenSQLite(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	defer store.Close()

	meta := NewRunMeta("trucking-basic", "Basic trucking circuit", 42, 86400000)
	require.NotEmpty(t, meta.RunID)
	require.NoError(t, store.WriteRun(j, meta))

	// A second run with a fresh RunID coexists in the same database.
	meta2 := NewRunMeta("trucking-basic", "Basic trucking circuit", 43, 86400000)
	require.NotEqual(t, meta.RunID, meta2.RunID)
	require.NoError(t, store.WriteRun(j, meta2))

	for _, q := range []struct {
		query string
		want  int
	}{
		{`SELECT COUNT(*) FROM runs`, 2},
		{`SELECT COUNT(*) FROM stock_log`, 4},
		{`SELECT COUNT(*) FROM queue_log`, 2},
		{`SELECT COUNT(*) FROM process_log`, 2},
	} {
		var got int
		require.NoError(t, store.db.QueryRow(q.query).Scan(&got))
		if got != q.want {
			t.Errorf("%s = %d, want %d", q.query, got, q.want)
		}
	}

	var occupied float64
	require.NoError(t, store.db.QueryRow(
		`SELECT occupied FROM stock_log WHERE run_id = ? AND event = 'remove'`, meta.RunID,
	).Scan(&occupied))
	assert.Equal(t, 958.5, occupied)
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // column counts are asserted per test
	rows, err := r.ReadAll()
	require.NoError(t, err, "reading %s", path)
	return rows
}
