package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsim/flowsim/sim/internal/testutil"
)

// TestWriteCSV_GoldenFormat pins the exact on-disk CSV format, header
// order and float rendering included.
func TestWriteCSV_GoldenFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSV(fillJournal(t), dir, ""))

	for _, name := range []string{"stocks", "queues", "procs"} {
		got, err := os.ReadFile(filepath.Join(dir, name+".csv"))
		require.NoError(t, err)
		testutil.Golden(t, filepath.Join("testdata", name+".csv"), got)
	}
}

func TestWriteCSV_CreatesNestedOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sweeps", "batch7")
	require.NoError(t, WriteCSV(fillJournal(t), dir, "seed3_"))

	if _, err := os.Stat(filepath.Join(dir, "seed3_stocks.csv")); err != nil {
		t.Fatalf("expected output in created dir: %v", err)
	}
}
