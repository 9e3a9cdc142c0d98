package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowsim/flowsim/sim"
	"github.com/flowsim/flowsim/sim/flow"
	"github.com/flowsim/flowsim/sim/journal"
	"github.com/flowsim/flowsim/sim/model"
)

var (
	// CLI flags for the simulation run
	modelPath   string  // Path to the YAML model file
	seedsExpr   string  // Seed sweep expression, e.g. "7", "0..4", "0..=4"
	horizonSecs float64 // Simulated horizon in seconds; 0 uses the model's
	logLevel    string  // Log verbosity level
	maxEvents   int     // Safety cap on dispatched events; 0 means unlimited

	// CLI flags for journal persistence
	outDir string // Directory for persisted journal output
	format string // Output format: csv or sqlite
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "flowsim",
	Short: "Discrete-event simulator for stock and flow systems",
}

// seedResult carries one finished sweep run back to the main goroutine.
type seedResult struct {
	seed    int64
	stats   *flow.RunStats
	journal *journal.Journal
	err     error
	elapsed time.Duration
}

// runCmd executes a seed sweep of the model given on the command line
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model, sweeping the requested seeds",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if modelPath == "" {
			logrus.Fatalf("Model file not provided. Exiting simulation.")
		}
		if format != "csv" && format != "sqlite" {
			logrus.Fatalf("Unknown output format %q (want csv or sqlite)", format)
		}

		m, err := model.Load(modelPath)
		if err != nil {
			logrus.Fatalf("Loading model: %v", err)
		}

		seeds := []int64{m.Seed}
		if seedsExpr != "" {
			seeds, err = ParseSeeds(seedsExpr)
			if err != nil {
				logrus.Fatalf("Parsing seeds: %v", err)
			}
		}

		horizon := m.HorizonSecs
		if horizonSecs > 0 {
			horizon = horizonSecs
		}
		horizonTick := sim.TicksFromSeconds(horizon)

		logrus.Infof("Model %q: %d components, %d seed(s), horizon %gs",
			m.Name, len(m.Components), len(seeds), horizon)

		// Each seed gets its own graph and journal; nothing is shared, so
		// the sweep runs fully parallel.
		results := make([]seedResult, len(seeds))
		var wg sync.WaitGroup
		for i, seed := range seeds {
			wg.Add(1)
			go func(i int, seed int64) {
				defer wg.Done()
				g, j, err := model.Build(m, seed)
				if err != nil {
					results[i] = seedResult{seed: seed, err: err}
					return
				}
				if maxEvents > 0 {
					g.LimitEvents(maxEvents)
				}
				start := time.Now()
				g.RunTo(horizonTick)
				results[i] = seedResult{
					seed:    seed,
					stats:   g.Summary(),
					journal: j,
					elapsed: time.Since(start),
				}
			}(i, seed)
		}
		wg.Wait()

		for _, r := range results {
			if r.err != nil {
				logrus.Fatalf("Seed %d: %v", r.seed, r.err)
			}
			printSummary(r.seed, r.stats, r.elapsed)
		}

		if err := persistResults(m, results, horizonTick); err != nil {
			logrus.Fatalf("Persisting journals: %v", err)
		}

		logrus.Info("Simulation complete.")
	},
}

// validateCmd checks a model file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model file and its wiring",
	Run: func(cmd *cobra.Command, args []string) {
		if modelPath == "" {
			logrus.Fatalf("Model file not provided.")
		}
		m, err := model.Load(modelPath)
		if err != nil {
			logrus.Fatalf("Loading model: %v", err)
		}
		// A dry build catches wiring problems that pure file validation
		// cannot see, like a transfer with no downstream.
		if _, _, err := model.Build(m, m.Seed); err != nil {
			logrus.Fatalf("Model %q is invalid:\n%v", m.Name, err)
		}
		fmt.Printf("model %q: OK (%d components, %d connections)\n",
			m.Name, len(m.Components), len(m.Connections))
	},
}

// printSummary writes one seed's run statistics to stdout.
func printSummary(seed int64, rs *flow.RunStats, elapsed time.Duration) {
	fmt.Printf("\n=== seed %d: %d events, %.0fs simulated, %s wall ===\n",
		seed, rs.Events, sim.SecondsFromTicks(rs.Clock), elapsed.Round(time.Millisecond))
	fmt.Printf("%-16s %-12s %12s %12s %12s\n", "STOCK", "KIND", "FINAL", "MEAN", "PEAK")
	for _, st := range rs.Stocks {
		fmt.Printf("%-16s %-12s %12.2f %12.2f %12.2f\n", st.Name, st.Kind, st.Final, st.Mean, st.Peak)
	}
	fmt.Printf("%-16s %-12s %12s %12s %12s %12s\n", "PROCESS", "KIND", "COMPLETED", "MOVED", "MEAN QTY", "STDDEV QTY")
	for _, ps := range rs.Processes {
		fmt.Printf("%-16s %-12s %12d %12.2f %12.2f %12.2f\n",
			ps.Name, ps.Kind, ps.Completions, ps.Moved, ps.MeanQty, ps.StdDevQty)
	}
}

// persistResults writes every seed's journal. CSV gets one seed-prefixed
// file per stream; sqlite appends all runs to one database keyed by run ID.
func persistResults(m *model.Model, results []seedResult, horizonTick int64) error {
	modelID := m.ID
	if modelID == "" {
		modelID = m.Name
	}

	switch format {
	case "csv":
		for _, r := range results {
			prefix := fmt.Sprintf("seed%d_", r.seed)
			if err := journal.WriteCSV(r.journal, outDir, prefix); err != nil {
				return err
			}
		}
	case "sqlite":
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		store, err := journal.OpenSQLite(filepath.Join(outDir, "flowsim.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		for _, r := range results {
			meta := journal.NewRunMeta(modelID, m.Name, r.seed, horizonTick)
			if err := store.WriteRun(r.journal, meta); err != nil {
				return err
			}
			logrus.Infof("Persisted run %s (seed %d)", meta.RunID, r.seed)
		}
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&modelPath, "model", "", "Path to the YAML model file")
	runCmd.Flags().StringVar(&seedsExpr, "seeds", "", "Seeds to sweep: \"7\", \"0..4\", \"0..=4\", or a comma list (default: the model's seed)")
	runCmd.Flags().Float64Var(&horizonSecs, "horizon", 0, "Simulated horizon in seconds (default: the model's horizon_secs)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&maxEvents, "max-events", 0, "Stop each run after this many events (0 = unlimited)")

	// Journal persistence
	runCmd.Flags().StringVar(&outDir, "out", "out", "Directory for journal output")
	runCmd.Flags().StringVar(&format, "format", "csv", "Journal output format (csv or sqlite)")

	validateCmd.Flags().StringVar(&modelPath, "model", "", "Path to the YAML model file")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
