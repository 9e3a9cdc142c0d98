package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// csvHeaders maps stream kind to CSV header row.
var csvHeaders = map[string][]string{
	KindStock:   {"time", "component", "kind", "event", "occupied", "remaining", "state", "x0", "x1", "x2", "x3", "x4"},
	KindQueue:   {"time", "component", "kind", "event", "occupied", "remaining", "state", "contents"},
	KindProcess: {"time", "component", "kind", "action_id", "event", "item_id", "quantity", "reason"},
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// csvRow flattens a record into fields matching its kind's header.
func csvRow(r Record) []string {
	switch rec := r.(type) {
	case StockRecord:
		row := []string{
			strconv.FormatInt(rec.Time, 10),
			rec.Component,
			rec.Kind,
			rec.Event,
			ftoa(rec.Occupied),
			ftoa(rec.Remaining),
			rec.State,
		}
		for _, g := range rec.Grades {
			row = append(row, ftoa(g))
		}
		return row
	case QueueRecord:
		return []string{
			strconv.FormatInt(rec.Time, 10),
			rec.Component,
			rec.Kind,
			rec.Event,
			strconv.Itoa(rec.Occupied),
			strconv.Itoa(rec.Remaining),
			rec.State,
			rec.Contents,
		}
	case ProcessRecord:
		return []string{
			strconv.FormatInt(rec.Time, 10),
			rec.Component,
			rec.Kind,
			rec.ActionID,
			rec.Event,
			strconv.Itoa(rec.ItemID),
			ftoa(rec.Quantity),
			rec.Reason,
		}
	default:
		return nil
	}
}

// WriteCSV persists every stream of j as {dir}/{prefix}{name}.csv with a
// header row followed by the held records, oldest first. The directory is
// created if missing. An empty prefix is valid; sweeps pass a seed-stamped
// prefix so runs do not clobber each other.
func WriteCSV(j *Journal, dir, prefix string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, s := range j.Streams() {
		if err := writeStreamCSV(s, filepath.Join(dir, prefix+s.Name()+".csv")); err != nil {
			return err
		}
	}
	return nil
}

func writeStreamCSV(s *Stream, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders[s.Kind()]); err != nil {
		return fmt.Errorf("writing header for stream %q: %w", s.Name(), err)
	}
	for _, r := range s.Records() {
		row := csvRow(r)
		if row == nil {
			return fmt.Errorf("stream %q holds a record of unknown type %T", s.Name(), r)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing stream %q: %w", s.Name(), err)
		}
	}
	w.Flush()
	return w.Error()
}
