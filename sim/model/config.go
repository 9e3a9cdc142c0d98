// Package model loads declarative simulation scenarios from YAML, validates
// them, and assembles runnable flow graphs. A model file names every stock,
// process, logger, and connection explicitly; nothing is created implicitly
// and unknown component types fail at build time, never at run time.
package model

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowsim/flowsim/sim/dist"
	"github.com/flowsim/flowsim/sim/flow"
	"github.com/flowsim/flowsim/sim/journal"
)

// LoggerSpec declares one bounded journal stream.
type LoggerSpec struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`     // "stock", "queue", or "process"
	Capacity int    `yaml:"capacity"` // ring size in records
}

// ComponentSpec declares one stock or process. Type selects the kind; the
// remaining fields are kind-specific, and setting a field that does not
// belong to the declared kind is a validation error.
type ComponentSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// Array-stock parameters. Initial is the held material per grade,
	// padded with zeros up to the grade count.
	Initial     []float64 `yaml:"initial,omitempty"`
	LowCapacity float64   `yaml:"low_capacity,omitempty"` // at or below is Empty
	MaxCapacity float64   `yaml:"max_capacity,omitempty"` // 0 means unbounded

	// Queue-stock parameters. Items are seeded with consecutive IDs
	// starting at FirstItemID, all with empty cargo.
	InitialItems int `yaml:"initial_items,omitempty"`
	FirstItemID  int `yaml:"first_item_id,omitempty"`

	// Process parameters.
	Quantity *dist.Spec `yaml:"quantity,omitempty"`
	Duration *dist.Spec `yaml:"duration,omitempty"`
	Split    []float64  `yaml:"split,omitempty"` // source grade proportions

	// Loggers binds the component to journal streams by name.
	Loggers []string `yaml:"loggers,omitempty"`
}

// Model is a complete simulation scenario as written in a model file.
type Model struct {
	ID          string          `yaml:"id,omitempty"` // defaults to Name
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Seed        int64           `yaml:"seed,omitempty"`
	HorizonSecs float64         `yaml:"horizon_secs"`
	Loggers     []LoggerSpec    `yaml:"loggers,omitempty"`
	Components  []ComponentSpec `yaml:"components"`
	Connections [][]string      `yaml:"connections,omitempty"` // [upstream, downstream] pairs
}

// validComponentTypes maps accepted component type strings.
var validComponentTypes = map[string]bool{
	flow.KindTankStock:  true,
	flow.KindQueueStock: true,
	flow.KindTransfer:   true,
	flow.KindSource:     true,
	flow.KindSink:       true,
	flow.KindLoading:    true,
	flow.KindDumping:    true,
	flow.KindMovement:   true,
}

// Load reads and parses a model file. Unknown fields are rejected so typos
// in model files fail loudly instead of silently defaulting.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	return Parse(data)
}

// Parse decodes model YAML from memory with the same strictness as Load.
func Parse(data []byte) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing model: %w", err)
	}
	return &m, nil
}

// Validate checks the model for structural errors: unknown kinds, bad
// parameters, duplicate names, bindings to unregistered loggers, and
// connection endpoints that name no component. All findings are reported
// together so one pass over the output fixes the whole file.
func (m *Model) Validate() error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, errors.New("model name must not be empty"))
	}
	if !(m.HorizonSecs > 0) || math.IsInf(m.HorizonSecs, 0) {
		errs = append(errs, fmt.Errorf("horizon_secs must be positive and finite, got %f", m.HorizonSecs))
	}

	loggers := make(map[string]bool, len(m.Loggers))
	for i, lg := range m.Loggers {
		at := fmt.Sprintf("logger[%d] (%s)", i, lg.Name)
		if lg.Name == "" {
			errs = append(errs, fmt.Errorf("logger[%d]: name must not be empty", i))
			continue
		}
		if loggers[lg.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate logger name", at))
		}
		loggers[lg.Name] = true
		if !journal.IsValidKind(lg.Kind) {
			errs = append(errs, fmt.Errorf("%s: unknown logger kind %q", at, lg.Kind))
		}
		if lg.Capacity <= 0 {
			errs = append(errs, fmt.Errorf("%s: capacity must be positive, got %d", at, lg.Capacity))
		}
	}

	if len(m.Components) == 0 {
		errs = append(errs, errors.New("model has no components"))
	}
	names := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		at := fmt.Sprintf("component[%d] (%s)", i, c.Name)
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("component[%d]: name must not be empty", i))
			continue
		}
		if names[c.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate component name", at))
		}
		names[c.Name] = true
		errs = append(errs, c.validate(at)...)
		for _, ref := range c.Loggers {
			if !loggers[ref] {
				errs = append(errs, fmt.Errorf("%s: unknown logger %q", at, ref))
			}
		}
	}

	for i, edge := range m.Connections {
		at := fmt.Sprintf("connection[%d]", i)
		if len(edge) != 2 {
			errs = append(errs, fmt.Errorf("%s: want [upstream, downstream], got %d names", at, len(edge)))
			continue
		}
		for _, end := range edge {
			if !names[end] {
				errs = append(errs, fmt.Errorf("%s: unknown component %q", at, end))
			}
		}
	}

	return errors.Join(errs...)
}

// validate checks the kind-specific parameters of one component.
func (c *ComponentSpec) validate(at string) []error {
	if !validComponentTypes[c.Type] {
		return []error{fmt.Errorf("%s: unknown component type %q", at, c.Type)}
	}

	var errs []error
	switch c.Type {
	case flow.KindTankStock:
		errs = append(errs, c.rejectQueueFields(at)...)
		errs = append(errs, c.rejectProcessFields(at)...)
		errs = append(errs, checkGrades(at, "initial", c.Initial)...)
		errs = append(errs, c.checkTankCapacities(at)...)

	case flow.KindQueueStock:
		errs = append(errs, c.rejectArrayFields(at)...)
		errs = append(errs, c.rejectProcessFields(at)...)
		errs = append(errs, c.checkQueueCapacities(at)...)

	case flow.KindTransfer, flow.KindLoading, flow.KindSink:
		errs = append(errs, c.rejectStockFields(at)...)
		errs = append(errs, requireDist(at, "quantity", c.Quantity)...)
		errs = append(errs, requireDist(at, "duration", c.Duration)...)
		if len(c.Split) != 0 {
			errs = append(errs, fmt.Errorf("%s: split is not a %s parameter", at, c.Type))
		}

	case flow.KindSource:
		errs = append(errs, c.rejectStockFields(at)...)
		errs = append(errs, requireDist(at, "quantity", c.Quantity)...)
		errs = append(errs, requireDist(at, "duration", c.Duration)...)
		errs = append(errs, c.checkSplit(at)...)

	case flow.KindDumping, flow.KindMovement:
		errs = append(errs, c.rejectStockFields(at)...)
		if c.Quantity != nil {
			errs = append(errs, fmt.Errorf("%s: %s moves whole items, quantity is not a parameter", at, c.Type))
		}
		errs = append(errs, requireDist(at, "duration", c.Duration)...)
		if len(c.Split) != 0 {
			errs = append(errs, fmt.Errorf("%s: split is not a %s parameter", at, c.Type))
		}
	}
	return errs
}

func (c *ComponentSpec) rejectArrayFields(at string) []error {
	var errs []error
	if len(c.Initial) != 0 {
		errs = append(errs, fmt.Errorf("%s: initial is not a %s parameter", at, c.Type))
	}
	return errs
}

func (c *ComponentSpec) rejectQueueFields(at string) []error {
	var errs []error
	if c.InitialItems != 0 {
		errs = append(errs, fmt.Errorf("%s: initial_items is not a %s parameter", at, c.Type))
	}
	if c.FirstItemID != 0 {
		errs = append(errs, fmt.Errorf("%s: first_item_id is not a %s parameter", at, c.Type))
	}
	return errs
}

func (c *ComponentSpec) rejectProcessFields(at string) []error {
	var errs []error
	if c.Quantity != nil {
		errs = append(errs, fmt.Errorf("%s: quantity is not a %s parameter", at, c.Type))
	}
	if c.Duration != nil {
		errs = append(errs, fmt.Errorf("%s: duration is not a %s parameter", at, c.Type))
	}
	if len(c.Split) != 0 {
		errs = append(errs, fmt.Errorf("%s: split is not a %s parameter", at, c.Type))
	}
	return errs
}

func (c *ComponentSpec) rejectStockFields(at string) []error {
	var errs []error
	errs = append(errs, c.rejectArrayFields(at)...)
	errs = append(errs, c.rejectQueueFields(at)...)
	if c.LowCapacity != 0 {
		errs = append(errs, fmt.Errorf("%s: low_capacity is not a %s parameter", at, c.Type))
	}
	if c.MaxCapacity != 0 {
		errs = append(errs, fmt.Errorf("%s: max_capacity is not a %s parameter", at, c.Type))
	}
	return errs
}

func (c *ComponentSpec) checkTankCapacities(at string) []error {
	var errs []error
	if !finiteNonNegative(c.LowCapacity) {
		errs = append(errs, fmt.Errorf("%s: low_capacity must be non-negative and finite, got %f", at, c.LowCapacity))
	}
	if !finiteNonNegative(c.MaxCapacity) {
		errs = append(errs, fmt.Errorf("%s: max_capacity must be non-negative and finite, got %f", at, c.MaxCapacity))
	}
	if c.MaxCapacity > 0 && !(c.LowCapacity < c.MaxCapacity) {
		errs = append(errs, fmt.Errorf("%s: low_capacity %f must be below max_capacity %f", at, c.LowCapacity, c.MaxCapacity))
	}
	if c.MaxCapacity > 0 {
		total := 0.0
		for _, v := range c.Initial {
			total += v
		}
		if total > c.MaxCapacity {
			errs = append(errs, fmt.Errorf("%s: initial total %f exceeds max_capacity %f", at, total, c.MaxCapacity))
		}
	}
	return errs
}

func (c *ComponentSpec) checkQueueCapacities(at string) []error {
	var errs []error
	if c.LowCapacity < 0 || c.LowCapacity != math.Trunc(c.LowCapacity) {
		errs = append(errs, fmt.Errorf("%s: low_capacity must be a non-negative whole number of items, got %f", at, c.LowCapacity))
	}
	if c.MaxCapacity < 0 || c.MaxCapacity != math.Trunc(c.MaxCapacity) {
		errs = append(errs, fmt.Errorf("%s: max_capacity must be a non-negative whole number of items, got %f", at, c.MaxCapacity))
	}
	if c.MaxCapacity > 0 && !(c.LowCapacity < c.MaxCapacity) {
		errs = append(errs, fmt.Errorf("%s: low_capacity %.0f must be below max_capacity %.0f", at, c.LowCapacity, c.MaxCapacity))
	}
	if c.InitialItems < 0 {
		errs = append(errs, fmt.Errorf("%s: initial_items must be non-negative, got %d", at, c.InitialItems))
	}
	if c.MaxCapacity > 0 && float64(c.InitialItems) > c.MaxCapacity {
		errs = append(errs, fmt.Errorf("%s: initial_items %d exceeds max_capacity %.0f", at, c.InitialItems, c.MaxCapacity))
	}
	if c.FirstItemID < 0 {
		errs = append(errs, fmt.Errorf("%s: first_item_id must be non-negative, got %d", at, c.FirstItemID))
	}
	return errs
}

func (c *ComponentSpec) checkSplit(at string) []error {
	if len(c.Split) == 0 {
		return []error{fmt.Errorf("%s: source requires a split grade vector", at)}
	}
	errs := checkGrades(at, "split", c.Split)
	sum := 0.0
	for _, v := range c.Split {
		sum += v
	}
	if !(sum > 0) {
		errs = append(errs, fmt.Errorf("%s: split must have a positive total, got %f", at, sum))
	}
	return errs
}

// checkGrades validates a grade vector: at most NumGrades entries, each
// non-negative and finite.
func checkGrades(at, field string, vals []float64) []error {
	var errs []error
	if len(vals) > flow.NumGrades {
		errs = append(errs, fmt.Errorf("%s: %s has %d grades, at most %d", at, field, len(vals), flow.NumGrades))
	}
	for i, v := range vals {
		if !finiteNonNegative(v) {
			errs = append(errs, fmt.Errorf("%s: %s[%d] must be non-negative and finite, got %f", at, field, i, v))
		}
	}
	return errs
}

func requireDist(at, field string, spec *dist.Spec) []error {
	if spec == nil {
		return []error{fmt.Errorf("%s: %s distribution is required", at, field)}
	}
	if err := dist.Validate(*spec); err != nil {
		return []error{fmt.Errorf("%s: %s: %w", at, field, err)}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
