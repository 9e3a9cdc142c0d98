package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowsim/flowsim/sim/dist"
)

// haulModelYAML is a complete two-truck haulage circuit: ore is loaded at
// the pit, hauled to the crusher, dumped, and the empty trucks drive back.
// Shared with the build tests.
const haulModelYAML = `
id: haul-demo
name: Pit to crusher haulage
description: Two trucks cycle ore from the pit to the crusher.
seed: 7
horizon_secs: 3600
loggers:
  - name: stocks
    kind: stock
    capacity: 10000
  - name: trucks
    kind: queue
    capacity: 10000
  - name: procs
    kind: process
    capacity: 10000
components:
  - name: pit
    type: array-stock
    initial: [800, 200]
    loggers: [stocks]
  - name: crusher
    type: array-stock
    max_capacity: 5000
    loggers: [stocks]
  - name: empty_q
    type: queue-stock
    initial_items: 2
    first_item_id: 100
    loggers: [trucks]
  - name: full_q
    type: queue-stock
    loggers: [trucks]
  - name: arrived_q
    type: queue-stock
    loggers: [trucks]
  - name: done_q
    type: queue-stock
    loggers: [trucks]
  - name: loader
    type: loading
    quantity:
      type: truncated-normal
      params: {mean: 40, std_dev: 5, min: 20, max: 60}
    duration:
      type: uniform
      params: {min: 1.5, max: 2.5}
    loggers: [procs]
  - name: haul
    type: movement
    duration:
      type: triangular
      params: {min: 8, mode: 10, max: 14}
    loggers: [procs]
  - name: dumper
    type: dumping
    duration:
      type: constant
      params: {value: 1}
    loggers: [procs]
  - name: return_trip
    type: movement
    duration:
      type: constant
      params: {value: 8}
connections:
  - [pit, loader]
  - [empty_q, loader]
  - [loader, full_q]
  - [full_q, haul]
  - [haul, arrived_q]
  - [arrived_q, dumper]
  - [dumper, crusher]
  - [dumper, done_q]
  - [done_q, return_trip]
  - [return_trip, empty_q]
`

func TestLoad_ValidModel_LoadsCorrectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(path, []byte(haulModelYAML), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "haul-demo" {
		t.Errorf("id = %q, want %q", m.ID, "haul-demo")
	}
	if m.Name != "Pit to crusher haulage" {
		t.Errorf("name = %q, want %q", m.Name, "Pit to crusher haulage")
	}
	if m.Seed != 7 {
		t.Errorf("seed = %d, want 7", m.Seed)
	}
	if m.HorizonSecs != 3600 {
		t.Errorf("horizon_secs = %f, want 3600", m.HorizonSecs)
	}
	if len(m.Loggers) != 3 {
		t.Fatalf("loggers count = %d, want 3", len(m.Loggers))
	}
	if m.Loggers[1].Kind != "queue" || m.Loggers[1].Capacity != 10000 {
		t.Errorf("logger[1] = %+v, want kind queue capacity 10000", m.Loggers[1])
	}
	if len(m.Components) != 10 {
		t.Fatalf("components count = %d, want 10", len(m.Components))
	}
	pit := m.Components[0]
	if pit.Type != "array-stock" || len(pit.Initial) != 2 || pit.Initial[0] != 800 {
		t.Errorf("pit = %+v, want array-stock with initial [800 200]", pit)
	}
	loader := m.Components[6]
	if loader.Type != "loading" {
		t.Fatalf("component[6] type = %q, want loading", loader.Type)
	}
	if loader.Quantity == nil || loader.Quantity.Type != "truncated-normal" {
		t.Errorf("loader quantity = %+v, want truncated-normal", loader.Quantity)
	}
	if loader.Quantity.Params["mean"] != 40 {
		t.Errorf("loader quantity mean = %f, want 40", loader.Quantity.Params["mean"])
	}
	if len(m.Connections) != 10 {
		t.Errorf("connections count = %d, want 10", len(m.Connections))
	}

	if err := m.Validate(); err != nil {
		t.Errorf("expected the haul model to validate, got: %v", err)
	}
}

func TestLoad_UnknownKey_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `
name: typo demo
horizson_secs: 60
components:
  - name: a
    type: array-stock
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "reading model") {
		t.Errorf("error should mention the read step: %v", err)
	}
}

func TestParse_MalformedYAML_ReturnsError(t *testing.T) {
	_, err := Parse([]byte("components: [\n"))
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parsing model") {
		t.Errorf("error should mention the parse step: %v", err)
	}
}

// conveyorModel is a minimal valid model: one bounded transfer draining one
// bin into another. Mutated by the validation tests below.
func conveyorModel() *Model {
	return &Model{
		Name:        "conveyor",
		HorizonSecs: 60,
		Loggers: []LoggerSpec{
			{Name: "procs", Kind: "process", Capacity: 100},
		},
		Components: []ComponentSpec{
			{Name: "bin_a", Type: "array-stock", Initial: []float64{100}},
			{Name: "bin_b", Type: "array-stock"},
			{Name: "belt", Type: "transfer",
				Quantity: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 10}},
				Duration: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 5}},
				Loggers:  []string{"procs"},
			},
		},
		Connections: [][]string{{"bin_a", "belt"}, {"belt", "bin_b"}},
	}
}

func TestValidate_ConveyorModel_NoError(t *testing.T) {
	if err := conveyorModel().Validate(); err != nil {
		t.Errorf("expected no error for valid model, got: %v", err)
	}
}

func TestValidate_UnknownComponentType_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components[0].Type = "grinder"
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for unknown component type")
	}
	if !strings.Contains(err.Error(), "grinder") {
		t.Errorf("error should name the unknown type: %v", err)
	}
}

func TestValidate_DuplicateComponentName_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components[1].Name = "bin_a"
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for duplicate component name")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention the duplicate: %v", err)
	}
}

func TestValidate_UnknownLoggerReference_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components[2].Loggers = []string{"ghost"}
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for unknown logger reference")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the missing logger: %v", err)
	}
}

func TestValidate_UnknownLoggerKind_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Loggers[0].Kind = "telemetry"
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for unknown logger kind")
	}
	if !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("error should name the bad kind: %v", err)
	}
}

func TestValidate_BadDistribution_LocatedError(t *testing.T) {
	m := conveyorModel()
	m.Components[2].Duration = &dist.Spec{Type: "uniform", Params: map[string]float64{"min": 9, "max": 5}}
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for inverted uniform bounds")
	}
	if !strings.Contains(err.Error(), "component[2] (belt)") {
		t.Errorf("error should locate the component: %v", err)
	}
	if !strings.Contains(err.Error(), "uniform") {
		t.Errorf("error should come from the distribution check: %v", err)
	}
}

func TestValidate_DanglingConnection_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Connections = append(m.Connections, []string{"belt", "hopper"})
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for connection to unknown component")
	}
	if !strings.Contains(err.Error(), "hopper") {
		t.Errorf("error should name the missing endpoint: %v", err)
	}
}

func TestValidate_ConnectionArity_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Connections = append(m.Connections, []string{"bin_a", "belt", "bin_b"})
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for three-name connection")
	}
	if !strings.Contains(err.Error(), "got 3 names") {
		t.Errorf("error should report the arity: %v", err)
	}
}

func TestValidate_SourceRequiresSplit_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components = append(m.Components, ComponentSpec{
		Name: "feed", Type: "source",
		Quantity: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 10}},
		Duration: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 5}},
	})
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for source without split")
	}
	if !strings.Contains(err.Error(), "split") {
		t.Errorf("error should mention the missing split: %v", err)
	}
}

func TestValidate_DumpingRejectsQuantity_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components = append(m.Components, ComponentSpec{
		Name: "tipper", Type: "dumping",
		Quantity: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 10}},
		Duration: &dist.Spec{Type: "constant", Params: map[string]float64{"value": 1}},
	})
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for dumping with a quantity distribution")
	}
	if !strings.Contains(err.Error(), "whole items") {
		t.Errorf("error should explain why quantity is rejected: %v", err)
	}
}

func TestValidate_StockRejectsProcessFields_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components[0].Duration = &dist.Spec{Type: "constant", Params: map[string]float64{"value": 1}}
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for duration on a stock")
	}
	if !strings.Contains(err.Error(), "duration is not a array-stock parameter") {
		t.Errorf("error should reject the misplaced field: %v", err)
	}
}

func TestValidate_QueueFractionalCapacity_ReturnsError(t *testing.T) {
	m := conveyorModel()
	m.Components = append(m.Components, ComponentSpec{
		Name: "bay", Type: "queue-stock", MaxCapacity: 2.5,
	})
	err := m.Validate()
	if err == nil {
		t.Fatal("expected error for fractional queue capacity")
	}
	if !strings.Contains(err.Error(), "whole number of items") {
		t.Errorf("error should require integral capacities: %v", err)
	}
}

func TestValidate_HorizonMustBePositive(t *testing.T) {
	for _, horizon := range []float64{0, -10} {
		m := conveyorModel()
		m.HorizonSecs = horizon
		if err := m.Validate(); err == nil {
			t.Errorf("horizon_secs = %f: expected error, got nil", horizon)
		}
	}
}

// TestValidate_ReportsAllErrors checks that independent problems in one
// file surface together instead of one at a time.
func TestValidate_ReportsAllErrors(t *testing.T) {
	m := conveyorModel()
	m.Components[0].Type = "grinder"
	m.Components[2].Loggers = []string{"ghost"}
	m.Connections = append(m.Connections, []string{"belt", "hopper"})

	err := m.Validate()
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"grinder", "ghost", "hopper"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error should mention %q: %v", want, err)
		}
	}
}
