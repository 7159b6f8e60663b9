package config

import (
	"strings"
	"testing"
)

const validYAML = `
length: 1.0
width: 1.0
nodes_x: 60
nodes_y: 30
bias_type_x: TwoWayEnd
bias_size_x: 0.005
k: {blend: [65, 216]}
rho: 3065
cp: {blend: [600, 900]}
total_time_steps: 1000
number_data_output: 10
workers: 4
initial_temp: 293
ignition: {field: eta, threshold: 0.8}
species:
  - {name: Al, initial_mass: 0.2}
  - {name: CuO, initial_mass: 0.8}
bc_north: {type: fixed_temp, value: 300}
bc_south: {type: flux, value: 0}
bc_east: {type: convective, h: 10, t_inf: 300}
bc_west: {type: flux, value: 400000}
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NodesX != 60 || cfg.NodesY != 30 {
		t.Errorf("nodes = %dx%d, want 60x30", cfg.NodesX, cfg.NodesY)
	}
	if !cfg.K.Resolved.Blended() {
		t.Error("k should be a two-phase blend")
	}
	if v0, v1 := cfg.K.Resolved.Endpoints(); v0 != 65 || v1 != 216 {
		t.Errorf("k endpoints = %v, %v, want 65, 216", v0, v1)
	}
	if cfg.Rho.Resolved.Blended() {
		t.Error("rho should be constant")
	}
	if cfg.TotalTimeSteps == nil || *cfg.TotalTimeSteps != 1000 {
		t.Error("total_time_steps not parsed")
	}
	steps, byStep := cfg.StepBudget()
	if !byStep || steps != 1000 {
		t.Errorf("StepBudget = %d, %v", steps, byStep)
	}
	if cfg.BCs.East.Type != BCConvective || cfg.BCs.East.H != 10 {
		t.Errorf("east BC not parsed: %+v", cfg.BCs.East)
	}
	if cfg.BCs.West.Type != BCFlux || cfg.BCs.West.Value != 400000 {
		t.Errorf("west BC not parsed: %+v", cfg.BCs.West)
	}
	if cfg.Ignition.Field != "eta" || cfg.Ignition.Threshold != 0.8 {
		t.Errorf("ignition not parsed: %+v", cfg.Ignition)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
length: 1.0
width: 1.0
nodes_x: 5
nodes_y: 5
k: 65
rho: 1000
cp: 600
total_time: 0.5
number_data_output: 5
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 1 {
		t.Errorf("default workers = %d, want 1", cfg.Workers)
	}
	if cfg.InitialTemp != 300 {
		t.Errorf("default initial_temp = %v, want 300", cfg.InitialTemp)
	}
	if cfg.TimeBudget() != 0.5 {
		t.Errorf("TimeBudget = %v, want 0.5", cfg.TimeBudget())
	}
}

func TestValidationErrors(t *testing.T) {
	base := `
length: 1.0
width: 1.0
nodes_x: 5
nodes_y: 5
k: 65
rho: 1000
cp: 600
`
	cases := []struct {
		name  string
		extra string
		want  string
	}{
		{"no_budget", "", "total_time"},
		{"both_budgets", "total_time: 1.0\ntotal_time_steps: 10\n", "total_time"},
		{"bad_bias", "total_time: 1.0\nbias_type_x: Cosine\n", "bias_type_x"},
		{"bad_ignition", "total_time: 1.0\nignition: {field: pressure, threshold: 1}\n", "ignition"},
		{"bad_threshold", "total_time: 1.0\nignition: {field: temp, threshold: -5}\n", "threshold"},
		{"bad_workers", "total_time: 1.0\nworkers: 0\n", "workers"},
		{"bad_bc_type", "total_time: 1.0\nbc_north: {type: fixed, value: 300}\n", "bc_north"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(base + tc.extra))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseNonPositiveProperty(t *testing.T) {
	cases := []struct {
		name string
		prop string
		want string
	}{
		{"negative_k", "k: -1\nrho: 1000\ncp: 600\n", "k"},
		{"zero_rho", "k: 65\nrho: 0\ncp: 600\n", "rho"},
		{"bad_blend_endpoint", "k: 65\nrho: 1000\ncp: {blend: [600, -900]}\n", "cp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := "length: 1.0\nwidth: 1.0\nnodes_x: 5\nnodes_y: 5\ntotal_time: 1\n" + tc.prop
			_, err := Parse([]byte(raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestAdiabaticDefaultBCs(t *testing.T) {
	// Omitted edges are adiabatic walls; only unknown kinds are fatal.
	cfg, err := Parse([]byte("length: 1.0\nwidth: 1.0\nnodes_x: 5\nnodes_y: 5\nk: 65\nrho: 1000\ncp: 600\ntotal_time: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BCs.North.Type != "" || cfg.BCs.West.Type != "" {
		t.Errorf("omitted BCs should stay empty: %+v", cfg.BCs)
	}
}

func TestParseBadBlend(t *testing.T) {
	_, err := Parse([]byte("length: 1.0\nwidth: 1.0\nnodes_x: 5\nnodes_y: 5\nk: {blend: [1, 2, 3]}\nrho: 1\ncp: 1\ntotal_time: 1\n"))
	if err == nil || !strings.Contains(err.Error(), "blend") {
		t.Fatalf("expected blend arity error, got %v", err)
	}
}

func TestParseBadNodeCounts(t *testing.T) {
	if _, err := Parse([]byte("length: 1.0\nwidth: 1.0\nnodes_x: 2\nnodes_y: 5\nk: 1\nrho: 1\ncp: 1\ntotal_time: 1\n")); err == nil {
		t.Fatal("expected error for 2 nodes")
	}
}
