package sim

import (
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmreppsUWGrad/2D-Research/config"
	"github.com/jmreppsUWGrad/2D-Research/decomp"
	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
	"github.com/jmreppsUWGrad/2D-Research/snapshot"
)

// fakeSolver advances with a fixed stability limit and no physics,
// optionally forcing an error code at a given step or saturating
// reaction progress after a given step. One instance per worker; step
// counts are per tile.
type fakeSolver struct {
	dt       float64
	codeAt   map[int]int
	etaAfter int

	step int
}

func (f *fakeSolver) StableStep(l *decomp.Local) float64 { return f.dt }

func (f *fakeSolver) Advance(l *decomp.Local, bcs config.BCSet, dt float64) int {
	f.step++
	if f.etaAfter > 0 && f.step >= f.etaAfter {
		l.Eta.Fill(1)
	}
	if code, ok := f.codeAt[f.step]; ok {
		return code
	}
	return CodeOK
}

func quietLog() *log.Logger { return log.New(io.Discard, "", 0) }

func testConfig(nx, ny, workers, steps int) config.Config {
	flux0 := config.BC{Type: config.BCFlux, Value: 0}
	return config.Config{
		Length: 1, Width: 1,
		NodesX: nx, NodesY: ny,
		K:              config.PropertySpec{Resolved: props.Constant(65)},
		Rho:            config.PropertySpec{Resolved: props.Constant(1000)},
		Cp:             config.PropertySpec{Resolved: props.Constant(600)},
		TotalTimeSteps: &steps,
		DataOutputs:    1,
		Workers:        workers,
		InitialTemp:    300,
		BCs:            config.BCSet{North: flux0, South: flux0, East: flux0, West: flux0},
	}
}

func testStore(t *testing.T) (*snapshot.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := snapshot.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store, dir
}

func TestRunSingleStep(t *testing.T) {
	cfg := testConfig(5, 5, 1, 1)
	// Cadence longer than the run: no periodic snapshot fires.
	cfg.DataOutputs = 2
	store, _ := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(int) Solver { return &fakeSolver{dt: 1e-3} }})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 1 {
		t.Errorf("Steps = %d, want 1", res.Steps)
	}
	if math.Abs(res.Time-1e-3) > 1e-12 {
		t.Errorf("Time = %v, want 1e-3", res.Time)
	}
	if res.FinalDt != 1e-3 {
		t.Errorf("FinalDt = %v, want 1e-3", res.FinalDt)
	}
	if res.BCsChanged {
		t.Error("boundary conditions changed without an ignition criterion")
	}

	// Initial and final state only.
	tags, err := store.Tags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "0.000000" || tags[1] != "1.000000" {
		t.Errorf("snapshot tags = %v, want [0.000000 1.000000]", tags)
	}
}

func TestTimeCadenceSnapshots(t *testing.T) {
	// Power-of-two step and budget so the cadence crossings are exact.
	const dt = 1.0 / 1024
	total := 5 * dt
	cfg := testConfig(5, 5, 1, 0)
	cfg.TotalTimeSteps = nil
	cfg.TotalTime = &total
	cfg.DataOutputs = 5
	store, _ := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(int) Solver { return &fakeSolver{dt: dt} }})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 5 {
		t.Errorf("Steps = %d, want 5", res.Steps)
	}
	if res.Time != total {
		t.Errorf("Time = %v, want %v", res.Time, total)
	}
	if res.FinalDt != dt {
		t.Errorf("FinalDt = %v, want %v", res.FinalDt, dt)
	}
	// Initial state plus one snapshot per crossing; the final save at the
	// budget coincides with the fifth crossing.
	tags, err := store.Tags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 6 {
		t.Errorf("snapshot tags = %v, want 6 entries", tags)
	}
}

func TestWorkersAgreeOnTimeStep(t *testing.T) {
	// Tiles with different stability limits must advance the shared
	// clock with the global minimum; a time-budget run would otherwise
	// split the workers across different steps and stall the collectives.
	const base = 1.0 / 1024
	total := 4 * base
	cfg := testConfig(8, 8, 2, 0)
	cfg.TotalTimeSteps = nil
	cfg.TotalTime = &total
	cfg.DataOutputs = 4
	store, _ := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(rank int) Solver { return &fakeSolver{dt: base * float64(rank+1)} }})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalDt != base {
		t.Errorf("FinalDt = %v, want the tightest tile limit %v", res.FinalDt, base)
	}
	if res.Steps != 4 {
		t.Errorf("Steps = %d, want 4", res.Steps)
	}
	if res.Time != total {
		t.Errorf("Time = %v, want %v", res.Time, total)
	}
}

func TestIgnitionSwitchesNorthBC(t *testing.T) {
	cfg := testConfig(5, 5, 1, 3)
	cfg.Ignition = config.Ignition{Field: "eta", Threshold: 0.5}
	cfg.BCs.North = config.BC{Type: config.BCFixedTemp, Value: 400}
	cfg.BCs.East = config.BC{Type: config.BCConvective, H: 10, TInf: 300}
	store, _ := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(int) Solver { return &fakeSolver{dt: 1e-3, etaAfter: 1} }})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if !res.BCsChanged {
		t.Fatal("ignition criterion met but BCsChanged is false")
	}
	if math.Abs(res.IgnitionTime-1e-3) > 1e-12 {
		t.Errorf("IgnitionTime = %v, want 1e-3", res.IgnitionTime)
	}
	if got := e.workers[0].bcs.North; got != cfg.BCs.East {
		t.Errorf("north BC after ignition = %+v, want the east condition %+v", got, cfg.BCs.East)
	}
	if res.WaveSpeed <= 0 {
		t.Errorf("WaveSpeed = %v, want positive after the front filled the domain", res.WaveSpeed)
	}
}

func TestAbortOnErrorCode(t *testing.T) {
	cfg := testConfig(5, 5, 1, 10)
	store, dir := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(int) Solver {
			return &fakeSolver{dt: 1e-3, codeAt: map[int]int{3: CodeEtaBalance}}
		}})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err == nil {
		t.Fatal("expected an error from an aborted run")
	}
	if !res.Aborted || res.Code != CodeEtaBalance {
		t.Errorf("Aborted=%v Code=%d, want aborted with code %d", res.Aborted, res.Code, CodeEtaBalance)
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}
	// The state at the failed step is persisted for post-mortems.
	if _, err := os.Stat(filepath.Join(dir, "T_3.000000.npy")); err != nil {
		t.Errorf("abort snapshot missing: %v", err)
	}
}

func TestConductionEquilibrium(t *testing.T) {
	// A uniform-temperature insulated domain must stay at its initial
	// temperature under the reference solver, across multiple workers.
	cfg := testConfig(8, 8, 4, 5)
	store, _ := testStore(t)

	e, err := New(Params{Config: cfg, Store: store, Log: quietLog()})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 5 {
		t.Errorf("Steps = %d, want 5", res.Steps)
	}
	if !(res.FinalDt > 0) {
		t.Errorf("FinalDt = %v, want positive stability-limited step", res.FinalDt)
	}

	tags, err := store.Tags()
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Load(tags[len(tags)-1])
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range st.T.Data() {
		if math.Abs(v-300) > 1e-9 {
			t.Fatalf("final T[%d] = %v, want 300", i, v)
		}
	}
}

func TestRestartResumesTime(t *testing.T) {
	store, _ := testStore(t)
	st := snapshot.State{
		T:   mesh.NewGridValue(5, 5, 350),
		Eta: mesh.NewGrid(5, 5),
	}
	for i := range st.Species {
		st.Species[i] = mesh.NewGrid(5, 5)
	}
	if err := store.Save(snapshot.Tag(0.002), st); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(5, 5, 1, 1)
	cfg.Restart = "2"
	e, err := New(Params{Config: cfg, Store: store, Log: quietLog(),
		NewSolver: func(int) Solver { return &fakeSolver{dt: 1e-3} }})
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Time-0.003) > 1e-12 {
		t.Errorf("Time = %v, want 0.003 (restart offset plus one step)", res.Time)
	}
}

func TestRestartDimensionMismatch(t *testing.T) {
	store, _ := testStore(t)
	st := snapshot.State{
		T:   mesh.NewGridValue(4, 4, 350),
		Eta: mesh.NewGrid(4, 4),
	}
	for i := range st.Species {
		st.Species[i] = mesh.NewGrid(4, 4)
	}
	if err := store.Save(snapshot.Tag(0.002), st); err != nil {
		t.Fatal(err)
	}

	// Configured mesh is 5x5; the saved state must be rejected, not
	// sliced.
	cfg := testConfig(5, 5, 1, 1)
	cfg.Restart = "2"
	if _, err := New(Params{Config: cfg, Store: store, Log: quietLog()}); err == nil {
		t.Fatal("expected an error for a restart snapshot of the wrong shape")
	}
}

func TestRestartMissingSnapshot(t *testing.T) {
	store, _ := testStore(t)
	cfg := testConfig(5, 5, 1, 1)
	cfg.Restart = "5"
	if _, err := New(Params{Config: cfg, Store: store, Log: quietLog()}); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}
