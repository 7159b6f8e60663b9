package sim

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmreppsUWGrad/2D-Research/comm"
	"github.com/jmreppsUWGrad/2D-Research/config"
	"github.com/jmreppsUWGrad/2D-Research/decomp"
	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
	"github.com/jmreppsUWGrad/2D-Research/snapshot"
)

// Params assembles an Engine. NewSolver may be nil, in which case every
// worker gets the reference ExplicitConduction solver.
type Params struct {
	Config    config.Config
	Store     *snapshot.Store
	Log       *log.Logger
	NewSolver func(rank int) Solver
}

// Result is the rank-0 summary of a finished run.
type Result struct {
	Steps        int
	Time         float64
	FinalDt      float64
	IgnitionTime float64 // 0 when ignition never triggered
	WaveSpeed    float64 // 0 when no samples accumulated
	StepCost     time.Duration
	Code         int
	Aborted      bool
	BCsChanged   bool
}

// Engine owns the mesh, the decomposition, and one worker per tile.
type Engine struct {
	cfg     config.Config
	model   props.Model
	msh     *mesh.Mesh
	layout  *decomp.Layout
	cluster *comm.Cluster
	store   *snapshot.Store
	logger  *log.Logger
	workers []*worker
	t0      float64
}

type worker struct {
	rank   int
	local  *decomp.Local
	cm     *comm.Comm
	solver Solver
	// Per-worker boundary conditions; the ignition switch overwrites
	// North with the configured East condition on physical-top tiles.
	bcs       config.BCSet
	bcChanged bool
}

// New builds the global mesh and geometry, applies restart state when
// requested, decomposes the domain, and wires the workers. The initial
// state snapshot and coordinate fields are persisted before it returns.
func New(p Params) (*Engine, error) {
	cfg := p.Config
	ax, err := mesh.NewAxis(cfg.Length, cfg.NodesX, cfg.BiasTypeX, cfg.BiasSizeX)
	if err != nil {
		return nil, err
	}
	ay, err := mesh.NewAxis(cfg.Width, cfg.NodesY, cfg.BiasTypeY, cfg.BiasSizeY)
	if err != nil {
		return nil, err
	}
	m := mesh.New(ax, ay)

	layout, err := decomp.Partition(cfg.NodesX, cfg.NodesY, cfg.Workers)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		model:   cfg.Model(),
		msh:     m,
		layout:  layout,
		cluster: comm.NewCluster(layout),
		store:   p.Store,
		logger:  p.Log,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	g := decomp.Global{Mesh: m, Vol: m.CVArea()}
	g.AxL, g.AxR, g.Ay = m.FaceAreas()

	T := mesh.NewGridValue(m.Nx(), m.Ny(), cfg.InitialTemp)
	g.Eta = mesh.NewGrid(m.Nx(), m.Ny())
	g.MZero = mesh.NewGrid(m.Nx(), m.Ny())
	for i := range g.Species {
		ic := 0.0
		if i < len(cfg.Species) {
			ic = cfg.Species[i].InitialMass
		}
		g.Species[i] = speciesInit(m.Nx(), m.Ny(), ic)
		for j, v := range g.Species[i].Data() {
			g.MZero.Data()[j] += v
		}
	}

	if cfg.Restart != "" {
		tag, err := e.store.Latest(cfg.Restart)
		if err != nil {
			return nil, err
		}
		st, err := e.store.Load(tag)
		if err != nil {
			return nil, err
		}
		if e.t0, err = snapshot.TagTime(tag); err != nil {
			return nil, err
		}
		for _, g := range append([]*mesh.Grid{st.T, st.Eta}, st.Species[:]...) {
			if g.Nx() != m.Nx() || g.Ny() != m.Ny() {
				return nil, fmt.Errorf("sim: restart snapshot %s is %dx%d, configured mesh is %dx%d",
					tag, g.Nx(), g.Ny(), m.Nx(), m.Ny())
			}
		}
		T = st.T
		g.Eta = st.Eta
		g.Species = st.Species
		e.logger.Printf("Restarting from snapshot %s (t=%g s)", tag, e.t0)
	}
	g.E = e.model.ConservedFromTemp(T, g.Eta, g.Vol)

	X, Y := m.Coords()
	if err := e.store.SaveCoords(X, Y); err != nil {
		return nil, err
	}
	if err := e.store.Save(snapshot.Tag(e.t0), snapshot.State{T: T, Eta: g.Eta, Species: g.Species}); err != nil {
		return nil, err
	}

	newSolver := p.NewSolver
	if newSolver == nil {
		newSolver = func(int) Solver { return ExplicitConduction{Model: e.model} }
	}
	for _, t := range layout.Tiles {
		e.workers = append(e.workers, &worker{
			rank:   t.Rank,
			local:  decomp.Slice(t, g),
			cm:     e.cluster.Comm(t.Rank),
			solver: newSolver(t.Rank),
			bcs:    cfg.BCs,
		})
	}
	return e, nil
}

// speciesInit fills a species mass grid with its initial value, halved
// along physical edges and quartered at corners so that node masses
// integrate consistently over the half and quarter control volumes.
func speciesInit(nx, ny int, ic float64) *mesh.Grid {
	g := mesh.NewGridValue(nx, ny, ic)
	for ix := 0; ix < nx; ix++ {
		g.Set(ix, 0, g.At(ix, 0)*0.5)
		g.Set(ix, ny-1, g.At(ix, ny-1)*0.5)
	}
	for iy := 0; iy < ny; iy++ {
		g.Set(0, iy, g.At(0, iy)*0.5)
		g.Set(nx-1, iy, g.At(nx-1, iy)*0.5)
	}
	return g
}

// Run executes the lock-step loop on every worker and returns the
// rank-0 summary once all workers have finished.
func (e *Engine) Run() (Result, error) {
	results := make([]Result, len(e.workers))
	var wg sync.WaitGroup
	for i, w := range e.workers {
		wg.Add(1)
		go func(i int, w *worker) {
			defer wg.Done()
			results[i] = e.runWorker(w)
		}(i, w)
	}
	wg.Wait()

	res := results[0]
	e.report(res)
	if res.Aborted {
		return res, fmt.Errorf("sim: aborted at step %d (t=%g s): error code %d", res.Steps, res.Time, res.Code)
	}
	return res, nil
}

// runWorker is the per-tile loop. Every collective below is executed by
// all workers in the same step; any divergence would deadlock, which is
// the intended failure mode of a broken schedule.
func (e *Engine) runWorker(w *worker) Result {
	cfg := e.cfg
	stepBudget, byStep := cfg.StepBudget()
	timeBudget := cfg.TimeBudget()

	var (
		t        = e.t0
		nt       = 0
		dt       float64
		tign     float64
		v0, vSum float64
		nV       int
	)

	// Output cadence: by step count or by elapsed-time crossing, never
	// both.
	outputNt, outputT, tInc := 0, 0.0, 0
	if byStep {
		// Zero disables periodic output when the budget is shorter than
		// the requested cadence; the final state is still persisted.
		outputNt = stepBudget / cfg.DataOutputs
	} else {
		outputT = timeBudget / float64(cfg.DataOutputs)
		tInc = int(t/outputT) + 1
	}

	started := time.Now()
	res := Result{}
	for nt < stepBudget && t < timeBudget {
		// First sample for the propagation-speed estimate.
		if cfg.Ignition.Field != "" && w.bcChanged {
			etaG := w.cm.Gather(w.local, w.local.Eta)
			if w.rank == 0 {
				v0 = transverseMidSum(etaG, e.msh.Y.Width)
			}
		}

		w.cm.ExchangeGhosts(w.local)
		// Agree on one step size before anyone integrates; a tile-local
		// dt would desynchronize the shared clock and every collective
		// keyed off it.
		dt = w.cm.MinReduceFloat(w.solver.StableStep(w.local))
		code := w.solver.Advance(w.local, w.bcs, dt)
		t += dt
		nt++

		code = w.cm.MaxReduceInt(code)
		if code != CodeOK {
			if w.rank == 0 {
				e.logger.Printf("#################### Solver aborted #######################")
				e.logger.Printf("Time step %d, Time elapsed=%f, error code=%d", nt, t, code)
				e.logger.Printf(CodeLegend)
			}
			e.saveState(w, t)
			res.Aborted = true
			res.Code = code
			break
		}

		if (outputNt != 0 && nt%outputNt == 0) ||
			(outputT != 0 && t >= outputT*float64(tInc) && t-dt < outputT*float64(tInc)) {
			e.saveState(w, t)
			tInc++
		}

		if cfg.Ignition.Field != "" {
			etaG := w.cm.Gather(w.local, w.local.Eta)
			TG := w.cm.Gather(w.local, e.model.TempFromConserved(w.local.E, w.local.Eta, w.local.Vol))

			ignited := false
			switch cfg.Ignition.Field {
			case "eta":
				ignited = etaG.Max() >= cfg.Ignition.Threshold
			case "temp":
				ignited = TG.Max() >= cfg.Ignition.Threshold
			}
			if ignited && !w.bcChanged {
				e.ignitionSwitch(w)
				if w.rank == 0 {
					tign = t
					e.logger.Printf("Ignition criterion met at t=%f ms; north boundary switched", t*1000)
				}
				e.saveState(w, t)
				w.bcChanged = w.cm.BroadcastBool(true)
			}

			// Second sample: accumulate the propagation speed when the
			// transverse-averaged reaction front moved.
			if w.bcChanged && w.rank == 0 {
				v1 := transverseMidSum(etaG, e.msh.Y.Width)
				if rate := (v1 - v0) / dt; rate > 1e-3 {
					vSum += rate
					nV++
				}
			}
		}
	}

	if !res.Aborted {
		e.saveState(w, t)
	}

	if w.rank == 0 {
		res.Steps = nt
		res.Time = t
		res.FinalDt = dt
		res.IgnitionTime = tign
		res.BCsChanged = w.bcChanged
		if nV > 0 {
			res.WaveSpeed = vSum / float64(nV)
		}
		if nt > 0 {
			res.StepCost = time.Since(started) / time.Duration(nt)
		}
	}
	return res
}

// ignitionSwitch is the single authoritative transition of the one-shot
// boundary-condition change: tiles owning the physical top edge replace
// their north condition with the configured east one. Every worker
// invokes it in the same step; only edge owners mutate state.
func (e *Engine) ignitionSwitch(w *worker) {
	if w.local.Tile.Top == decomp.Edge {
		w.bcs.North = e.cfg.BCs.East
	}
}

// saveState gathers the full-domain fields and persists them on rank 0.
// Collective: every worker must call it in the same step.
func (e *Engine) saveState(w *worker, t float64) {
	st := snapshot.State{
		T:   w.cm.Gather(w.local, e.model.TempFromConserved(w.local.E, w.local.Eta, w.local.Vol)),
		Eta: w.cm.Gather(w.local, w.local.Eta),
	}
	for i := range w.local.Species {
		st.Species[i] = w.cm.Gather(w.local, w.local.Species[i])
	}
	if w.rank == 0 {
		if err := e.store.Save(snapshot.Tag(t), st); err != nil {
			e.logger.Printf("snapshot save failed at t=%f: %v", t, err)
		}
	}
}

// transverseMidSum integrates reaction progress along the mid-length
// column, weighting each node by its y element width.
func transverseMidSum(eta *mesh.Grid, dy []float64) float64 {
	col := eta.Col(eta.Nx() / 2)
	var sum float64
	for iy, v := range col {
		sum += v * dy[iy]
	}
	return sum
}

// report prints the end-of-run summary on rank 0.
func (e *Engine) report(res Result) {
	e.logger.Printf("Final time step size: %f microseconds", res.FinalDt*1e6)
	e.logger.Printf("Ignition time: %f ms", res.IgnitionTime*1000)
	if res.Steps > 0 {
		e.logger.Printf("Solver time per 1000 time steps: %f min",
			res.StepCost.Minutes()*1000)
	}
	e.logger.Printf("Number of time steps completed: %d", res.Steps)
	e.logger.Printf("Average wave speed: %f m/s", res.WaveSpeed)
}
