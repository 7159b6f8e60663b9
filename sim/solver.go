// Package sim drives the distributed time-marching loop: one worker
// goroutine per mesh tile advancing in lock-step, exchanging ghost
// layers every step and agreeing on errors, output, and the one-time
// ignition boundary-condition switch through collective reductions.
package sim

import (
	"math"

	"github.com/jmreppsUWGrad/2D-Research/config"
	"github.com/jmreppsUWGrad/2D-Research/decomp"
	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
)

// Error codes surfaced by the advance operation. A non-zero code on any
// worker is fatal for the whole run.
const (
	CodeOK             = 0
	CodeTimeStep       = 1 // time-step instability
	CodeEnergyBalance  = 2 // energy balance violation
	CodeEtaBalance     = 3 // reaction-progress balance violation
	CodeSpeciesBalance = 4 // species balance violation
)

// CodeLegend is the error-code key printed with abort diagnostics.
const CodeLegend = "Error codes: 1-time step, 2-Energy, 3-reaction progress, 4-Species balance"

// Solver is the per-node physics collaborator. StableStep reports the
// largest step size the tile's current state tolerates; the controller
// reduces those to one global minimum and hands the agreed dt to
// Advance, which integrates the tile's interior one step assuming ghost
// cells hold the neighbors' previous-step boundary values. Every tile
// must integrate with the same dt or the coupled state drifts apart
// across ghost layers.
type Solver interface {
	StableStep(tile *decomp.Local) float64
	Advance(tile *decomp.Local, bcs config.BCSet, dt float64) (code int)
}

// ExplicitConduction is the reference Solver: an explicit finite-volume
// conduction update of the conserved energy with a stability-limited
// time step. Reaction progress and species masses are left to richer
// solvers; this one only conducts heat.
type ExplicitConduction struct {
	Model props.Model
	// Safety factor on the stability limit; 0 means 0.9.
	Factor float64
}

// StableStep returns the smallest thermal time constant of any owned
// control volume against its face conductances, scaled by the safety
// factor.
func (s ExplicitConduction) StableStep(l *decomp.Local) float64 {
	k := s.Model.Conductivity(l.Eta)
	rho := s.Model.Density(l.Eta)
	cv := s.Model.HeatCapacity(l.Eta)

	factor := s.Factor
	if factor == 0 {
		factor = 0.9
	}

	dt := math.Inf(1)
	for iy := l.HB; iy < l.Ny-l.HT; iy++ {
		for ix := l.HL; ix < l.Nx-l.HR; ix++ {
			g := s.conductance(l, k, ix, iy)
			if g > 0 {
				if tau := rho.At(ix, iy) * cv.At(ix, iy) * l.Vol.At(ix, iy) / g; tau < dt {
					dt = tau
				}
			}
		}
	}
	return dt * factor
}

// Advance performs one explicit conduction step of size dt over the
// owned nodes.
func (s ExplicitConduction) Advance(l *decomp.Local, bcs config.BCSet, dt float64) int {
	if !(dt > 1e-14) || math.IsInf(dt, 0) {
		return CodeTimeStep
	}

	T := s.Model.TempFromConserved(l.E, l.Eta, l.Vol)
	k := s.Model.Conductivity(l.Eta)
	rho := s.Model.Density(l.Eta)
	cv := s.Model.HeatCapacity(l.Eta)

	ix0, ix1 := l.HL, l.Nx-l.HR
	iy0, iy1 := l.HB, l.Ny-l.HT

	next := l.E.Clone()
	for iy := iy0; iy < iy1; iy++ {
		for ix := ix0; ix < ix1; ix++ {
			var q float64
			if ix > 0 {
				q += faceCond(k.At(ix-1, iy), k.At(ix, iy)) * l.AxL.At(ix, iy) / l.Dx[ix-1] * (T.At(ix-1, iy) - T.At(ix, iy))
			}
			if ix < l.Nx-1 {
				q += faceCond(k.At(ix, iy), k.At(ix+1, iy)) * l.AxR.At(ix, iy) / l.Dx[ix] * (T.At(ix+1, iy) - T.At(ix, iy))
			}
			if iy > 0 {
				q += faceCond(k.At(ix, iy-1), k.At(ix, iy)) * l.Ay.At(ix, iy) / l.Dy[iy-1] * (T.At(ix, iy-1) - T.At(ix, iy))
			}
			if iy < l.Ny-1 {
				q += faceCond(k.At(ix, iy), k.At(ix, iy+1)) * l.Ay.At(ix, iy) / l.Dy[iy] * (T.At(ix, iy+1) - T.At(ix, iy))
			}
			next.Add(ix, iy, q*dt)
		}
	}

	s.applyBCs(l, bcs, T, rho, cv, next, dt)

	for iy := iy0; iy < iy1; iy++ {
		for ix := ix0; ix < ix1; ix++ {
			e := next.At(ix, iy)
			if math.IsNaN(e) || e <= 0 {
				return CodeEnergyBalance
			}
		}
	}
	for iy := iy0; iy < iy1; iy++ {
		copy(l.E.Row(iy)[ix0:ix1], next.Row(iy)[ix0:ix1])
	}
	return CodeOK
}

// conductance sums the face conductances k*A/d around one node.
func (s ExplicitConduction) conductance(l *decomp.Local, k *mesh.Grid, ix, iy int) float64 {
	var g float64
	if ix > 0 {
		g += faceCond(k.At(ix-1, iy), k.At(ix, iy)) * l.AxL.At(ix, iy) / l.Dx[ix-1]
	}
	if ix < l.Nx-1 {
		g += faceCond(k.At(ix, iy), k.At(ix+1, iy)) * l.AxR.At(ix, iy) / l.Dx[ix]
	}
	if iy > 0 {
		g += faceCond(k.At(ix, iy-1), k.At(ix, iy)) * l.Ay.At(ix, iy) / l.Dy[iy-1]
	}
	if iy < l.Ny-1 {
		g += faceCond(k.At(ix, iy), k.At(ix, iy+1)) * l.Ay.At(ix, iy) / l.Dy[iy]
	}
	return g
}

// applyBCs folds the physical-edge boundary conditions into the owned
// boundary nodes. Sides with a live neighbor are interior to the global
// domain and get no boundary treatment.
func (s ExplicitConduction) applyBCs(l *decomp.Local, bcs config.BCSet, T, rho, cv, next *mesh.Grid, dt float64) {
	t := l.Tile
	if t.Left == decomp.Edge {
		for iy := l.HB; iy < l.Ny-l.HT; iy++ {
			s.applyBC(l, bcs.West, T, rho, cv, next, 0, iy, l.AxL.At(0, iy), dt)
		}
	}
	if t.Right == decomp.Edge {
		for iy := l.HB; iy < l.Ny-l.HT; iy++ {
			s.applyBC(l, bcs.East, T, rho, cv, next, l.Nx-1, iy, l.AxR.At(l.Nx-1, iy), dt)
		}
	}
	if t.Bottom == decomp.Edge {
		for ix := l.HL; ix < l.Nx-l.HR; ix++ {
			s.applyBC(l, bcs.South, T, rho, cv, next, ix, 0, l.Ay.At(ix, 0), dt)
		}
	}
	if t.Top == decomp.Edge {
		for ix := l.HL; ix < l.Nx-l.HR; ix++ {
			s.applyBC(l, bcs.North, T, rho, cv, next, ix, l.Ny-1, l.Ay.At(ix, l.Ny-1), dt)
		}
	}
}

func (s ExplicitConduction) applyBC(l *decomp.Local, bc config.BC, T, rho, cv, next *mesh.Grid, ix, iy int, area, dt float64) {
	// An empty type is an adiabatic wall; config.Validate rejects any
	// other unrecognized kind at startup.
	switch bc.Type {
	case config.BCFixedTemp:
		next.Set(ix, iy, rho.At(ix, iy)*l.Vol.At(ix, iy)*cv.At(ix, iy)*bc.Value)
	case config.BCFlux:
		next.Add(ix, iy, bc.Value*area*dt)
	case config.BCConvective:
		next.Add(ix, iy, bc.H*(bc.TInf-T.At(ix, iy))*area*dt)
	}
}

// faceCond is the harmonic-mean conductivity of two adjacent nodes.
func faceCond(ka, kb float64) float64 {
	if ka == 0 || kb == 0 {
		return 0
	}
	return 2 * ka * kb / (ka + kb)
}
