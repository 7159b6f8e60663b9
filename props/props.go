// Package props maps the reaction-progress field to thermal material
// properties. Each property is either a constant or a two-phase blend
// between an unreacted (eta=0) and a reacted (eta=1) value.
package props

import (
	"github.com/jmreppsUWGrad/2D-Research/mesh"
)

// NumSpecies is the fixed number of species slots (Al, CuO, Al2O3, Cu).
const NumSpecies = 4

// SpeciesNames are the snapshot file labels for the species slots.
var SpeciesNames = [NumSpecies]string{"Al", "CuO", "Al2O3", "Cu"}

// Property is a resolved material property: Constant or TwoPhaseBlend.
// The variant is decided once at configuration load, never re-parsed.
type Property struct {
	blend  bool
	v0, v1 float64
}

// Constant returns a property fixed at v for any reaction progress.
func Constant(v float64) Property { return Property{v0: v, v1: v} }

// TwoPhaseBlend returns a property interpolating between the unreacted
// value v0 and the fully reacted value v1.
func TwoPhaseBlend(v0, v1 float64) Property { return Property{blend: true, v0: v0, v1: v1} }

// Blended reports whether the property varies with reaction progress.
func (p Property) Blended() bool { return p.blend }

// Endpoints returns the unreacted and reacted values.
func (p Property) Endpoints() (v0, v1 float64) { return p.v0, p.v1 }

// linear evaluates eta*v1 + (1-eta)*v0 at each node.
func (p Property) linear(eta *mesh.Grid) *mesh.Grid {
	out := mesh.NewGrid(eta.Nx(), eta.Ny())
	src := eta.Data()
	dst := out.Data()
	for i, e := range src {
		dst[i] = e*p.v1 + (1-e)*p.v0
	}
	return out
}

// harmonic evaluates (eta/v1 + (1-eta)/v0)^-1 at each node. Series
// thermal resistance: must not be replaced by a linear average.
func (p Property) harmonic(eta *mesh.Grid) *mesh.Grid {
	out := mesh.NewGrid(eta.Nx(), eta.Ny())
	src := eta.Data()
	dst := out.Data()
	for i, e := range src {
		dst[i] = 1 / (e/p.v1 + (1-e)/p.v0)
	}
	return out
}

// broadcast fills a grid with the constant value.
func (p Property) broadcast(eta *mesh.Grid) *mesh.Grid {
	return mesh.NewGridValue(eta.Nx(), eta.Ny(), p.v0)
}

// Model evaluates all material properties for the current state.
type Model struct {
	K   Property // thermal conductivity
	Rho Property // density
	Cv  Property // heat capacity
}

// Conductivity returns k at each node. Blends harmonically.
func (m Model) Conductivity(eta *mesh.Grid) *mesh.Grid {
	if m.K.blend {
		return m.K.harmonic(eta)
	}
	return m.K.broadcast(eta)
}

// Density returns rho at each node. Blends linearly.
func (m Model) Density(eta *mesh.Grid) *mesh.Grid {
	if m.Rho.blend {
		return m.Rho.linear(eta)
	}
	return m.Rho.broadcast(eta)
}

// HeatCapacity returns Cv at each node. Blends linearly.
func (m Model) HeatCapacity(eta *mesh.Grid) *mesh.Grid {
	if m.Cv.blend {
		return m.Cv.linear(eta)
	}
	return m.Cv.broadcast(eta)
}

// Diffusivity returns the species mass-diffusion coefficients, one grid
// per species slot. All entries are zero: the model deliberately carries
// no species diffusion.
func (m Model) Diffusivity(eta *mesh.Grid) [NumSpecies]*mesh.Grid {
	var out [NumSpecies]*mesh.Grid
	for i := range out {
		out[i] = mesh.NewGrid(eta.Nx(), eta.Ny())
	}
	return out
}

// TempFromConserved derives temperature from conserved energy using
// properties recomputed from the current eta, never cached ones.
func (m Model) TempFromConserved(E, eta, vol *mesh.Grid) *mesh.Grid {
	rho := m.Density(eta)
	cv := m.HeatCapacity(eta)
	out := mesh.NewGrid(E.Nx(), E.Ny())
	e, r, c, v, dst := E.Data(), rho.Data(), cv.Data(), vol.Data(), out.Data()
	for i := range dst {
		dst[i] = e[i] / (c[i] * r[i] * v[i])
	}
	return out
}

// ConservedFromTemp initializes conserved energy from temperature, the
// exact algebraic inverse of TempFromConserved for the same state.
func (m Model) ConservedFromTemp(T, eta, vol *mesh.Grid) *mesh.Grid {
	rho := m.Density(eta)
	cv := m.HeatCapacity(eta)
	out := mesh.NewGrid(T.Nx(), T.Ny())
	t, r, c, v, dst := T.Data(), rho.Data(), cv.Data(), vol.Data(), out.Data()
	for i := range dst {
		dst[i] = r[i] * v[i] * c[i] * t[i]
	}
	return out
}
