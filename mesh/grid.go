package mesh

import "gonum.org/v1/gonum/floats"

// Grid is a dense 2D field over the mesh nodes, stored row-major with
// row index = y and column index = x. All accessors name their axis so
// callers cannot silently transpose the two.
type Grid struct {
	nx, ny int
	data   []float64
}

// NewGrid allocates a zeroed nx-by-ny field.
func NewGrid(nx, ny int) *Grid {
	return &Grid{nx: nx, ny: ny, data: make([]float64, nx*ny)}
}

// NewGridValue allocates a field with every node set to v.
func NewGridValue(nx, ny int, v float64) *Grid {
	g := NewGrid(nx, ny)
	g.Fill(v)
	return g
}

func (g *Grid) Nx() int { return g.nx }
func (g *Grid) Ny() int { return g.ny }

// At returns the value at column ix, row iy.
func (g *Grid) At(ix, iy int) float64 { return g.data[iy*g.nx+ix] }

// Set stores v at column ix, row iy.
func (g *Grid) Set(ix, iy int, v float64) { g.data[iy*g.nx+ix] = v }

// Add accumulates v at column ix, row iy.
func (g *Grid) Add(ix, iy int, v float64) { g.data[iy*g.nx+ix] += v }

// Row returns the backing slice for row iy. Writes through the slice
// mutate the grid.
func (g *Grid) Row(iy int) []float64 { return g.data[iy*g.nx : (iy+1)*g.nx] }

// Col copies column ix into a fresh slice of length Ny.
func (g *Grid) Col(ix int) []float64 {
	out := make([]float64, g.ny)
	for iy := 0; iy < g.ny; iy++ {
		out[iy] = g.data[iy*g.nx+ix]
	}
	return out
}

// SetCol writes vals (length Ny) into column ix.
func (g *Grid) SetCol(ix int, vals []float64) {
	for iy := 0; iy < g.ny; iy++ {
		g.data[iy*g.nx+ix] = vals[iy]
	}
}

// Fill sets every node to v.
func (g *Grid) Fill(v float64) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.nx, g.ny)
	copy(out.data, g.data)
	return out
}

// Data exposes the backing row-major slice.
func (g *Grid) Data() []float64 { return g.data }

// Max returns the largest node value.
func (g *Grid) Max() float64 { return floats.Max(g.data) }

// Sum returns the sum over all nodes.
func (g *Grid) Sum() float64 { return floats.Sum(g.data) }

// SubGrid copies the window [ix0:ix1, iy0:iy1) into a new grid.
func (g *Grid) SubGrid(ix0, ix1, iy0, iy1 int) *Grid {
	out := NewGrid(ix1-ix0, iy1-iy0)
	for iy := iy0; iy < iy1; iy++ {
		copy(out.Row(iy-iy0), g.Row(iy)[ix0:ix1])
	}
	return out
}

// SetSubGrid writes src into the window anchored at (ix0, iy0).
func (g *Grid) SetSubGrid(ix0, iy0 int, src *Grid) {
	for iy := 0; iy < src.ny; iy++ {
		copy(g.Row(iy0+iy)[ix0:ix0+src.nx], src.Row(iy))
	}
}
