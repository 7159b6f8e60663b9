// Package decomp partitions the global mesh into a near-square grid of
// worker tiles and slices geometry and field state into per-tile local
// arrays with one-cell ghost halos toward live neighbors.
package decomp

import (
	"errors"
	"fmt"
	"math"

	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
)

// Edge marks a tile side facing the physical domain boundary rather
// than another worker.
const Edge = -1

// ErrBadDecomposition is returned when the worker count cannot tile the
// requested mesh.
var ErrBadDecomposition = errors.New("decomp: worker count cannot tile the mesh")

// Tile is one worker's contiguous window of the global mesh.
// The index windows are half-open: x in [I0,I1), y in [J0,J1).
type Tile struct {
	Rank, Row, Col int
	I0, I1         int
	J0, J1         int
	// Neighbor ranks, or Edge where the side is a physical boundary.
	Left, Right, Top, Bottom int
}

// Layout is the full worker arrangement over the mesh.
type Layout struct {
	Rows, Cols int
	Nx, Ny     int
	Tiles      []Tile
}

// Partition arranges workers into the rows-by-cols grid closest to
// square whose product equals the worker count, then checks the node
// counts tile evenly with at least 2 interior nodes per tile axis.
func Partition(nx, ny, workers int) (*Layout, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d workers", ErrBadDecomposition, workers)
	}
	// Largest divisor pair straddling the square root.
	rows := 1
	for r := int(math.Sqrt(float64(workers))); r >= 1; r-- {
		if workers%r == 0 {
			rows = r
			break
		}
	}
	cols := workers / rows
	if nx%cols != 0 || ny%rows != 0 {
		return nil, fmt.Errorf("%w: %dx%d nodes across %dx%d workers", ErrBadDecomposition, nx, ny, cols, rows)
	}
	tw, th := nx/cols, ny/rows
	if tw < 2 || th < 2 {
		return nil, fmt.Errorf("%w: tile of %dx%d interior nodes is too small", ErrBadDecomposition, tw, th)
	}

	l := &Layout{Rows: rows, Cols: cols, Nx: nx, Ny: ny, Tiles: make([]Tile, workers)}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			rank := row*cols + col
			t := Tile{
				Rank: rank, Row: row, Col: col,
				I0: col * tw, I1: (col + 1) * tw,
				J0: row * th, J1: (row + 1) * th,
				Left: Edge, Right: Edge, Top: Edge, Bottom: Edge,
			}
			if col > 0 {
				t.Left = rank - 1
			}
			if col < cols-1 {
				t.Right = rank + 1
			}
			if row > 0 {
				t.Bottom = rank - cols
			}
			if row < rows-1 {
				t.Top = rank + cols
			}
			l.Tiles[rank] = t
		}
	}
	return l, nil
}

// Global bundles the decomposition-invariant geometry and the initial
// field state sliced to each worker.
type Global struct {
	Mesh          *mesh.Mesh
	Vol           *mesh.Grid
	AxL, AxR, Ay  *mesh.Grid
	E, Eta, MZero *mesh.Grid
	Species       [props.NumSpecies]*mesh.Grid
}

// Local is a worker tile's in-memory state: local geometry slices and
// field arrays sized with a one-cell halo on each side facing a live
// neighbor. Field arrays are mutated by ghost exchange (halo) and the
// advance operation (interior); geometry is never mutated.
type Local struct {
	Tile   Tile
	Nx, Ny int // local extents including halos
	// Halo presence per side (1 when a live neighbor exists, else 0);
	// they double as the interior offset into the local arrays.
	HL, HR, HB, HT int

	Dx, Dy []float64

	Vol, AxL, AxR, Ay *mesh.Grid
	E, Eta, MZero     *mesh.Grid
	Species           [props.NumSpecies]*mesh.Grid
}

// Slice carves a worker's local state out of the global arrays.
func Slice(t Tile, g Global) *Local {
	l := &Local{Tile: t}
	if t.Left != Edge {
		l.HL = 1
	}
	if t.Right != Edge {
		l.HR = 1
	}
	if t.Bottom != Edge {
		l.HB = 1
	}
	if t.Top != Edge {
		l.HT = 1
	}
	ix0, ix1 := t.I0-l.HL, t.I1+l.HR
	iy0, iy1 := t.J0-l.HB, t.J1+l.HT
	l.Nx, l.Ny = ix1-ix0, iy1-iy0

	l.Dx = append([]float64(nil), g.Mesh.X.Width[ix0:ix1]...)
	l.Dy = append([]float64(nil), g.Mesh.Y.Width[iy0:iy1]...)

	l.Vol = g.Vol.SubGrid(ix0, ix1, iy0, iy1)
	l.AxL = g.AxL.SubGrid(ix0, ix1, iy0, iy1)
	l.AxR = g.AxR.SubGrid(ix0, ix1, iy0, iy1)
	l.Ay = g.Ay.SubGrid(ix0, ix1, iy0, iy1)
	l.E = g.E.SubGrid(ix0, ix1, iy0, iy1)
	l.Eta = g.Eta.SubGrid(ix0, ix1, iy0, iy1)
	l.MZero = g.MZero.SubGrid(ix0, ix1, iy0, iy1)
	for i := range l.Species {
		l.Species[i] = g.Species[i].SubGrid(ix0, ix1, iy0, iy1)
	}
	return l
}

// OwnedNx returns the tile's owned (halo-free) extent along x.
func (l *Local) OwnedNx() int { return l.Nx - l.HL - l.HR }

// OwnedNy returns the tile's owned (halo-free) extent along y.
func (l *Local) OwnedNy() int { return l.Ny - l.HB - l.HT }

// Owned copies the halo-free window of a local field.
func (l *Local) Owned(g *mesh.Grid) *mesh.Grid {
	return g.SubGrid(l.HL, l.Nx-l.HR, l.HB, l.Ny-l.HT)
}

// Fields lists the evolved field arrays in exchange order: E, eta, then
// the species masses. Ghost exchange and gathers iterate this.
func (l *Local) Fields() []*mesh.Grid {
	out := []*mesh.Grid{l.E, l.Eta}
	for i := range l.Species {
		out = append(out, l.Species[i])
	}
	return out
}
