// Package mesh builds the non-uniform structured grid the solver runs
// on: 1D axis discretizations with optional biasing, node coordinate
// fields, and the control-volume geometry derived from them.
package mesh

// Mesh is the global 2D structured grid, the outer product of two axes.
// It is built once before decomposition and never mutated.
type Mesh struct {
	X *Axis // along the length (columns)
	Y *Axis // along the width (rows)
}

// New combines two discretized axes into a mesh.
func New(x, y *Axis) *Mesh { return &Mesh{X: x, Y: y} }

// Nx returns the node count along x.
func (m *Mesh) Nx() int { return m.X.N }

// Ny returns the node count along y.
func (m *Mesh) Ny() int { return m.Y.N }

// Coords returns the 2D node coordinate fields (outer-product meshgrid).
func (m *Mesh) Coords() (X, Y *Grid) {
	X = NewGrid(m.Nx(), m.Ny())
	Y = NewGrid(m.Nx(), m.Ny())
	for iy := 0; iy < m.Ny(); iy++ {
		for ix := 0; ix < m.Nx(); ix++ {
			X.Set(ix, iy, m.X.Coord[ix])
			Y.Set(ix, iy, m.Y.Coord[iy])
		}
	}
	return X, Y
}

// CVArea returns the finite-volume area around each node: the product
// of the control-volume extents in each axis. Interior nodes collect
// quarter contributions from the four surrounding half-cells; edge and
// corner nodes omit the half-widths falling outside the domain. Pure
// function of the width arrays, independent of any decomposition.
func (m *Mesh) CVArea() *Grid {
	wx := m.X.CVWidths()
	wy := m.Y.CVWidths()
	vol := NewGrid(m.Nx(), m.Ny())
	for iy := 0; iy < m.Ny(); iy++ {
		for ix := 0; ix < m.Nx(); ix++ {
			vol.Set(ix, iy, wx[ix]*wy[iy])
		}
	}
	return vol
}

// FaceAreas returns the flux-face area fields consumed by the solver:
// axL and axR are the left/right x-face areas (the control-volume
// extent in y), ay the y-face areas (the extent in x). In 2D a face
// "area" is a length.
func (m *Mesh) FaceAreas() (axL, axR, ay *Grid) {
	wx := m.X.CVWidths()
	wy := m.Y.CVWidths()
	axL = NewGrid(m.Nx(), m.Ny())
	axR = NewGrid(m.Nx(), m.Ny())
	ay = NewGrid(m.Nx(), m.Ny())
	for iy := 0; iy < m.Ny(); iy++ {
		for ix := 0; ix < m.Nx(); ix++ {
			axL.Set(ix, iy, wy[iy])
			axR.Set(ix, iy, wy[iy])
			ay.Set(ix, iy, wx[ix])
		}
	}
	return axL, axR, ay
}
