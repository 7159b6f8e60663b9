package comm

import (
	"github.com/jmreppsUWGrad/2D-Research/decomp"
	"github.com/jmreppsUWGrad/2D-Research/mesh"
)

// ExchangeGhosts sends this tile's boundary layer of every evolved
// field to each live neighbor and fills this tile's ghost layer with
// the neighbors' boundary values. All sides complete before it returns,
// so the advance operation for step n always sees ghosts from the end
// of step n-1. Sides facing the physical boundary are skipped.
//
// Left/right payloads are full local columns and top/bottom payloads
// full local rows; the 5-point conduction stencil never reads the
// diagonal ghost corners, so their staleness is irrelevant.
func (c *Comm) ExchangeGhosts(l *decomp.Local) {
	t := l.Tile
	fields := l.Fields()

	if t.Left != decomp.Edge {
		c.send(t.Left, packCol(fields, l.HL))
	}
	if t.Right != decomp.Edge {
		c.send(t.Right, packCol(fields, l.Nx-1-l.HR))
	}
	if t.Bottom != decomp.Edge {
		c.send(t.Bottom, packRow(fields, l.HB))
	}
	if t.Top != decomp.Edge {
		c.send(t.Top, packRow(fields, l.Ny-1-l.HT))
	}

	if t.Left != decomp.Edge {
		unpackCol(fields, 0, c.recv(t.Left))
	}
	if t.Right != decomp.Edge {
		unpackCol(fields, l.Nx-1, c.recv(t.Right))
	}
	if t.Bottom != decomp.Edge {
		unpackRow(fields, 0, c.recv(t.Bottom))
	}
	if t.Top != decomp.Edge {
		unpackRow(fields, l.Ny-1, c.recv(t.Top))
	}
}

func (c *Comm) send(to int, payload []float64) {
	c.cl.edges[[2]int{c.rank, to}] <- payload
}

func (c *Comm) recv(from int) []float64 {
	return <-c.cl.edges[[2]int{from, c.rank}]
}

// packCol concatenates column ix of every field into one payload.
func packCol(fields []*mesh.Grid, ix int) []float64 {
	ny := fields[0].Ny()
	out := make([]float64, 0, len(fields)*ny)
	for _, f := range fields {
		out = append(out, f.Col(ix)...)
	}
	return out
}

// unpackCol scatters a payload back into column ix of every field.
func unpackCol(fields []*mesh.Grid, ix int, payload []float64) {
	ny := fields[0].Ny()
	for i, f := range fields {
		f.SetCol(ix, payload[i*ny:(i+1)*ny])
	}
}

// packRow concatenates row iy of every field into one payload.
func packRow(fields []*mesh.Grid, iy int) []float64 {
	nx := fields[0].Nx()
	out := make([]float64, 0, len(fields)*nx)
	for _, f := range fields {
		out = append(out, f.Row(iy)...)
	}
	return out
}

// unpackRow scatters a payload back into row iy of every field.
func unpackRow(fields []*mesh.Grid, iy int, payload []float64) {
	nx := fields[0].Nx()
	for i, f := range fields {
		copy(f.Row(iy), payload[i*nx:(i+1)*nx])
	}
}
