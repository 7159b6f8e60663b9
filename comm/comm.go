// Package comm is the message-passing substrate between worker
// goroutines: per-edge channels carry ghost-layer payloads, and
// root-based collectives provide the max-reduce, broadcast and gather
// operations the controller's global decisions rest on. All operations
// block until every participant has joined; the run is lock-step and a
// lagging worker stalls the others at the next collective.
package comm

import (
	"github.com/jmreppsUWGrad/2D-Research/decomp"
	"github.com/jmreppsUWGrad/2D-Research/mesh"
)

const root = 0

type ranked[T any] struct {
	rank int
	v    T
}

// Cluster owns the channels shared by all communicators of one run.
// Collectives of different element types use separate channel sets; the
// lock-step schedule guarantees no two collectives are ever in flight
// at once on the same set.
type Cluster struct {
	layout *decomp.Layout
	size   int

	edges map[[2]int]chan []float64

	gathInt  chan ranked[int]
	bcastInt []chan int
	gathF    chan ranked[float64]
	bcastF   []chan float64
	gathB    chan ranked[bool]
	bcastB   []chan bool
	gathG    chan ranked[*mesh.Grid]
	bcastG   []chan *mesh.Grid
}

// NewCluster builds the substrate for one worker per tile of the layout.
func NewCluster(layout *decomp.Layout) *Cluster {
	n := len(layout.Tiles)
	c := &Cluster{
		layout:   layout,
		size:     n,
		edges:    make(map[[2]int]chan []float64),
		gathInt:  make(chan ranked[int], n),
		bcastInt: make([]chan int, n),
		gathF:    make(chan ranked[float64], n),
		bcastF:   make([]chan float64, n),
		gathB:    make(chan ranked[bool], n),
		bcastB:   make([]chan bool, n),
		gathG:    make(chan ranked[*mesh.Grid], n),
		bcastG:   make([]chan *mesh.Grid, n),
	}
	for i := 0; i < n; i++ {
		c.bcastInt[i] = make(chan int, 1)
		c.bcastF[i] = make(chan float64, 1)
		c.bcastB[i] = make(chan bool, 1)
		c.bcastG[i] = make(chan *mesh.Grid, 1)
	}
	for _, t := range layout.Tiles {
		for _, nb := range []int{t.Left, t.Right, t.Top, t.Bottom} {
			if nb != decomp.Edge {
				c.edges[[2]int{t.Rank, nb}] = make(chan []float64, 1)
			}
		}
	}
	return c
}

// Comm returns the communicator for one worker rank.
func (c *Cluster) Comm(rank int) *Comm { return &Comm{cl: c, rank: rank} }

// Comm is one worker's endpoint into the cluster.
type Comm struct {
	cl   *Cluster
	rank int
}

// Rank returns this worker's identity, 0 <= rank < Size.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of workers.
func (c *Comm) Size() int { return c.cl.size }

// MaxReduceInt reduces v across all workers with a max-wins policy and
// returns the agreed maximum on every rank.
func (c *Comm) MaxReduceInt(v int) int {
	if c.rank == root {
		max := v
		for i := 1; i < c.cl.size; i++ {
			if o := <-c.cl.gathInt; o.v > max {
				max = o.v
			}
		}
		for i := 1; i < c.cl.size; i++ {
			c.cl.bcastInt[i] <- max
		}
		return max
	}
	c.cl.gathInt <- ranked[int]{c.rank, v}
	return <-c.cl.bcastInt[c.rank]
}

// MinReduceFloat reduces v across all workers with a min-wins policy
// and returns the agreed minimum on every rank. The time-marching loop
// uses it to agree on one global step size before any tile integrates.
func (c *Comm) MinReduceFloat(v float64) float64 {
	if c.rank == root {
		min := v
		for i := 1; i < c.cl.size; i++ {
			if o := <-c.cl.gathF; o.v < min {
				min = o.v
			}
		}
		for i := 1; i < c.cl.size; i++ {
			c.cl.bcastF[i] <- min
		}
		return min
	}
	c.cl.gathF <- ranked[float64]{c.rank, v}
	return <-c.cl.bcastF[c.rank]
}

// MaxReduceFloat reduces v across all workers with a max-wins policy.
func (c *Comm) MaxReduceFloat(v float64) float64 {
	if c.rank == root {
		max := v
		for i := 1; i < c.cl.size; i++ {
			if o := <-c.cl.gathF; o.v > max {
				max = o.v
			}
		}
		for i := 1; i < c.cl.size; i++ {
			c.cl.bcastF[i] <- max
		}
		return max
	}
	c.cl.gathF <- ranked[float64]{c.rank, v}
	return <-c.cl.bcastF[c.rank]
}

// BroadcastBool distributes the root's value to every rank. Non-root
// arguments are ignored; every rank must call in the same step.
func (c *Comm) BroadcastBool(v bool) bool {
	if c.rank == root {
		for i := 1; i < c.cl.size; i++ {
			<-c.cl.gathB
		}
		for i := 1; i < c.cl.size; i++ {
			c.cl.bcastB[i] <- v
		}
		return v
	}
	c.cl.gathB <- ranked[bool]{c.rank, v}
	return <-c.cl.bcastB[c.rank]
}

// Barrier blocks until every worker has reached it.
func (c *Comm) Barrier() { c.MaxReduceInt(0) }

// Gather assembles the full-domain copy of one local field and hands
// the same assembled grid to every rank. The result is read-only by
// convention: it is a diagnostic reduction, never state.
func (c *Comm) Gather(l *decomp.Local, g *mesh.Grid) *mesh.Grid {
	owned := l.Owned(g)
	if c.rank == root {
		full := mesh.NewGrid(c.cl.layout.Nx, c.cl.layout.Ny)
		full.SetSubGrid(l.Tile.I0, l.Tile.J0, owned)
		for i := 1; i < c.cl.size; i++ {
			o := <-c.cl.gathG
			t := c.cl.layout.Tiles[o.rank]
			full.SetSubGrid(t.I0, t.J0, o.v)
		}
		for i := 1; i < c.cl.size; i++ {
			c.cl.bcastG[i] <- full
		}
		return full
	}
	c.cl.gathG <- ranked[*mesh.Grid]{c.rank, owned}
	return <-c.cl.bcastG[c.rank]
}
