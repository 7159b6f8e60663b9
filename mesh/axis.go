package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// BiasType selects how element widths vary along an axis.
type BiasType string

const (
	BiasNone       BiasType = ""
	BiasOneWayUp   BiasType = "OneWayUp"   // smallest element at the high end
	BiasOneWayDown BiasType = "OneWayDown" // smallest element at the low end
	BiasTwoWayEnd  BiasType = "TwoWayEnd"  // smallest elements at both ends
	BiasTwoWayMid  BiasType = "TwoWayMid"  // smallest elements around the middle
)

// Axis holds the 1D discretization of one domain direction: n node
// coordinates and n element widths. The last width duplicates the
// second-last so the width array lines up with the node array; only the
// first n-1 widths are real intervals.
type Axis struct {
	Length float64
	N      int
	Width  []float64 // element widths, len N
	Coord  []float64 // node coordinates, len N, Coord[0] = 0
}

// NewAxis discretizes a direction of the given length into n nodes.
// For the biased schemes, size is the smallest element width. When the
// two-way schemes face an odd interval count, the low half receives
// (n-1)/2 intervals and the high half the remainder; either way each
// ramp averages to the uniform width, so the total length is preserved.
func NewAxis(length float64, n int, bias BiasType, size float64) (*Axis, error) {
	if n < 3 {
		return nil, fmt.Errorf("mesh: axis needs at least 3 nodes, got %d", n)
	}
	if length <= 0 {
		return nil, fmt.Errorf("mesh: axis length must be positive, got %g", length)
	}
	a := &Axis{Length: length, N: n, Width: make([]float64, n), Coord: make([]float64, n)}

	largest := 2*length/float64(n-1) - size
	switch bias {
	case BiasNone:
		uniform := length / float64(n-1)
		for i := range a.Width {
			a.Width[i] = uniform
		}
	case BiasOneWayUp:
		ramp(a.Width[:n-1], largest, size)
	case BiasOneWayDown:
		ramp(a.Width[:n-1], size, largest)
	case BiasTwoWayEnd:
		half := (n - 1) / 2
		ramp(a.Width[:half], size, largest)
		ramp(a.Width[half:n-1], largest, size)
	case BiasTwoWayMid:
		half := (n - 1) / 2
		ramp(a.Width[:half], largest, size)
		ramp(a.Width[half:n-1], size, largest)
	default:
		return nil, fmt.Errorf("mesh: unknown bias type %q", bias)
	}
	if bias != BiasNone {
		if size <= 0 || largest < size {
			return nil, fmt.Errorf("mesh: bias size %g out of range for %d nodes over %g", size, n, length)
		}
		a.Width[n-1] = a.Width[n-2]
	}

	floats.CumSum(a.Coord[1:], a.Width[:n-1])
	return a, nil
}

// ramp fills dst with evenly spaced values from start to stop inclusive.
// floats.Span rejects destinations shorter than 2, so the one-element
// half of a short two-way split degenerates to its start value.
func ramp(dst []float64, start, stop float64) {
	if len(dst) == 1 {
		dst[0] = start
		return
	}
	floats.Span(dst, start, stop)
}

// CVWidths returns the control-volume extent around each node: half the
// sum of the two adjacent element widths, or half a single width at the
// domain ends where the outside interval does not exist.
func (a *Axis) CVWidths() []float64 {
	out := make([]float64, a.N)
	out[0] = 0.5 * a.Width[0]
	for i := 1; i < a.N-1; i++ {
		out[i] = 0.5 * (a.Width[i] + a.Width[i-1])
	}
	out[a.N-1] = 0.5 * a.Width[a.N-1]
	return out
}
