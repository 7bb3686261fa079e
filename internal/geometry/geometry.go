package geometry

import "math"

// Point is a planar position in simulator coordinates (metres).
type Point struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// DistancesTo returns the distance from p to every target, in target order.
func (p Point) DistancesTo(targets []Point) []float64 {
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = p.DistanceTo(t)
	}
	return out
}
