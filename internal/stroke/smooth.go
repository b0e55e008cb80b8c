package stroke

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Simplify reduces a polyline with Ramer-Douglas-Peucker. Points closer than
// tolerance to the simplified line are dropped; the first and last points are kept.
func Simplify(points []r2.Vec, tolerance float64) []r2.Vec {
	if len(points) < 3 || tolerance <= 0 {
		return append([]r2.Vec(nil), points...)
	}

	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(points) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		worst, worstDist := -1, tolerance
		for i := s.lo + 1; i < s.hi; i++ {
			d := engine.SegmentDistance(points[i], points[s.lo], points[s.hi])
			if d > worstDist {
				worst, worstDist = i, d
			}
		}
		if worst < 0 {
			continue
		}
		keep[worst] = true
		stack = append(stack, span{s.lo, worst}, span{worst, s.hi})
	}

	out := make([]r2.Vec, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

// Smooth converts a polyline into a path of quadratic segments through the
// midpoints of consecutive samples: M p0, Q p_i mid(p_i, p_i+1) ..., L p_n.
// The path always starts at points[0] and ends at the last point.
func Smooth(points []r2.Vec) engine.Path {
	if len(points) == 0 {
		return nil
	}
	path := engine.Path{engine.MoveTo(points[0])}
	if len(points) == 1 {
		return append(path, engine.LineTo(points[0]))
	}

	for i := 0; i+1 < len(points); i++ {
		p, next := points[i], points[i+1]
		if p == next {
			continue
		}
		mid := r2.Scale(0.5, r2.Add(p, next))
		path = append(path, engine.QuadTo(p, mid))
	}
	return append(path, engine.LineTo(points[len(points)-1]))
}
