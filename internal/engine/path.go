package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Path command opcodes, matching Canvas2D/SVG path letters.
const (
	OpMove  = "M"
	OpLine  = "L"
	OpQuad  = "Q"
	OpCubic = "C"
	OpClose = "Z"
)

// curveSegments is the number of line segments a curve is flattened into for
// hit testing and distance queries.
const curveSegments = 8

// PathCommand is a single path segment.
// It marshals to the Canvas2D array form: ["M", x, y], ["Q", cx, cy, x, y], ["Z"].
type PathCommand struct {
	Op   string
	Args []float64
}

// Path is an ordered list of commands in scene space.
type Path []PathCommand

func MoveTo(p r2.Vec) PathCommand { return PathCommand{Op: OpMove, Args: []float64{p.X, p.Y}} }
func LineTo(p r2.Vec) PathCommand { return PathCommand{Op: OpLine, Args: []float64{p.X, p.Y}} }
func QuadTo(c, p r2.Vec) PathCommand {
	return PathCommand{Op: OpQuad, Args: []float64{c.X, c.Y, p.X, p.Y}}
}
func ClosePath() PathCommand { return PathCommand{Op: OpClose} }

// arity returns the number of arguments an opcode takes, or -1 if unknown.
func arity(op string) int {
	switch op {
	case OpMove, OpLine:
		return 2
	case OpQuad:
		return 4
	case OpCubic:
		return 6
	case OpClose:
		return 0
	}
	return -1
}

// Valid reports whether the command has a known opcode and the right number of args.
func (c PathCommand) Valid() bool {
	n := arity(c.Op)
	return n >= 0 && len(c.Args) == n
}

// End returns the point the command finishes at. Close and malformed commands have none.
func (c PathCommand) End() (r2.Vec, bool) {
	if !c.Valid() || c.Op == OpClose {
		return r2.Vec{}, false
	}
	n := len(c.Args)
	return r2.Vec{X: c.Args[n-2], Y: c.Args[n-1]}, true
}

func (c PathCommand) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, 0, len(c.Args)+1)
	out = append(out, c.Op)
	for _, a := range c.Args {
		out = append(out, a)
	}
	return json.Marshal(out)
}

func (c *PathCommand) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty path command")
	}
	op, ok := raw[0].(string)
	if !ok {
		return fmt.Errorf("path command opcode is %T, want string", raw[0])
	}
	var args []float64
	for _, v := range raw[1:] {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("path command %s: argument is %T, want number", op, v)
		}
		args = append(args, f)
	}
	c.Op = op
	c.Args = args
	return nil
}

// Endpoint returns the open terminal point of the path: the final coordinate
// pair of its last command. Paths that are empty, closed, or end in a
// malformed command have no endpoint.
func (p Path) Endpoint() (r2.Vec, bool) {
	if len(p) == 0 {
		return r2.Vec{}, false
	}
	return p[len(p)-1].End()
}

// Closed reports whether the last command closes the path.
func (p Path) Closed() bool {
	return len(p) > 0 && p[len(p)-1].Op == OpClose
}

// Clone returns a deep copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	for i, c := range p {
		out[i] = PathCommand{Op: c.Op, Args: append([]float64(nil), c.Args...)}
	}
	return out
}

// Transform returns the path with every coordinate mapped through m.
func (p Path) Transform(m Matrix2D) Path {
	out := p.Clone()
	for _, c := range out {
		for i := 0; i+1 < len(c.Args); i += 2 {
			v := m.Apply(r2.Vec{X: c.Args[i], Y: c.Args[i+1]})
			c.Args[i], c.Args[i+1] = v.X, v.Y
		}
	}
	return out
}

// Bounds computes the axis-aligned bounding box of the path, control points included.
func (p Path) Bounds() (r2.Box, bool) {
	var box r2.Box
	first := true
	for _, c := range p {
		if !c.Valid() {
			continue
		}
		for i := 0; i+1 < len(c.Args); i += 2 {
			x, y := c.Args[i], c.Args[i+1]
			if first {
				box = r2.Box{Min: r2.Vec{X: x, Y: y}, Max: r2.Vec{X: x, Y: y}}
				first = false
				continue
			}
			box.Min.X = math.Min(box.Min.X, x)
			box.Min.Y = math.Min(box.Min.Y, y)
			box.Max.X = math.Max(box.Max.X, x)
			box.Max.Y = math.Max(box.Max.Y, y)
		}
	}
	return box, !first
}

// Flatten converts the path into polylines, one per subpath.
func (p Path) Flatten() [][]r2.Vec {
	var (
		lines  [][]r2.Vec
		cur    []r2.Vec
		pen    r2.Vec
		start  r2.Vec
		hasPen bool
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, cur)
		}
		cur = nil
	}

	for _, c := range p {
		if !c.Valid() {
			continue
		}
		switch c.Op {
		case OpMove:
			flush()
			pen = r2.Vec{X: c.Args[0], Y: c.Args[1]}
			start = pen
			hasPen = true
			cur = []r2.Vec{pen}
		case OpLine:
			to := r2.Vec{X: c.Args[0], Y: c.Args[1]}
			if !hasPen {
				pen, start, hasPen = to, to, true
				cur = []r2.Vec{to}
				continue
			}
			if len(cur) == 0 {
				cur = []r2.Vec{pen}
			}
			cur = append(cur, to)
			pen = to
		case OpQuad:
			ctrl := r2.Vec{X: c.Args[0], Y: c.Args[1]}
			to := r2.Vec{X: c.Args[2], Y: c.Args[3]}
			if !hasPen {
				pen, start, hasPen = ctrl, ctrl, true
				cur = []r2.Vec{ctrl}
			}
			if len(cur) == 0 {
				cur = []r2.Vec{pen}
			}
			for i := 1; i <= curveSegments; i++ {
				t := float64(i) / curveSegments
				u := 1 - t
				pt := r2.Add(r2.Add(r2.Scale(u*u, pen), r2.Scale(2*u*t, ctrl)), r2.Scale(t*t, to))
				cur = append(cur, pt)
			}
			pen = to
		case OpCubic:
			c1 := r2.Vec{X: c.Args[0], Y: c.Args[1]}
			c2 := r2.Vec{X: c.Args[2], Y: c.Args[3]}
			to := r2.Vec{X: c.Args[4], Y: c.Args[5]}
			if !hasPen {
				pen, start, hasPen = c1, c1, true
				cur = []r2.Vec{c1}
			}
			if len(cur) == 0 {
				cur = []r2.Vec{pen}
			}
			for i := 1; i <= curveSegments; i++ {
				t := float64(i) / curveSegments
				u := 1 - t
				pt := r2.Add(
					r2.Add(r2.Scale(u*u*u, pen), r2.Scale(3*u*u*t, c1)),
					r2.Add(r2.Scale(3*u*t*t, c2), r2.Scale(t*t*t, to)),
				)
				cur = append(cur, pt)
			}
			pen = to
		case OpClose:
			if hasPen {
				cur = append(cur, start)
				pen = start
			}
			flush()
		}
	}
	flush()
	return lines
}

// DistanceTo returns the shortest distance from pt to the flattened path.
// An empty path is infinitely far away.
func (p Path) DistanceTo(pt r2.Vec) float64 {
	best := math.Inf(1)
	for _, line := range p.Flatten() {
		if len(line) == 1 {
			best = math.Min(best, r2.Norm(r2.Sub(pt, line[0])))
			continue
		}
		for i := 1; i < len(line); i++ {
			best = math.Min(best, SegmentDistance(pt, line[i-1], line[i]))
		}
	}
	return best
}

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, proj))
}
