package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Zoom limits.
const (
	MinZoom = 0.01
	MaxZoom = 20.0
)

// wheelBase is the per-unit zoom factor for wheel deltas: zoom *= wheelBase^deltaY.
const wheelBase = 0.999

// WheelFactor converts a wheel delta into a zoom factor. Positive deltas zoom out.
func WheelFactor(deltaY float64) float64 {
	return math.Pow(wheelBase, deltaY)
}

// Viewport is the single zoom/pan transform shared by a scene:
// screen = scene*zoom + (tx, ty).
type Viewport struct {
	zoom   float64
	tx, ty float64

	width, height int

	observers []func(zoom float64)
}

// New creates an identity viewport of the given screen size.
func New(width, height int) *Viewport {
	return &Viewport{zoom: 1, width: width, height: height}
}

// Zoom returns the current zoom.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Translation returns the screen-space translation.
func (v *Viewport) Translation() r2.Vec { return r2.Vec{X: v.tx, Y: v.ty} }

// Size returns the screen size.
func (v *Viewport) Size() (int, int) { return v.width, v.height }

// Resize changes the screen size. The transform is unchanged.
func (v *Viewport) Resize(width, height int) {
	v.width, v.height = width, height
}

// Matrix returns the scene-to-screen matrix.
func (v *Viewport) Matrix() engine.Matrix2D {
	return engine.Matrix2D{v.zoom, 0, 0, v.zoom, v.tx, v.ty}
}

// ScreenToScene converts a screen point to scene space.
func (v *Viewport) ScreenToScene(p r2.Vec) r2.Vec {
	return r2.Vec{X: (p.X - v.tx) / v.zoom, Y: (p.Y - v.ty) / v.zoom}
}

// SceneToScreen converts a scene point to screen space.
func (v *Viewport) SceneToScreen(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X*v.zoom + v.tx, Y: p.Y*v.zoom + v.ty}
}

// ZoomAt multiplies the zoom by factor, clamped to [MinZoom, MaxZoom], keeping
// the scene point under screen fixed. Non-positive or non-finite factors are ignored.
func (v *Viewport) ZoomAt(screen r2.Vec, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	anchor := v.ScreenToScene(screen)

	zoom := clamp(v.zoom*factor, MinZoom, MaxZoom)
	if zoom == v.zoom {
		return
	}
	v.zoom = zoom
	v.tx = screen.X - anchor.X*zoom
	v.ty = screen.Y - anchor.Y*zoom

	for _, fn := range v.observers {
		fn(zoom)
	}
}

// Pan translates by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.tx += dx
	v.ty += dy
}

// Observe registers fn to be called with the clamped zoom after every zoom change.
func (v *Viewport) Observe(fn func(zoom float64)) {
	v.observers = append(v.observers, fn)
}

// Track keeps s.Computed equal to s.Base divided by the current zoom.
func (v *Viewport) Track(s *Scaled) {
	s.Rescale(v.zoom)
	v.Observe(s.Rescale)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
