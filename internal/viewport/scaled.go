package viewport

// Scaled is a length defined in screen pixels and stored for use in scene
// space. Computed is Base / zoom, recomputed after each zoom change using the
// clamped zoom.
type Scaled struct {
	Base     float64
	Computed float64
}

// NewScaled creates a value at zoom 1.
func NewScaled(base float64) *Scaled {
	return &Scaled{Base: base, Computed: base}
}

// Rescale recomputes Computed for zoom.
func (s *Scaled) Rescale(zoom float64) {
	if zoom <= 0 {
		return
	}
	s.Computed = s.Base / zoom
}
