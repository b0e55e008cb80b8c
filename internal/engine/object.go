package engine

import (
	"image"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/typeid"
)

// Kind identifies what a scene object draws.
type Kind string

const (
	KindImage Kind = "image"
	KindPath  Kind = "path"
	KindGroup Kind = "group"
)

// SceneObject is a renderable item owned by a Graph.
type SceneObject struct {
	ID   string
	Kind Kind

	// Position is the scene-space left/top of the object; Scale is uniform.
	Position r2.Vec
	Scale    float64

	// Erasable is false only for the background map.
	Erasable   bool
	Selectable bool

	// Path data, scene space before the object transform.
	Path        Path
	Stroke      string
	StrokeWidth float64

	// Image data. Pixels are never mutated once decoded, so clones share them.
	Image  image.Image
	Source string
	Size   r2.Vec

	Children []*SceneObject
}

// NewPath creates an erasable path object.
func NewPath(path Path, stroke string, width float64) *SceneObject {
	return &SceneObject{
		ID:          typeid.NewObjectID(),
		Kind:        KindPath,
		Scale:       1,
		Erasable:    true,
		Selectable:  true,
		Path:        path,
		Stroke:      stroke,
		StrokeWidth: width,
	}
}

// NewImage creates an erasable image object sized to the image bounds.
func NewImage(source string, img image.Image) *SceneObject {
	var size r2.Vec
	if img != nil {
		b := img.Bounds()
		size = r2.Vec{X: float64(b.Dx()), Y: float64(b.Dy())}
	}
	return &SceneObject{
		ID:         typeid.NewObjectID(),
		Kind:       KindImage,
		Scale:      1,
		Erasable:   true,
		Selectable: true,
		Image:      img,
		Source:     source,
		Size:       size,
	}
}

// NewGroup creates a group holding children in painter's order.
func NewGroup(children ...*SceneObject) *SceneObject {
	return &SceneObject{
		ID:         typeid.NewObjectID(),
		Kind:       KindGroup,
		Scale:      1,
		Erasable:   true,
		Selectable: true,
		Children:   children,
	}
}

// Transform returns Translate(Position) * Scale(Scale).
func (o *SceneObject) Transform() Matrix2D {
	s := o.Scale
	if s == 0 {
		s = 1
	}
	return Translate(o.Position.X, o.Position.Y).Multiply(Scale(s, s))
}

// Bounds returns the scene-space bounding box. Path bounds include half the stroke width.
func (o *SceneObject) Bounds() (r2.Box, bool) {
	return o.bounds(Identity())
}

func (o *SceneObject) bounds(parent Matrix2D) (r2.Box, bool) {
	world := parent.Multiply(o.Transform())
	switch o.Kind {
	case KindImage:
		if o.Size.X <= 0 || o.Size.Y <= 0 {
			return r2.Box{}, false
		}
		return world.ApplyBox(r2.Box{Max: o.Size}), true
	case KindPath:
		b, ok := o.Path.Bounds()
		if !ok {
			return r2.Box{}, false
		}
		pad := o.StrokeWidth / 2
		b.Min = r2.Sub(b.Min, r2.Vec{X: pad, Y: pad})
		b.Max = r2.Add(b.Max, r2.Vec{X: pad, Y: pad})
		return world.ApplyBox(b), true
	case KindGroup:
		var out r2.Box
		found := false
		for _, child := range o.Children {
			cb, ok := child.bounds(world)
			if !ok {
				continue
			}
			if !found {
				out, found = cb, true
				continue
			}
			out = out.Union(cb)
		}
		return out, found
	}
	return r2.Box{}, false
}

// Contains reports whether the scene point lies on the object. Paths are hit
// within half their stroke width plus slop, measured in scene units.
func (o *SceneObject) Contains(pt r2.Vec, slop float64) bool {
	return o.contains(Identity(), pt, slop)
}

func (o *SceneObject) contains(parent Matrix2D, pt r2.Vec, slop float64) bool {
	world := parent.Multiply(o.Transform())
	switch o.Kind {
	case KindImage:
		b, ok := o.bounds(parent)
		return ok && b.Contains(pt)
	case KindPath:
		b, ok := o.bounds(parent)
		if !ok {
			return false
		}
		b.Min = r2.Sub(b.Min, r2.Vec{X: slop, Y: slop})
		b.Max = r2.Add(b.Max, r2.Vec{X: slop, Y: slop})
		if !b.Contains(pt) {
			return false
		}
		scale := world.ScaleFactor()
		local := world.Invert().Apply(pt)
		return o.Path.DistanceTo(local)*scale <= o.StrokeWidth*scale/2+slop
	case KindGroup:
		for i := len(o.Children) - 1; i >= 0; i-- {
			if o.Children[i].contains(world, pt, slop) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy with fresh IDs. Image pixels are shared.
func (o *SceneObject) Clone() *SceneObject {
	c := *o
	c.ID = typeid.NewObjectID()
	c.Path = o.Path.Clone()
	if o.Children != nil {
		c.Children = make([]*SceneObject, len(o.Children))
		for i, child := range o.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}
