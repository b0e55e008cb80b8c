package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrInvalidObject   = errors.New("invalid scene object")
	ErrDuplicateObject = errors.New("scene object already added")
	ErrObjectNotFound  = errors.New("scene object not found")
)

// DefaultHitSlop is the hit tolerance around thin paths, in screen pixels.
const DefaultHitSlop = 4

// Projector converts between screen and scene space. The viewport implements it.
type Projector interface {
	ScreenToScene(p r2.Vec) r2.Vec
	Matrix() Matrix2D
	Zoom() float64
}

// Graph owns the scene objects of one session in z/creation order, the
// selection, and the event bus the tools subscribe to.
// It is not safe for concurrent use; the owning session serializes access.
type Graph struct {
	objects []*SceneObject
	byID    map[string]*SceneObject

	projector Projector
	bus       *Bus
	hitSlop   float64

	// Selection state
	selection []string

	// Last pointer position seen by Dispatch, in screen space.
	lastPointer r2.Vec

	logger *slog.Logger
}

// NewGraph creates an empty graph. A nil projector means identity.
func NewGraph(projector Projector, logger *slog.Logger) *Graph {
	if projector == nil {
		projector = identityProjector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		byID:      make(map[string]*SceneObject),
		projector: projector,
		bus:       NewBus(),
		hitSlop:   DefaultHitSlop,
		logger:    logger,
	}
}

// Bus returns the graph's event bus.
func (g *Graph) Bus() *Bus { return g.bus }

// Projector returns the screen/scene converter the graph dispatches through.
func (g *Graph) Projector() Projector { return g.projector }

// --- Mutations ---

// Add appends obj on top of the scene.
func (g *Graph) Add(obj *SceneObject) error {
	return g.Insert(len(g.objects), obj)
}

// Insert places obj at index i, clamped to [0, Len()].
func (g *Graph) Insert(i int, obj *SceneObject) error {
	if obj == nil || obj.ID == "" {
		g.logger.Warn("rejected scene object", "error", ErrInvalidObject)
		return ErrInvalidObject
	}
	if _, ok := g.byID[obj.ID]; ok {
		g.logger.Warn("rejected scene object", "error", ErrDuplicateObject, "object", obj.ID)
		return fmt.Errorf("add %s: %w", obj.ID, ErrDuplicateObject)
	}

	i = max(0, min(i, len(g.objects)))
	g.objects = append(g.objects, nil)
	copy(g.objects[i+1:], g.objects[i:])
	g.objects[i] = obj
	g.byID[obj.ID] = obj
	return nil
}

// Remove takes obj out of the scene and returns the index it held.
func (g *Graph) Remove(obj *SceneObject) (int, error) {
	if obj == nil {
		return -1, ErrInvalidObject
	}
	i := g.IndexOf(obj.ID)
	if i < 0 {
		return -1, fmt.Errorf("remove %s: %w", obj.ID, ErrObjectNotFound)
	}
	g.objects = append(g.objects[:i], g.objects[i+1:]...)
	delete(g.byID, obj.ID)
	g.deselect(obj.ID)
	return i, nil
}

// --- Queries ---

// IndexOf returns the z-index of the object, or -1.
func (g *Graph) IndexOf(id string) int {
	if _, ok := g.byID[id]; !ok {
		return -1
	}
	for i, o := range g.objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Get looks up an object by ID.
func (g *Graph) Get(id string) (*SceneObject, bool) {
	o, ok := g.byID[id]
	return o, ok
}

// Objects returns the objects back to front. The slice is a copy.
func (g *Graph) Objects() []*SceneObject {
	out := make([]*SceneObject, len(g.objects))
	copy(out, g.objects)
	return out
}

// Len returns the number of top-level objects.
func (g *Graph) Len() int { return len(g.objects) }

// HitTest returns the topmost object under the scene point, or nil.
func (g *Graph) HitTest(pt r2.Vec) *SceneObject {
	slop := g.hitSlop / g.zoom()
	for i := len(g.objects) - 1; i >= 0; i-- {
		if g.objects[i].Contains(pt, slop) {
			return g.objects[i]
		}
	}
	return nil
}

// Intersecting returns the selectable objects whose bounds overlap box, back to front.
func (g *Graph) Intersecting(box r2.Box) []*SceneObject {
	box = box.Canon()
	var out []*SceneObject
	for _, o := range g.objects {
		if !o.Selectable {
			continue
		}
		b, ok := o.Bounds()
		if !ok {
			continue
		}
		if b.Min.X <= box.Max.X && b.Max.X >= box.Min.X && b.Min.Y <= box.Max.Y && b.Max.Y >= box.Min.Y {
			out = append(out, o)
		}
	}
	return out
}

// --- Selection ---

// Select replaces the selection. Unknown IDs are dropped.
func (g *Graph) Select(ids ...string) {
	g.selection = g.selection[:0]
	for _, id := range ids {
		if _, ok := g.byID[id]; ok {
			g.selection = append(g.selection, id)
		}
	}
}

// Selection returns the selected object IDs.
func (g *Graph) Selection() []string {
	return append([]string(nil), g.selection...)
}

// ClearSelection deselects everything.
func (g *Graph) ClearSelection() {
	g.selection = nil
}

// SelectionBounds returns the combined bounds of the selection.
func (g *Graph) SelectionBounds() (r2.Box, bool) {
	var out r2.Box
	found := false
	for _, id := range g.selection {
		o, ok := g.byID[id]
		if !ok {
			continue
		}
		b, ok := o.Bounds()
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

func (g *Graph) deselect(id string) {
	for i, s := range g.selection {
		if s == id {
			g.selection = append(g.selection[:i], g.selection[i+1:]...)
			return
		}
	}
}

// --- Input ---

// Dispatch converts a screen-space pointer event to scene space, hit-tests it
// and emits it on the bus.
func (g *Graph) Dispatch(name EventName, screen r2.Vec, button Button, mods Modifiers, deltaY float64) *Event {
	scene := g.projector.ScreenToScene(screen)
	ev := &Event{
		Name:      name,
		Screen:    screen,
		Scene:     scene,
		Button:    button,
		Modifiers: mods,
		DeltaY:    deltaY,
	}
	if name != EventWheel {
		ev.Target = g.HitTest(scene)
		g.lastPointer = screen
	}
	g.bus.Emit(ev)
	return ev
}

// LastPointer returns the screen position of the most recent pointer event.
func (g *Graph) LastPointer() r2.Vec { return g.lastPointer }

func (g *Graph) zoom() float64 {
	z := g.projector.Zoom()
	if z <= 0 {
		return 1
	}
	return z
}

type identityProjector struct{}

func (identityProjector) ScreenToScene(p r2.Vec) r2.Vec { return p }
func (identityProjector) Matrix() Matrix2D              { return Identity() }
func (identityProjector) Zoom() float64                 { return 1 }
