package history

import (
	"fmt"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Mutation types
const (
	TypeAddObject    = "object.add"
	TypeRemoveObject = "object.remove"
	TypeReplacePath  = "path.replace"
)

// Mutation is a reversible change to the scene. Apply and Revert must be exact
// inverses of each other.
type Mutation interface {
	Type() string
	Apply(g *engine.Graph) error
	Revert(g *engine.Graph) error
}

// AddObject adds Object on top of the scene, or at Index when Index >= 0.
// Revert fills Index with the depth the object held.
type AddObject struct {
	Object *engine.SceneObject
	Index  int
}

// Add returns a mutation that appends obj.
func Add(obj *engine.SceneObject) *AddObject {
	return &AddObject{Object: obj, Index: -1}
}

func (m *AddObject) Type() string { return TypeAddObject }

func (m *AddObject) Apply(g *engine.Graph) error {
	if m.Index < 0 {
		if err := g.Add(m.Object); err != nil {
			return fmt.Errorf("apply %s: %w", m.Type(), err)
		}
		return nil
	}
	if err := g.Insert(m.Index, m.Object); err != nil {
		return fmt.Errorf("apply %s: %w", m.Type(), err)
	}
	return nil
}

func (m *AddObject) Revert(g *engine.Graph) error {
	idx, err := g.Remove(m.Object)
	if err != nil {
		return fmt.Errorf("revert %s: %w", m.Type(), err)
	}
	// redo puts it back at the same depth
	m.Index = idx
	return nil
}

// RemoveObject takes Object out of the scene. PreviousIndex is filled on Apply
// so Revert puts it back at the same depth.
type RemoveObject struct {
	Object        *engine.SceneObject
	PreviousIndex int
}

// Remove returns a mutation that removes obj.
func Remove(obj *engine.SceneObject) *RemoveObject {
	return &RemoveObject{Object: obj, PreviousIndex: -1}
}

func (m *RemoveObject) Type() string { return TypeRemoveObject }

func (m *RemoveObject) Apply(g *engine.Graph) error {
	idx, err := g.Remove(m.Object)
	if err != nil {
		return fmt.Errorf("apply %s: %w", m.Type(), err)
	}
	m.PreviousIndex = idx
	return nil
}

func (m *RemoveObject) Revert(g *engine.Graph) error {
	idx := m.PreviousIndex
	if idx < 0 {
		idx = g.Len()
	}
	if err := g.Insert(idx, m.Object); err != nil {
		return fmt.Errorf("revert %s: %w", m.Type(), err)
	}
	return nil
}

// ReplacePath swaps the path data of Object. Used when a stroke continues an existing path.
type ReplacePath struct {
	Object   *engine.SceneObject
	Path     engine.Path
	Previous engine.Path
}

// Replace returns a mutation that sets obj's path to path, remembering the current one.
func Replace(obj *engine.SceneObject, path engine.Path) *ReplacePath {
	return &ReplacePath{Object: obj, Path: path, Previous: obj.Path.Clone()}
}

func (m *ReplacePath) Type() string { return TypeReplacePath }

func (m *ReplacePath) Apply(g *engine.Graph) error {
	if _, ok := g.Get(m.Object.ID); !ok {
		return fmt.Errorf("apply %s: %s: %w", m.Type(), m.Object.ID, engine.ErrObjectNotFound)
	}
	m.Object.Path = m.Path.Clone()
	return nil
}

func (m *ReplacePath) Revert(g *engine.Graph) error {
	if _, ok := g.Get(m.Object.ID); !ok {
		return fmt.Errorf("revert %s: %s: %w", m.Type(), m.Object.ID, engine.ErrObjectNotFound)
	}
	m.Object.Path = m.Previous.Clone()
	return nil
}
