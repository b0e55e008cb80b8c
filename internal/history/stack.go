package history

import (
	"fmt"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Stack is the undo/redo history of one scene.
// It is not safe for concurrent use; the owning session serializes access.
type Stack struct {
	graph *engine.Graph

	undoStack []Mutation
	redoStack []Mutation

	// suspended counts open Suspend scopes; recording is off while > 0.
	suspended int

	onChange []func()
}

// NewStack creates an empty history over g.
func NewStack(g *engine.Graph) *Stack {
	return &Stack{graph: g}
}

// Record pushes an already-applied mutation and clears the redo stack.
// It does nothing while suspended.
func (s *Stack) Record(m Mutation) {
	if s.suspended > 0 || m == nil {
		return
	}
	s.undoStack = append(s.undoStack, m)
	s.redoStack = nil
}

// Commit applies m to the graph and records it.
func (s *Stack) Commit(m Mutation) error {
	if err := m.Apply(s.graph); err != nil {
		return err
	}
	s.Record(m)
	s.changed()
	return nil
}

// Undo reverts the most recent mutation and moves it to the redo stack.
// It reports false when there is nothing to undo.
func (s *Stack) Undo() (bool, error) {
	if len(s.undoStack) == 0 {
		return false, nil
	}
	m := s.undoStack[len(s.undoStack)-1]
	if err := m.Revert(s.graph); err != nil {
		return false, fmt.Errorf("undo: %w", err)
	}
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.redoStack = append(s.redoStack, m)
	s.changed()
	return true, nil
}

// Redo re-applies the most recently undone mutation.
func (s *Stack) Redo() (bool, error) {
	if len(s.redoStack) == 0 {
		return false, nil
	}
	m := s.redoStack[len(s.redoStack)-1]
	if err := m.Apply(s.graph); err != nil {
		return false, fmt.Errorf("redo: %w", err)
	}
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	s.undoStack = append(s.undoStack, m)
	s.changed()
	return true, nil
}

// Suspend turns recording off until the returned resume func is called.
// Scopes nest; calling resume more than once has no further effect.
func (s *Stack) Suspend() (resume func()) {
	s.suspended++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		s.suspended--
	}
}

// Suspended runs fn with recording off and always resumes afterwards, even if
// fn fails or panics.
func (s *Stack) Suspended(fn func() error) error {
	resume := s.Suspend()
	defer resume()
	return fn()
}

// IsSuspended reports whether recording is off.
func (s *Stack) IsSuspended() bool { return s.suspended > 0 }

// Clear drops both stacks.
func (s *Stack) Clear() {
	s.undoStack = nil
	s.redoStack = nil
	s.changed()
}

func (s *Stack) CanUndo() bool { return len(s.undoStack) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redoStack) > 0 }

// Len returns the undo and redo depths.
func (s *Stack) Len() (undo, redo int) { return len(s.undoStack), len(s.redoStack) }

// OnChange registers fn to run after every commit, undo, redo and clear.
func (s *Stack) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *Stack) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}
