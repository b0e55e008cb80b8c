// Package tools implements the mutually exclusive annotation tools and the
// manager that binds exactly one of them to the scene's event bus.
package tools

import (
	"errors"
	"fmt"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

var ErrInvalidTool = errors.New("invalid tool")

// Type names a tool.
type Type string

const (
	Select Type = "select"
	Pencil Type = "pencil"
	Eraser Type = "eraser"
	Marker Type = "marker"
	Pan    Type = "pan"
)

var cursors = map[Type]string{
	Select: "default",
	Pencil: "crosshair",
	Eraser: "not-allowed",
	Marker: "copy",
	Pan:    "grab",
}

// ParseType validates a tool name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := cursors[t]; !ok {
		return "", fmt.Errorf("parse tool %q: %w", s, ErrInvalidTool)
	}
	return t, nil
}

// DefaultCursor returns the CSS cursor shown for t.
func DefaultCursor(t Type) string { return cursors[t] }

// Tool is the current interaction mode. Active is true while the pointer is held.
type Tool struct {
	Type   Type   `json:"type"`
	Active bool   `json:"active"`
	Cursor string `json:"cursor"`
}

// Behavior reacts to pointer events while its tool is installed.
type Behavior interface {
	PointerDown(ev *engine.Event)
	PointerMove(ev *engine.Event, active bool)
	PointerUp(ev *engine.Event)
	// Deactivate is called when the tool's handlers are removed from the bus.
	Deactivate()
}

// Cursorer is implemented by behaviors whose cursor depends on their state.
type Cursorer interface {
	Cursor() string
}
