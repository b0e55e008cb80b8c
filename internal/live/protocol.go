// Package live streams a session over a WebSocket: the shell sends pointer,
// key and command messages; the server answers with renders and state.
package live

import (
	"encoding/json"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/session"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Input
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeWheel       = "wheel"
	TypeKeyDown     = "key.down"
	TypeKeyUp       = "key.up"

	// Commands
	TypeToolSelect   = "tool.select"
	TypeColorSet     = "color.set"
	TypeHistoryUndo  = "history.undo"
	TypeHistoryRedo  = "history.redo"
	TypeMarkerSelect = "marker.select"
	TypeMapLoad      = "map.load"
	TypeSave         = "save"
	TypeResize       = "resize"

	// Replies
	TypeWelcome = "welcome"
	TypeRender  = "render"
	TypeState   = "state"
	TypeExport  = "export"
	TypeError   = "error"
)

// ModifierFlags mirrors the DOM event modifier booleans.
type ModifierFlags struct {
	Alt   bool `json:"altKey,omitempty"`
	Ctrl  bool `json:"ctrlKey,omitempty"`
	Shift bool `json:"shiftKey,omitempty"`
	Meta  bool `json:"metaKey,omitempty"`
}

func (f ModifierFlags) Modifiers() engine.Modifiers {
	var m engine.Modifiers
	if f.Alt {
		m |= engine.ModAlt
	}
	if f.Ctrl {
		m |= engine.ModCtrl
	}
	if f.Shift {
		m |= engine.ModShift
	}
	if f.Meta {
		m |= engine.ModMeta
	}
	return m
}

// PointerPayload carries a screen position. Button uses DOM numbering:
// 0 left, 1 middle, 2 right.
type PointerPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
	ModifierFlags
}

func (p PointerPayload) Screen() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

type WheelPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

type KeyPayload struct {
	Key string `json:"key"`
	ModifierFlags
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type ColorPayload struct {
	Color string `json:"color"`
}

// MarkerPayload selects a catalog marker by id, or any image by URL.
type MarkerPayload struct {
	Marker string `json:"marker,omitempty"`
	URL    string `json:"url,omitempty"`
}

type MapPayload struct {
	Map string `json:"map,omitempty"`
	URL string `json:"url,omitempty"`
}

type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type WelcomePayload struct {
	ClientID string        `json:"clientId"`
	State    session.State `json:"state"`
}

type RenderPayload struct {
	Commands []engine.DrawCommand `json:"commands"`
}

type ErrorPayload struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
