// Package script replays a recorded list of input steps against a session.
//
// A script is a JSON array of steps:
//
//	[
//	  {"op": "map", "map": "woods"},
//	  {"op": "down", "x": 10, "y": 10},
//	  {"op": "move", "x": 50, "y": 50},
//	  {"op": "up", "x": 50, "y": 50},
//	  {"op": "save"}
//	]
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/session"
)

var ErrInvalidStep = errors.New("invalid step")

type Op string

const (
	OpMap    Op = "map"
	OpResize Op = "resize"
	OpTool   Op = "tool"
	OpColor  Op = "color"
	OpDown   Op = "down"
	OpMove   Op = "move"
	OpUp     Op = "up"
	OpWheel  Op = "wheel"
	OpKey    Op = "key"
	OpKeyUp  Op = "keyup"
	OpMarker Op = "marker"
	OpClick  Op = "click"
	OpUndo   Op = "undo"
	OpRedo   Op = "redo"
	OpSave   Op = "save"
)

// Step is one scripted input. Only the fields relevant to Op are read.
type Step struct {
	Op Op `json:"op"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Button int     `json:"button,omitempty"` // 0 left, 1 middle, 2 right
	DeltaY float64 `json:"deltaY,omitempty"`

	Key   string `json:"key,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"`

	Map    string `json:"map,omitempty"`
	URL    string `json:"url,omitempty"`
	Marker string `json:"marker,omitempty"`
	Tool   string `json:"tool,omitempty"`
	Color  string `json:"color,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (s Step) screen() r2.Vec { return r2.Vec{X: s.X, Y: s.Y} }

func (s Step) modifiers() engine.Modifiers {
	var m engine.Modifiers
	if s.Alt {
		m |= engine.ModAlt
	}
	if s.Ctrl {
		m |= engine.ModCtrl
	}
	if s.Shift {
		m |= engine.ModShift
	}
	if s.Meta {
		m |= engine.ModMeta
	}
	return m
}

func (s Step) validate() error {
	switch s.Op {
	case OpMap:
		if s.Map == "" && s.URL == "" {
			return fmt.Errorf("%w: map needs map or url", ErrInvalidStep)
		}
	case OpResize:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%w: resize needs positive width and height", ErrInvalidStep)
		}
	case OpTool:
		if s.Tool == "" {
			return fmt.Errorf("%w: tool needs a name", ErrInvalidStep)
		}
	case OpColor:
		if s.Color == "" {
			return fmt.Errorf("%w: color needs a value", ErrInvalidStep)
		}
	case OpKey, OpKeyUp:
		if s.Key == "" {
			return fmt.Errorf("%w: %s needs a key", ErrInvalidStep, s.Op)
		}
	case OpMarker:
		if s.Marker == "" && s.URL == "" {
			return fmt.Errorf("%w: marker needs marker or url", ErrInvalidStep)
		}
	case OpDown, OpMove, OpUp, OpClick:
		if s.Button < 0 || s.Button > int(engine.ButtonRight) {
			return fmt.Errorf("%w: button %d", ErrInvalidStep, s.Button)
		}
	case OpWheel, OpUndo, OpRedo, OpSave:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidStep, s.Op)
	}
	return nil
}

// Parse reads a JSON step list and checks every step.
func Parse(r io.Reader) ([]Step, error) {
	var steps []Step
	if err := json.NewDecoder(r).Decode(&steps); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	for i, st := range steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return steps, nil
}

// Run applies steps in order and returns the last export. If the script has
// no save step, one is taken at the end.
func Run(ctx context.Context, s *session.Session, steps []Step) (*session.Export, error) {
	var last *session.Export
	saved := false

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if st.Op == OpSave {
			e, err := save(s)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			last, saved = e, true
			continue
		}
		if err := apply(ctx, s, st); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}

	if !saved {
		e, err := save(s)
		if err != nil {
			return nil, err
		}
		last = e
	}
	return last, nil
}

func save(s *session.Session) (*session.Export, error) {
	s.Wait()
	return s.Save()
}

func apply(ctx context.Context, s *session.Session, st Step) error {
	button, mods := engine.Button(st.Button), st.modifiers()

	switch st.Op {
	case OpMap:
		if st.Map != "" {
			return s.LoadMap(ctx, st.Map)
		}
		return s.LoadBackground(ctx, st.URL)
	case OpResize:
		return s.Resize(st.Width, st.Height)
	case OpTool:
		return s.SelectTool(st.Tool)
	case OpColor:
		return s.SetColor(st.Color)
	case OpDown:
		s.PointerDown(st.screen(), button, mods)
	case OpMove:
		s.PointerMove(st.screen(), button, mods)
	case OpUp:
		s.PointerUp(st.screen(), button, mods)
	case OpClick:
		s.PointerDown(st.screen(), button, mods)
		s.PointerUp(st.screen(), button, mods)
	case OpWheel:
		s.Wheel(st.screen(), st.DeltaY)
	case OpKey:
		return s.KeyDown(st.Key, mods)
	case OpKeyUp:
		s.KeyUp(st.Key, mods)
	case OpMarker:
		if st.Marker != "" {
			return s.SelectMarker(st.Marker)
		}
		return s.PlaceMarkerFromAsset(st.URL)
	case OpUndo:
		_, err := s.Undo()
		return err
	case OpRedo:
		_, err := s.Redo()
		return err
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidStep, st.Op)
	}
	return nil
}
