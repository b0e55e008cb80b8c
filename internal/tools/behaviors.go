package tools

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/history"
	"github.com/tarkov-debrief/debrief/internal/stroke"
)

// SelectBehavior picks objects by click or rubber band.
type SelectBehavior struct {
	graph *engine.Graph

	banding bool
	start   r2.Vec
	end     r2.Vec
}

func NewSelectBehavior(g *engine.Graph) *SelectBehavior {
	return &SelectBehavior{graph: g}
}

func (b *SelectBehavior) PointerDown(ev *engine.Event) {
	if ev.Button != engine.ButtonLeft {
		return
	}
	if ev.Target != nil && ev.Target.Selectable {
		b.graph.Select(ev.Target.ID)
		return
	}
	b.banding = true
	b.start, b.end = ev.Scene, ev.Scene
}

func (b *SelectBehavior) PointerMove(ev *engine.Event, active bool) {
	if active && b.banding {
		b.end = ev.Scene
	}
}

func (b *SelectBehavior) PointerUp(ev *engine.Event) {
	if !b.banding {
		return
	}
	b.end = ev.Scene
	box, _ := b.Band()
	b.banding = false

	var ids []string
	for _, obj := range b.graph.Intersecting(box) {
		ids = append(ids, obj.ID)
	}
	b.graph.Select(ids...)
}

func (b *SelectBehavior) Deactivate() {
	b.banding = false
	b.graph.ClearSelection()
}

// Band returns the rubber band in scene space while one is being dragged.
func (b *SelectBehavior) Band() (r2.Box, bool) {
	if !b.banding {
		return r2.Box{}, false
	}
	return r2.Box{Min: b.start, Max: b.end}.Canon(), true
}

// PencilBehavior feeds pointer samples to the stroke engine.
type PencilBehavior struct {
	strokes *stroke.Engine
	logger  *slog.Logger
}

func NewPencilBehavior(e *stroke.Engine, logger *slog.Logger) *PencilBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &PencilBehavior{strokes: e, logger: logger}
}

func (b *PencilBehavior) PointerDown(ev *engine.Event) {
	if ev.Button != engine.ButtonLeft {
		return
	}
	b.strokes.Begin(ev.Scene)
}

func (b *PencilBehavior) PointerMove(ev *engine.Event, active bool) {
	if active {
		b.strokes.Extend(ev.Scene)
	}
}

func (b *PencilBehavior) PointerUp(ev *engine.Event) {
	if !b.strokes.Active() {
		return
	}
	b.strokes.Extend(ev.Scene)
	b.finish()
}

// Deactivate commits any stroke still in progress.
func (b *PencilBehavior) Deactivate() {
	if b.strokes.Active() {
		b.finish()
	}
}

func (b *PencilBehavior) finish() {
	obj, err := b.strokes.End()
	if err != nil {
		b.logger.Warn("stroke not committed", "error", err)
		return
	}
	if obj != nil {
		b.logger.Debug("stroke committed", "object", obj.ID, "commands", len(obj.Path))
	}
}

// EraserBehavior removes erasable objects under the pointer.
type EraserBehavior struct {
	history *history.Stack
	logger  *slog.Logger

	erasing bool // left button held
}

func NewEraserBehavior(h *history.Stack, logger *slog.Logger) *EraserBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	return &EraserBehavior{history: h, logger: logger}
}

func (b *EraserBehavior) PointerDown(ev *engine.Event) {
	if ev.Button != engine.ButtonLeft {
		return
	}
	b.erasing = true
	b.erase(ev)
}

func (b *EraserBehavior) PointerMove(ev *engine.Event, active bool) {
	if active && b.erasing {
		b.erase(ev)
	}
}

func (b *EraserBehavior) PointerUp(*engine.Event) { b.erasing = false }
func (b *EraserBehavior) Deactivate()             { b.erasing = false }

func (b *EraserBehavior) erase(ev *engine.Event) {
	if ev.Target == nil || !ev.Target.Erasable {
		return
	}
	if err := b.history.Commit(history.Remove(ev.Target)); err != nil {
		b.logger.Warn("erase failed", "object", ev.Target.ID, "error", err)
	}
}

// Placer places markers asynchronously.
type Placer interface {
	PlaceAsync(ctx context.Context, url string, screen r2.Vec)
}

// MarkerBehavior stamps the selected marker on left click.
type MarkerBehavior struct {
	ctx    context.Context
	placer Placer

	// URL is the marker image placed on click.
	URL string
}

func NewMarkerBehavior(ctx context.Context, p Placer) *MarkerBehavior {
	return &MarkerBehavior{ctx: ctx, placer: p}
}

func (b *MarkerBehavior) PointerDown(ev *engine.Event) {
	if ev.Button != engine.ButtonLeft || ev.Modifiers.Has(engine.ModAlt) || b.URL == "" {
		return
	}
	b.placer.PlaceAsync(b.ctx, b.URL, ev.Screen)
}

func (b *MarkerBehavior) PointerMove(*engine.Event, bool) {}
func (b *MarkerBehavior) PointerUp(*engine.Event)         {}
func (b *MarkerBehavior) Deactivate()                     {}

// Cursor shows the marker image itself.
func (b *MarkerBehavior) Cursor() string {
	if b.URL == "" {
		return ""
	}
	return fmt.Sprintf("url(%s), auto", b.URL)
}

// PanBehavior drags the view.
type PanBehavior struct {
	panner Panner
	anchor r2.Vec
}

func NewPanBehavior(p Panner) *PanBehavior {
	return &PanBehavior{panner: p}
}

func (b *PanBehavior) PointerDown(ev *engine.Event) { b.anchor = ev.Screen }

func (b *PanBehavior) PointerMove(ev *engine.Event, active bool) {
	if !active {
		return
	}
	d := r2.Sub(ev.Screen, b.anchor)
	b.anchor = ev.Screen
	b.panner.Pan(d.X, d.Y)
}

func (b *PanBehavior) PointerUp(*engine.Event) {}
func (b *PanBehavior) Deactivate()             {}
