package stroke

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/history"
	"github.com/tarkov-debrief/debrief/internal/viewport"
)

var ErrInvalidColor = errors.New("invalid stroke color")

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Config holds the zoom-independent stroke settings, in screen pixels.
type Config struct {
	Color                 string
	BrushWidth            float64
	ContinuationThreshold float64
	MinSampleDistance     float64
	SimplifyTolerance     float64
}

// DefaultConfig returns the pencil defaults.
func DefaultConfig() Config {
	return Config{
		Color:                 "#f00",
		BrushWidth:            5,
		ContinuationThreshold: 50,
		MinSampleDistance:     1,
		SimplifyTolerance:     0.5,
	}
}

// Style is the look of a stroke in scene units.
type Style struct {
	Color string
	Width float64
}

// Session is one in-progress stroke. Points are in scene space; Points[0] is the anchor.
type Session struct {
	Points    []r2.Vec
	Style     Style
	Continues *engine.SceneObject
}

// Anchor returns the first point of the stroke.
func (s *Session) Anchor() r2.Vec { return s.Points[0] }

// Engine turns pointer samples into committed path objects.
type Engine struct {
	graph   *engine.Graph
	history *history.Stack

	color     string
	width     *viewport.Scaled
	threshold *viewport.Scaled
	minDist   *viewport.Scaled
	tolerance *viewport.Scaled

	session *Session
	logger  *slog.Logger
}

// New creates a stroke engine. Widths and thresholds track the viewport zoom.
func New(g *engine.Graph, h *history.Stack, vp *viewport.Viewport, cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !hexColor.MatchString(cfg.Color) {
		return nil, fmt.Errorf("new stroke engine: %q: %w", cfg.Color, ErrInvalidColor)
	}
	e := &Engine{
		graph:     g,
		history:   h,
		color:     cfg.Color,
		width:     viewport.NewScaled(cfg.BrushWidth),
		threshold: viewport.NewScaled(cfg.ContinuationThreshold),
		minDist:   viewport.NewScaled(cfg.MinSampleDistance),
		tolerance: viewport.NewScaled(cfg.SimplifyTolerance),
		logger:    logger,
	}
	for _, s := range []*viewport.Scaled{e.width, e.threshold, e.minDist, e.tolerance} {
		vp.Track(s)
	}
	return e, nil
}

// Color returns the current stroke color.
func (e *Engine) Color() string { return e.color }

// SetColor sets the color for subsequent strokes. Accepts #rgb and #rrggbb.
func (e *Engine) SetColor(hex string) error {
	if !hexColor.MatchString(hex) {
		return fmt.Errorf("set color %q: %w", hex, ErrInvalidColor)
	}
	e.color = hex
	return nil
}

// Width returns the brush width in scene units at the current zoom.
func (e *Engine) Width() float64 { return e.width.Computed }

// Threshold returns the continuation distance in scene units at the current zoom.
func (e *Engine) Threshold() float64 { return e.threshold.Computed }

// Active reports whether a stroke is in progress.
func (e *Engine) Active() bool { return e.session != nil }

// Current returns the in-progress stroke, or nil.
func (e *Engine) Current() *Session { return e.session }

// FindContinuation returns the path object whose open endpoint is nearest p,
// provided it is closer than the continuation threshold. Every path is a
// candidate whatever its color. Ties go to the earliest object.
func (e *Engine) FindContinuation(p r2.Vec) (*engine.SceneObject, r2.Vec, bool) {
	var (
		best     *engine.SceneObject
		bestEnd  r2.Vec
		bestDist = math.Inf(1)
	)
	for _, obj := range e.graph.Objects() {
		if obj.Kind != engine.KindPath {
			continue
		}
		end, ok := obj.Path.Endpoint()
		if !ok {
			continue
		}
		end = obj.Transform().Apply(end)
		if d := r2.Norm(r2.Sub(p, end)); d < bestDist {
			best, bestEnd, bestDist = obj, end, d
		}
	}
	if best == nil || bestDist >= e.threshold.Computed {
		return nil, r2.Vec{}, false
	}
	return best, bestEnd, true
}

// Begin starts a stroke at the scene point p, snapping to a nearby open
// endpoint when there is one. Any stroke already in progress is finalized first.
func (e *Engine) Begin(p r2.Vec) *Session {
	if e.session != nil {
		if _, err := e.End(); err != nil {
			e.logger.Warn("finalize stroke", "error", err)
		}
	}

	s := &Session{Style: Style{Color: e.color, Width: e.width.Computed}}
	if obj, end, ok := e.FindContinuation(p); ok {
		s.Points = []r2.Vec{end}
		s.Continues = obj
		e.logger.Debug("stroke continues path", "object", obj.ID)
	} else {
		s.Points = []r2.Vec{p}
	}
	e.session = s
	return s
}

// Extend appends a sample. Samples closer than the minimum distance to the
// last accepted point are dropped.
func (e *Engine) Extend(p r2.Vec) bool {
	if e.session == nil {
		return false
	}
	last := e.session.Points[len(e.session.Points)-1]
	if r2.Norm(r2.Sub(p, last)) < e.minDist.Computed {
		return false
	}
	e.session.Points = append(e.session.Points, p)
	return true
}

// End finishes the stroke and commits it. A stroke with fewer than two points
// is discarded and End returns nil, nil.
func (e *Engine) End() (*engine.SceneObject, error) {
	s := e.session
	e.session = nil
	if s == nil || len(s.Points) < 2 {
		return nil, nil
	}

	path := Smooth(Simplify(s.Points, e.tolerance.Computed))

	// A continuation keeps the continued object's color and width.
	if s.Continues != nil {
		if _, ok := e.graph.Get(s.Continues.ID); ok {
			merged := append(s.Continues.Path.Clone(), path[1:]...)
			if err := e.history.Commit(history.Replace(s.Continues, merged)); err != nil {
				return nil, fmt.Errorf("continue stroke: %w", err)
			}
			return s.Continues, nil
		}
	}

	obj := engine.NewPath(path, s.Style.Color, s.Style.Width)
	if err := e.history.Commit(history.Add(obj)); err != nil {
		return nil, fmt.Errorf("commit stroke: %w", err)
	}
	return obj, nil
}

// Cancel drops the stroke in progress without committing it.
func (e *Engine) Cancel() {
	e.session = nil
}
