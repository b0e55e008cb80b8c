// Package session owns one annotation session: the scene, its viewport and
// history, the stroke engine, the marker stamper and the tool manager.
// Every public method runs under the session mutex, which serves as the
// single-writer event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/catalog"
	"github.com/tarkov-debrief/debrief/internal/config"
	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/export"
	"github.com/tarkov-debrief/debrief/internal/history"
	"github.com/tarkov-debrief/debrief/internal/marker"
	"github.com/tarkov-debrief/debrief/internal/stroke"
	"github.com/tarkov-debrief/debrief/internal/tools"
	"github.com/tarkov-debrief/debrief/internal/viewport"
)

var ErrNotFound = errors.New("session not found")

// Loader fetches and decodes map and marker images.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Config holds per-session settings.
type Config struct {
	Width, Height    int
	Stroke           stroke.Config
	ExportMultiplier int
	ExportFilename   string
	AssetBaseURL     string
}

// DefaultConfig returns the built-in session settings.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}

// ConfigFrom derives session settings from the process configuration.
func ConfigFrom(c *config.Config) Config {
	sc := stroke.DefaultConfig()
	sc.Color = c.PencilColor
	sc.BrushWidth = c.BrushWidth
	sc.ContinuationThreshold = c.ContinuationThreshold
	return Config{
		Width:            c.ViewportWidth,
		Height:           c.ViewportHeight,
		Stroke:           sc,
		ExportMultiplier: c.ExportMultiplier,
		ExportFilename:   c.ExportFilename,
		AssetBaseURL:     c.AssetBaseURL,
	}
}

// Export is the result of Save.
type Export struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	PNG      []byte `json:"-"`
}

// State summarizes a session for the shell.
type State struct {
	ID          string     `json:"id"`
	Map         string     `json:"map,omitempty"`
	Tool        tools.Tool `json:"tool"`
	Color       string     `json:"color"`
	Zoom        float64    `json:"zoom"`
	Translation [2]float64 `json:"translation"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Objects     int        `json:"objects"`
	Selection   []string   `json:"selection,omitempty"`
	CanUndo     bool       `json:"canUndo"`
	CanRedo     bool       `json:"canRedo"`
}

// Session is one annotation canvas.
type Session struct {
	mu sync.Mutex

	id     string
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	loader   Loader
	exports  *export.Store
	renderer export.Renderer

	graph   *engine.Graph
	view    *viewport.Viewport
	history *history.Stack
	strokes *stroke.Engine
	stamper *marker.Stamper
	tools   *tools.Manager

	markerTool *tools.MarkerBehavior
	wheel      engine.Subscription

	background *engine.SceneObject
	mapID      string

	listeners []func()
	metrics   *metrics
}

// New builds a session with the pencil selected. exports may be nil, in
// which case Save returns the PNG without storing it.
func New(id string, cfg Config, loader Loader, exports *export.Store, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		loader:   loader,
		exports:  exports,
		renderer: export.Renderer{Multiplier: cfg.ExportMultiplier},
		metrics:  m,
	}

	s.view = viewport.New(cfg.Width, cfg.Height)
	s.graph = engine.NewGraph(s.view, logger)
	s.history = history.NewStack(s.graph)
	s.history.OnChange(func() {
		s.metrics.mutations.Add(s.ctx, 1, metric.WithAttributes(attribute.String("session", s.id)))
	})

	s.strokes, err = stroke.New(s.graph, s.history, s.view, cfg.Stroke, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new session: %w", err)
	}
	s.stamper, err = marker.NewStamper(marker.NewCache(loader), s.view, s.history, s, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new session: %w", err)
	}

	s.markerTool = tools.NewMarkerBehavior(ctx, s.stamper)
	s.tools = tools.NewManager(s.graph.Bus(), s.view, logger)
	s.tools.Register(tools.Select, tools.NewSelectBehavior(s.graph))
	s.tools.Register(tools.Pencil, tools.NewPencilBehavior(s.strokes, logger))
	s.tools.Register(tools.Eraser, tools.NewEraserBehavior(s.history, logger))
	s.tools.Register(tools.Marker, s.markerTool)
	s.tools.Register(tools.Pan, tools.NewPanBehavior(s.view))
	s.tools.OnSwitch(func(t tools.Tool) {
		s.metrics.toolSwitches.Add(s.ctx, 1, metric.WithAttributes(attribute.String("tool", string(t.Type))))
	})

	s.wheel = s.graph.Bus().Subscribe(engine.EventWheel, func(ev *engine.Event) {
		s.view.ZoomAt(ev.Screen, viewport.WheelFactor(ev.DeltaY))
	})

	if err := s.tools.Select(tools.Pencil); err != nil {
		cancel()
		return nil, fmt.Errorf("new session: %w", err)
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Run executes fn on the session loop.
func (s *Session) Run(fn func()) {
	s.do(func() error {
		fn()
		return nil
	})
}

// do runs fn under the lock and then notifies render listeners outside it.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
	return err
}

// OnRender registers fn to be called after every state change. fn runs
// outside the session lock and may call back into the session.
func (s *Session) OnRender(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadMap loads a catalog map as the background.
func (s *Session) LoadMap(ctx context.Context, mapID string) error {
	entry, err := catalog.Map(mapID)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	if err := s.LoadBackground(ctx, entry.URL(s.cfg.AssetBaseURL)); err != nil {
		return err
	}
	s.mu.Lock()
	s.mapID = mapID
	s.mu.Unlock()
	return nil
}

// LoadBackground replaces the background image and clears history. The
// image is fetched without holding the lock. On failure the scene is untouched.
func (s *Session) LoadBackground(ctx context.Context, url string) error {
	img, err := s.loader.Load(ctx, url)
	if err != nil {
		s.logger.Warn("background load failed", "url", url, "error", err)
		return fmt.Errorf("load background: %w", err)
	}

	return s.do(func() error {
		bg := engine.NewImage(url, img)
		bg.Erasable = false
		bg.Selectable = false

		err := s.history.Suspended(func() error {
			if s.background != nil {
				if _, ok := s.graph.Get(s.background.ID); ok {
					if err := s.history.Commit(history.Remove(s.background)); err != nil {
						return err
					}
				}
			}
			return s.history.Commit(&history.AddObject{Object: bg, Index: 0})
		})
		if err != nil {
			return fmt.Errorf("install background: %w", err)
		}

		s.background = bg
		s.mapID = ""
		s.history.Clear()
		s.logger.Info("background loaded", "url", url, "width", bg.Size.X, "height", bg.Size.Y)
		return nil
	})
}

// SelectTool switches tools by name.
func (s *Session) SelectTool(name string) error {
	t, err := tools.ParseType(name)
	if err != nil {
		return err
	}
	return s.do(func() error {
		return s.tools.Select(t)
	})
}

// SetColor sets the pencil color.
func (s *Session) SetColor(hex string) error {
	return s.do(func() error {
		return s.strokes.SetColor(hex)
	})
}

// Undo reverts the last mutation. It reports false when there was nothing to undo.
func (s *Session) Undo() (bool, error) {
	var ok bool
	err := s.do(func() error {
		var err error
		ok, err = s.history.Undo()
		return err
	})
	return ok, err
}

// Redo reapplies the last undone mutation.
func (s *Session) Redo() (bool, error) {
	var ok bool
	err := s.do(func() error {
		var err error
		ok, err = s.history.Redo()
		return err
	})
	return ok, err
}

// PlaceMarkerFromAsset arms the marker tool with url and starts loading it.
func (s *Session) PlaceMarkerFromAsset(url string) error {
	return s.do(func() error {
		s.markerTool.URL = url
		if err := s.tools.Select(tools.Marker); err != nil {
			return err
		}
		s.stamper.Prefetch(s.ctx, url)
		return nil
	})
}

// SelectMarker arms the marker tool with a catalog marker.
func (s *Session) SelectMarker(markerID string) error {
	entry, err := catalog.Marker(markerID)
	if err != nil {
		return fmt.Errorf("select marker: %w", err)
	}
	return s.PlaceMarkerFromAsset(entry.URL(s.cfg.AssetBaseURL))
}

// PointerDown handles a button press. The middle button starts a pan override.
func (s *Session) PointerDown(screen r2.Vec, button engine.Button, mods engine.Modifiers) {
	s.do(func() error {
		if button == engine.ButtonMiddle {
			s.tools.BeginOverride(tools.TriggerMiddle, screen)
			return nil
		}
		s.graph.Dispatch(engine.EventPointerDown, screen, button, mods, 0)
		return nil
	})
}

// PointerMove handles pointer motion.
func (s *Session) PointerMove(screen r2.Vec, button engine.Button, mods engine.Modifiers) {
	s.do(func() error {
		s.graph.Dispatch(engine.EventPointerMove, screen, button, mods, 0)
		return nil
	})
}

// PointerUp handles a button release. Releasing the middle button ends its override.
func (s *Session) PointerUp(screen r2.Vec, button engine.Button, mods engine.Modifiers) {
	s.do(func() error {
		if button == engine.ButtonMiddle {
			s.tools.EndOverride(tools.TriggerMiddle)
			return nil
		}
		s.graph.Dispatch(engine.EventPointerUp, screen, button, mods, 0)
		return nil
	})
}

// Wheel zooms around screen.
func (s *Session) Wheel(screen r2.Vec, deltaY float64) {
	s.do(func() error {
		s.graph.Dispatch(engine.EventWheel, screen, engine.ButtonLeft, 0, deltaY)
		return nil
	})
}

// KeyDown handles a key press. Alt starts a pan override anchored at the last
// pointer position; Ctrl/Meta+Z undoes; Ctrl/Meta+Shift+Z and Ctrl/Meta+Y redo;
// Escape drops the stroke in progress.
func (s *Session) KeyDown(key string, mods engine.Modifiers) error {
	return s.do(func() error {
		cmd := mods.Has(engine.ModCtrl) || mods.Has(engine.ModMeta)
		switch k := strings.ToLower(key); {
		case k == "alt":
			s.tools.BeginOverride(tools.TriggerAlt, s.graph.LastPointer())
		case k == "escape":
			s.strokes.Cancel()
		case cmd && k == "z" && mods.Has(engine.ModShift), cmd && k == "y":
			_, err := s.history.Redo()
			return err
		case cmd && k == "z":
			_, err := s.history.Undo()
			return err
		}
		return nil
	})
}

// KeyUp handles a key release. Releasing Alt ends its override.
func (s *Session) KeyUp(key string, mods engine.Modifiers) {
	s.do(func() error {
		if strings.EqualFold(key, "alt") {
			s.tools.EndOverride(tools.TriggerAlt)
		}
		return nil
	})
}

// Resize changes the viewport size.
func (s *Session) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize: invalid size %dx%d", width, height)
	}
	return s.do(func() error {
		s.view.Resize(width, height)
		return nil
	})
}

// Render compiles the scene, followed by a preview of the stroke in progress.
func (s *Session) Render() []engine.DrawCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render()
}

// RenderJSON returns Render as JSON.
func (s *Session) RenderJSON() (string, error) {
	return engine.DrawCommandsToJSON(s.Render())
}

func (s *Session) render() []engine.DrawCommand {
	cmds := s.graph.Render()
	cur := s.strokes.Current()
	if cur == nil || len(cur.Points) < 2 {
		return cmds
	}
	preview := make(engine.Path, 0, len(cur.Points))
	preview = append(preview, engine.MoveTo(cur.Points[0]))
	for _, p := range cur.Points[1:] {
		preview = append(preview, engine.LineTo(p))
	}
	return append(cmds, engine.DrawCommand{
		Op:          "path",
		Transform:   s.view.Matrix().ToSlice(),
		Path:        preview,
		Stroke:      cur.Style.Color,
		StrokeWidth: cur.Style.Width,
	})
}

// Save rasterizes the scene at the export multiplier. The rasterization runs
// outside the lock on a snapshot of the draw commands.
func (s *Session) Save() (*Export, error) {
	s.mu.Lock()
	cmds := s.graph.Render()
	width, height := s.view.Size()
	s.mu.Unlock()

	data, err := s.renderer.RenderPNG(cmds, width, height)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	m := s.cfg.ExportMultiplier
	if m <= 0 {
		m = export.DefaultMultiplier
	}
	out := &Export{
		Filename: s.cfg.ExportFilename,
		Width:    width * m,
		Height:   height * m,
		PNG:      data,
	}
	if s.exports != nil {
		e := s.exports.Put(&export.Export{
			SessionID: s.id,
			Filename:  out.Filename,
			Width:     out.Width,
			Height:    out.Height,
			PNG:       data,
		})
		out.ID = e.ID
		out.URL = "/exports/" + e.ID
	}

	s.metrics.exports.Add(s.ctx, 1, metric.WithAttributes(attribute.String("session", s.id)))
	s.logger.Info("scene exported", "export", out.ID, "width", out.Width, "height", out.Height, "bytes", len(data))
	return out, nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.view.Translation()
	w, h := s.view.Size()
	return State{
		ID:          s.id,
		Map:         s.mapID,
		Tool:        s.tools.Current(),
		Color:       s.strokes.Color(),
		Zoom:        s.view.Zoom(),
		Translation: [2]float64{t.X, t.Y},
		Width:       w,
		Height:      h,
		Objects:     s.graph.Len(),
		Selection:   s.graph.Selection(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
	}
}

// Wait blocks until pending marker placements have committed.
func (s *Session) Wait() {
	s.stamper.Wait()
}

// Close abandons pending marker loads and waits for them to finish.
func (s *Session) Close() {
	s.cancel()
	s.stamper.Wait()
}
