package marker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/history"
)

// Runner executes fn on the scene's event loop.
type Runner interface {
	Run(fn func())
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(fn func())

func (f RunnerFunc) Run(fn func()) { f(fn) }

// Projector converts a screen point to scene space at the current zoom.
type Projector interface {
	ScreenToScene(p r2.Vec) r2.Vec
	Zoom() float64
}

// placement is the click-time state of one marker request.
type placement struct {
	url   string
	scene r2.Vec
	scale float64
}

// Stamper places clones of marker templates on the scene. Placements keep
// the same on-screen size as the icon at the zoom they were requested at.
type Stamper struct {
	cache     *Cache
	projector Projector
	history   *history.Stack
	run       Runner
	logger    *slog.Logger

	wg sync.WaitGroup

	placed   metric.Int64Counter
	failures metric.Int64Counter
}

// NewStamper creates a stamper. Commits go through run so they land on the event loop.
func NewStamper(cache *Cache, projector Projector, h *history.Stack, run Runner, logger *slog.Logger) (*Stamper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stamper{
		cache:     cache,
		projector: projector,
		history:   h,
		run:       run,
		logger:    logger,
	}

	m := meter()
	var err error
	s.placed, err = m.Int64Counter(
		"debrief.marker.placed",
		metric.WithDescription("Markers committed to the scene"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating placed counter: %w", err)
	}
	s.failures, err = m.Int64Counter(
		"debrief.marker.failures",
		metric.WithDescription("Marker placements abandoned because the template failed to load"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}
	return s, nil
}

// Cache returns the template cache.
func (s *Stamper) Cache() *Cache { return s.cache }

// PlaceAsync requests a marker at screen. The scene position and scale are
// captured now; the template load and commit happen in the background.
// Must be called on the event loop.
func (s *Stamper) PlaceAsync(ctx context.Context, url string, screen r2.Vec) {
	p := s.capture(url, screen)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.complete(ctx, p); err != nil {
			s.logger.Warn("marker placement failed", "url", url, "error", err)
		}
	}()
}

// Place requests a marker at screen and blocks until it is committed.
// Must not be called on the event loop.
func (s *Stamper) Place(ctx context.Context, url string, screen r2.Vec) (*engine.SceneObject, error) {
	var p placement
	s.run.Run(func() { p = s.capture(url, screen) })
	return s.complete(ctx, p)
}

// Prefetch warms the cache for url in the background.
func (s *Stamper) Prefetch(ctx context.Context, url string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.cache.Get(ctx, url); err != nil {
			s.logger.Warn("marker prefetch failed", "url", url, "error", err)
		}
	}()
}

// Wait blocks until every pending placement and prefetch has finished.
func (s *Stamper) Wait() {
	s.wg.Wait()
}

func (s *Stamper) capture(url string, screen r2.Vec) placement {
	scale := 1.0
	if z := s.projector.Zoom(); z > 0 {
		scale = 1 / z
	}
	return placement{url: url, scene: s.projector.ScreenToScene(screen), scale: scale}
}

func (s *Stamper) complete(ctx context.Context, p placement) (*engine.SceneObject, error) {
	urlAttr := metric.WithAttributes(attribute.String("url", p.url))

	tpl, err := s.cache.Get(ctx, p.url)
	if err != nil {
		s.failures.Add(context.Background(), 1, urlAttr)
		return nil, fmt.Errorf("load marker: %w", err)
	}

	obj := tpl.Instantiate()
	obj.Position = p.scene
	obj.Scale = p.scale

	s.run.Run(func() {
		err = s.history.Commit(history.Add(obj))
	})
	if err != nil {
		return nil, fmt.Errorf("commit marker: %w", err)
	}
	s.placed.Add(context.Background(), 1, urlAttr)
	s.logger.Debug("marker placed", "object", obj.ID, "url", p.url)
	return obj, nil
}
