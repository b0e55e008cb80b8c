package marker

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/history"
	"github.com/tarkov-debrief/debrief/internal/viewport"
)

type countingLoader struct {
	calls   atomic.Int32
	release chan struct{}
	fail    atomic.Bool
}

func (l *countingLoader) Load(ctx context.Context, url string) (image.Image, error) {
	l.calls.Add(1)
	if l.release != nil {
		<-l.release
	}
	if l.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

func mutexRunner() Runner {
	var mu sync.Mutex
	return RunnerFunc(func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	})
}

func TestCache_SharesInFlightLoad(t *testing.T) {
	loader := &countingLoader{release: make(chan struct{})}
	cache := NewCache(loader)

	var wg sync.WaitGroup
	results := make([]*Template, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tpl, err := cache.Get(context.Background(), "icons/scav.svg")
			assert.NoError(t, err)
			results[i] = tpl
		}(i)
	}

	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(loader.release)
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, 1, cache.Len())
	for _, tpl := range results {
		assert.Same(t, results[0], tpl)
	}
}

func TestCache_FailureIsRetried(t *testing.T) {
	loader := &countingLoader{}
	loader.fail.Store(true)
	cache := NewCache(loader)

	_, err := cache.Get(context.Background(), "icons/missing.svg")
	require.Error(t, err)
	assert.ErrorIs(t, err, asset.ErrAssetLoad)
	assert.Equal(t, 0, cache.Len())

	loader.fail.Store(false)
	tpl, err := cache.Get(context.Background(), "icons/missing.svg")
	require.NoError(t, err)
	assert.Equal(t, 16, tpl.Image.Bounds().Dx())
	assert.Equal(t, int32(2), loader.calls.Load())
}

func newStamper(t *testing.T, loader Loader) (*Stamper, *engine.Graph, *history.Stack, *viewport.Viewport) {
	t.Helper()
	vp := viewport.New(800, 600)
	g := engine.NewGraph(vp, nil)
	h := history.NewStack(g)
	s, err := NewStamper(NewCache(loader), vp, h, mutexRunner(), nil)
	require.NoError(t, err)
	return s, g, h, vp
}

func TestStamper_PlaceUsesClickTimeZoom(t *testing.T) {
	s, g, _, vp := newStamper(t, &countingLoader{})
	vp.ZoomAt(r2.Vec{}, 2)

	obj, err := s.Place(context.Background(), "icons/pmc-med.svg", r2.Vec{X: 100, Y: 50})
	require.NoError(t, err)

	assert.Equal(t, 1, g.Len())
	assert.InDelta(t, 0.5, obj.Scale, 1e-9)
	assert.InDelta(t, 50, obj.Position.X, 1e-9)
	assert.InDelta(t, 25, obj.Position.Y, 1e-9)
	assert.True(t, obj.Erasable)
}

func TestStamper_PlaceAsyncCapturesPositionBeforeLoad(t *testing.T) {
	loader := &countingLoader{release: make(chan struct{})}
	s, g, _, vp := newStamper(t, loader)

	s.PlaceAsync(context.Background(), "icons/scav.svg", r2.Vec{X: 10, Y: 10})
	vp.Pan(500, 500)
	close(loader.release)
	s.Wait()

	objs := g.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, r2.Vec{X: 10, Y: 10}, objs[0].Position)
}

func TestStamper_MarkersAreIndependent(t *testing.T) {
	s, g, h, _ := newStamper(t, &countingLoader{})

	a, err := s.Place(context.Background(), "icons/scav.svg", r2.Vec{X: 10, Y: 10})
	require.NoError(t, err)
	b, err := s.Place(context.Background(), "icons/scav.svg", r2.Vec{X: 200, Y: 200})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, g.Len())

	require.NoError(t, h.Commit(history.Remove(a)))
	assert.Equal(t, 1, g.Len())
	_, ok := g.Get(b.ID)
	assert.True(t, ok)
}

func TestStamper_FailedLoadPlacesNothing(t *testing.T) {
	loader := &countingLoader{}
	loader.fail.Store(true)
	s, g, h, _ := newStamper(t, loader)

	s.PlaceAsync(context.Background(), "icons/scav.svg", r2.Vec{X: 1, Y: 1})
	s.Wait()
	assert.Equal(t, 0, g.Len())
	assert.False(t, h.CanUndo())

	loader.fail.Store(false)
	_, err := s.Place(context.Background(), "icons/scav.svg", r2.Vec{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
}
