package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/export"
	"github.com/tarkov-debrief/debrief/internal/tools"
)

const scavSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">
<circle cx="12" cy="12" r="10" fill="#ffcc00"/>
</svg>`

func writeAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "maps"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "icons"), 0755))

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for x := 0; x < 640; x += 8 {
		img.Set(x, x%480, color.RGBA{G: 128, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps", "woods.png"), buf.Bytes(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icons", "scav.svg"), []byte(scavSVG), 0644))
	return dir
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 200, 100
	return cfg
}

func newTestSession(t *testing.T) (*Session, *export.Store) {
	t.Helper()
	store := export.NewStore(4)
	s, err := New("sess_test", testConfig(), asset.NewLoader(writeAssets(t), nil), store, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, store
}

func drag(s *Session, from, to r2.Vec) {
	s.PointerDown(from, engine.ButtonLeft, 0)
	s.PointerMove(to, engine.ButtonLeft, 0)
	s.PointerUp(to, engine.ButtonLeft, 0)
}

func TestSession_WoodsScenario(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.LoadMap(ctx, "woods"))
	st := s.State()
	assert.Equal(t, "woods", st.Map)
	assert.Equal(t, 1, st.Objects)
	assert.False(t, st.CanUndo)
	assert.Equal(t, tools.Pencil, st.Tool.Type)

	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 50, Y: 50})
	require.Equal(t, 2, s.State().Objects)

	require.NoError(t, s.SelectTool("eraser"))
	drag(s, r2.Vec{X: 30, Y: 30}, r2.Vec{X: 30, Y: 30})
	require.Equal(t, 1, s.State().Objects)
	assert.Equal(t, "image", s.Render()[0].Op)

	ok, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, s.State().Objects)

	ok, err = s.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.State().Objects)

	ok, err = s.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.State().Objects)
}

func TestSession_UndoRedoReplaysEverything(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.LoadMap(context.Background(), "woods"))

	strokes := [][2]r2.Vec{
		{{X: 10, Y: 10}, {X: 60, Y: 10}},
		{{X: 200, Y: 200}, {X: 260, Y: 200}},
		{{X: 400, Y: 400}, {X: 460, Y: 400}},
	}
	for _, st := range strokes {
		drag(s, st[0], st[1])
	}
	after, err := s.RenderJSON()
	require.NoError(t, err)
	require.Equal(t, 4, s.State().Objects)

	for range strokes {
		ok, err := s.Undo()
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 1, s.State().Objects)
	assert.False(t, s.State().CanUndo)

	for range strokes {
		ok, err := s.Redo()
		require.NoError(t, err)
		require.True(t, ok)
	}
	replayed, err := s.RenderJSON()
	require.NoError(t, err)
	assert.JSONEq(t, after, replayed)
}

func TestSession_BackgroundIsProtected(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.LoadMap(context.Background(), "woods"))
	require.NoError(t, s.SelectTool("eraser"))

	drag(s, r2.Vec{X: 100, Y: 100}, r2.Vec{X: 150, Y: 80})
	assert.Equal(t, 1, s.State().Objects)
	assert.False(t, s.State().CanUndo)
}

func TestSession_ReloadingMapReplacesBackground(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.LoadMap(ctx, "woods"))
	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 50, Y: 50})

	require.NoError(t, s.LoadBackground(ctx, "/assets/maps/woods.png"))
	st := s.State()
	assert.Equal(t, 2, st.Objects)
	assert.False(t, st.CanUndo)
	assert.Equal(t, "image", s.Render()[0].Op)
}

func TestSession_FailedMapLeavesSceneUntouched(t *testing.T) {
	s, _ := newTestSession(t)

	err := s.LoadMap(context.Background(), "labs")
	require.Error(t, err)
	assert.ErrorIs(t, err, asset.ErrAssetLoad)
	assert.Equal(t, 0, s.State().Objects)

	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 50, Y: 50})
	assert.Equal(t, 1, s.State().Objects)
}

func TestSession_TwoMarkersAreIndependent(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.LoadMap(context.Background(), "woods"))

	require.NoError(t, s.SelectMarker("scav"))
	st := s.State()
	assert.Equal(t, tools.Marker, st.Tool.Type)
	assert.Equal(t, "url(/assets/icons/scav.svg), auto", st.Tool.Cursor)

	for _, p := range []r2.Vec{{X: 100, Y: 100}, {X: 300, Y: 300}} {
		s.PointerDown(p, engine.ButtonLeft, 0)
		s.PointerUp(p, engine.ButtonLeft, 0)
	}
	s.PointerDown(r2.Vec{X: 50, Y: 50}, engine.ButtonLeft, engine.ModAlt)
	s.PointerUp(r2.Vec{X: 50, Y: 50}, engine.ButtonLeft, engine.ModAlt)
	s.Wait()
	require.Equal(t, 3, s.State().Objects)

	require.NoError(t, s.SelectTool("eraser"))
	drag(s, r2.Vec{X: 110, Y: 110}, r2.Vec{X: 110, Y: 110})
	assert.Equal(t, 2, s.State().Objects)

	cmds := s.Render()
	require.Len(t, cmds, 2)
	assert.Equal(t, "/assets/icons/scav.svg", cmds[1].Source)
	assert.Equal(t, []float64{1, 0, 0, 1, 300, 300}, cmds[1].Transform)
}

func TestSession_AltOverrideRestoresTool(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.SelectTool("eraser"))
	before := s.State().Tool

	s.PointerMove(r2.Vec{X: 100, Y: 100}, engine.ButtonLeft, 0)
	require.NoError(t, s.KeyDown("Alt", engine.ModAlt))
	assert.Equal(t, tools.Pan, s.State().Tool.Type)

	s.PointerMove(r2.Vec{X: 130, Y: 90}, engine.ButtonLeft, engine.ModAlt)
	assert.Equal(t, [2]float64{30, -10}, s.State().Translation)

	s.KeyUp("Alt", 0)
	assert.Equal(t, before, s.State().Tool)
}

func TestSession_MiddleButtonPans(t *testing.T) {
	s, _ := newTestSession(t)
	s.PointerDown(r2.Vec{X: 10, Y: 10}, engine.ButtonMiddle, 0)
	s.PointerMove(r2.Vec{X: 20, Y: 30}, engine.ButtonMiddle, 0)
	s.PointerUp(r2.Vec{X: 20, Y: 30}, engine.ButtonMiddle, 0)

	st := s.State()
	assert.Equal(t, [2]float64{10, 20}, st.Translation)
	assert.Equal(t, tools.Pencil, st.Tool.Type)
	assert.Equal(t, 0, st.Objects)
}

func TestSession_KeyboardHistory(t *testing.T) {
	s, _ := newTestSession(t)
	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 50, Y: 50})

	require.NoError(t, s.KeyDown("z", engine.ModCtrl))
	assert.Equal(t, 0, s.State().Objects)
	require.NoError(t, s.KeyDown("Z", engine.ModMeta|engine.ModShift))
	assert.Equal(t, 1, s.State().Objects)
	require.NoError(t, s.KeyDown("z", engine.ModCtrl))
	require.NoError(t, s.KeyDown("y", engine.ModCtrl))
	assert.Equal(t, 1, s.State().Objects)
	require.NoError(t, s.KeyDown("z", 0))
	assert.Equal(t, 1, s.State().Objects)
}

func TestSession_WheelZoomRescalesBrush(t *testing.T) {
	s, _ := newTestSession(t)
	s.Wheel(r2.Vec{X: 0, Y: 0}, -1000)
	zoom := s.State().Zoom
	assert.InDelta(t, 2.7196, zoom, 1e-3)

	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 100, Y: 100})
	cmds := s.Render()
	require.Len(t, cmds, 1)
	assert.InDelta(t, 5/zoom, cmds[0].StrokeWidth, 1e-9)
}

func TestSession_RenderIncludesStrokePreview(t *testing.T) {
	s, _ := newTestSession(t)
	s.PointerDown(r2.Vec{X: 10, Y: 10}, engine.ButtonLeft, 0)
	s.PointerMove(r2.Vec{X: 40, Y: 10}, engine.ButtonLeft, 0)

	cmds := s.Render()
	require.Len(t, cmds, 1)
	assert.Empty(t, cmds[0].ObjectID)
	assert.Equal(t, 0, s.State().Objects)

	require.NoError(t, s.KeyDown("Escape", 0))
	s.PointerUp(r2.Vec{X: 40, Y: 10}, engine.ButtonLeft, 0)
	assert.Empty(t, s.Render())
}

func TestSession_SaveStoresExport(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.LoadMap(context.Background(), "woods"))
	drag(s, r2.Vec{X: 10, Y: 10}, r2.Vec{X: 50, Y: 50})

	e, err := s.Save()
	require.NoError(t, err)
	assert.Equal(t, "strategy.png", e.Filename)
	assert.Equal(t, "/exports/"+e.ID, e.URL)
	assert.Equal(t, 600, e.Width)
	assert.Equal(t, 300, e.Height)

	img, err := png.Decode(bytes.NewReader(e.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 300), img.Bounds())

	stored, err := store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess_test", stored.SessionID)
}

func TestSession_OnRenderFiresOutsideLock(t *testing.T) {
	s, _ := newTestSession(t)
	var renders atomic.Int32
	s.OnRender(func() {
		_ = s.State()
		renders.Add(1)
	})

	require.NoError(t, s.SetColor("#00ff00"))
	assert.Equal(t, "#00ff00", s.State().Color)
	assert.Error(t, s.SetColor("green"))
	assert.Equal(t, int32(2), renders.Load())
}

func TestSession_InvalidInput(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.SelectTool("lasso"), tools.ErrInvalidTool)
	assert.Error(t, s.Resize(0, 10))
	assert.Error(t, s.SelectMarker("boss"))
	assert.Equal(t, tools.Pencil, s.State().Tool.Type)
}
