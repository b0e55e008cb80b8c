package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

func sampleCommands() []engine.DrawCommand {
	bg := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for x := 0; x < 20; x++ {
		for y := 0; y < 10; y++ {
			bg.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	g := engine.NewGraph(nil, nil)
	g.Add(engine.NewImage("maps/woods.png", bg))
	g.Add(engine.NewPath(engine.Path{
		engine.MoveTo(r2.Vec{X: 1, Y: 1}),
		engine.LineTo(r2.Vec{X: 15, Y: 8}),
	}, "#f00", 2))
	return g.Render()
}

func TestRenderer_ScalesCanvas(t *testing.T) {
	data, err := Renderer{Multiplier: 3}.RenderPNG(sampleCommands(), 40, 30)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())

	_, g, _, a := img.At(55, 25).RGBA()
	assert.NotZero(t, a)
	assert.NotZero(t, g)

	_, _, _, a = img.At(100, 80).RGBA()
	assert.Zero(t, a)
}

func TestRenderer_RejectsEmptySize(t *testing.T) {
	_, err := Renderer{}.Render(nil, 0, 10)
	assert.Error(t, err)
}

func TestStore_DropsOldest(t *testing.T) {
	s := NewStore(2)
	a := s.Put(&Export{Filename: "strategy.png"})
	s.Put(&Export{Filename: "strategy.png"})
	c := s.Put(&Export{Filename: "strategy.png"})

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Get(c.ID)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestHandler_Download(t *testing.T) {
	s := NewStore(4)
	e := s.Put(&Export{Filename: "strategy.png", PNG: []byte("png-bytes")})

	r := mux.NewRouter()
	r.HandleFunc("/exports/{exportId}", NewHandler(s).Download).Methods("GET")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/"+e.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="strategy.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
