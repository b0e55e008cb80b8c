package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markerSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24" height="24">
<circle cx="12" cy="12" r="10" fill="#ff0000"/>
</svg>`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoader_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "maps"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps", "woods.png"), pngBytes(t, 40, 30), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scav.svg"), []byte(markerSVG), 0644))

	l := NewLoader(dir, nil)

	img, err := l.Load(context.Background(), "/assets/maps/woods.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

	icon, err := l.Load(context.Background(), "scav.svg")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 24, 24), icon.Bounds())
	_, _, _, a := icon.At(12, 12).RGBA()
	assert.NotZero(t, a)
}

func TestLoader_PathTraversalStaysInDir(t *testing.T) {
	l := NewLoader(t.TempDir(), nil)
	_, err := l.Load(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrAssetLoad)
}

func TestLoader_HTTP(t *testing.T) {
	body := pngBytes(t, 8, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	l := NewLoader(t.TempDir(), srv.Client())

	img, err := l.Load(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssetLoad)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, srv.URL+"/missing.png", loadErr.URL)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode("notes.txt", []byte("not an image"))
	assert.Error(t, err)
}

func TestHandler_UploadStoresPNG(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="marker.svg"`)
	hdr.Set("Content-Type", "image/svg+xml")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte(markerSVG))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 24, resp.Width)
	assert.FileExists(t, filepath.Join(dir, resp.ID+".png"))

	serve := httptest.NewRecorder()
	h.Serve().ServeHTTP(serve, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	assert.Equal(t, http.StatusOK, serve.Code)
	assert.Contains(t, serve.Header().Get("Cache-Control"), "immutable")
}

func TestHandler_UploadRejectsType(t *testing.T) {
	h := NewHandler(t.TempDir())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	part.Write([]byte("hello"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UploadRejectsOversizedMarker(t *testing.T) {
	h := NewHandler(t.TempDir())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="huge.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, maxMarkerSide+1, 4))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most")
}
