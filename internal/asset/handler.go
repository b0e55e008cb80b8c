package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tarkov-debrief/debrief/internal/typeid"
)

const (
	maxUploadSize = 10 << 20 // 10MB

	// Custom markers larger than this on either side are rejected.
	maxMarkerSide = 1024
)

var (
	errUnsupportedType = errors.New("only PNG, JPEG, WebP and SVG images are supported")
	errTooLarge        = fmt.Errorf("marker images must be at most %dx%d", maxMarkerSide, maxMarkerSide)
)

var uploadTypes = []string{"image/png", "image/jpeg", "image/webp", "image/svg+xml"}

// UploadResponse describes a stored custom marker.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Handler serves map and marker images and accepts custom marker uploads.
type Handler struct {
	dir string
}

// NewHandler serves and stores files in dir, creating it if needed.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Every accepted image is normalized to PNG so a custom marker rasterizes
// the same way as the bundled ones.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	if !acceptedType(header.Header.Get("Content-Type")) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errUnsupportedType.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	img, err := Decode(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image: " + err.Error()})
		return
	}
	if b := img.Bounds(); b.Dx() > maxMarkerSide || b.Dy() > maxMarkerSide {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errTooLarge.Error()})
		return
	}

	resp, err := h.store(header.Filename, img)
	if err != nil {
		slog.Error("store uploaded marker", "name", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	slog.Info("marker uploaded", "asset", resp.ID, "name", resp.Name, "width", resp.Width, "height", resp.Height)
	writeJSON(w, http.StatusOK, resp)
}

// store writes img as <asset id>.png under the asset directory.
func (h *Handler) store(name string, img image.Image) (UploadResponse, error) {
	id := typeid.NewAssetID()
	filename := id + ".png"
	path := filepath.Join(h.dir, filename)

	out, err := os.Create(path)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return UploadResponse{}, fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return UploadResponse{}, fmt.Errorf("close file: %w", err)
	}

	b := img.Bounds()
	return UploadResponse{
		ID:     id,
		URL:    "/assets/" + filename,
		Width:  b.Dx(),
		Height: b.Dy(),
		Name:   name,
	}, nil
}

// Serve returns an http.Handler for the asset directory. Map, icon and
// upload files never change in place, so responses are cached for good.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func acceptedType(contentType string) bool {
	for _, t := range uploadTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
