package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/catalog"
	"github.com/tarkov-debrief/debrief/internal/stroke"
	"github.com/tarkov-debrief/debrief/internal/tools"
)

// TokenIssuer signs access tokens for a session.
type TokenIssuer interface {
	IssueToken(sessionID string) (string, error)
}

type Handler struct {
	registry *Registry
	tokens   TokenIssuer
}

func NewHandler(registry *Registry, tokens TokenIssuer) *Handler {
	return &Handler{registry: registry, tokens: tokens}
}

type createResponse struct {
	Token string `json:"token"`
	State State  `json:"state"`
}

type mapRequest struct {
	Map string `json:"map"`
	URL string `json:"url"`
}

type toolRequest struct {
	Tool string `json:"tool"`
}

type colorRequest struct {
	Color string `json:"color"`
}

type markerRequest struct {
	Marker string `json:"marker"`
	URL    string `json:"url"`
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type historyResponse struct {
	Changed bool  `json:"changed"`
	State   State `json:"state"`
}

// Create handles POST /api/sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Create()
	if err != nil {
		slog.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	token, err := h.tokens.IssueToken(s.ID())
	if err != nil {
		slog.Error("issue token failed", "session", s.ID(), "error", err)
		h.registry.Delete(s.ID())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{Token: token, State: s.State()})
}

// Get handles GET /api/sessions/{sessionId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Delete handles DELETE /api/sessions/{sessionId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(mux.Vars(r)["sessionId"]); err != nil {
		handleSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadMap handles POST /api/sessions/{sessionId}/map.
func (h *Handler) LoadMap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var err error
	switch {
	case req.Map != "":
		err = s.LoadMap(r.Context(), req.Map)
	case req.URL != "":
		err = s.LoadBackground(r.Context(), req.URL)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "map or url is required"})
		return
	}
	if err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// SelectTool handles POST /api/sessions/{sessionId}/tool.
func (h *Handler) SelectTool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.SelectTool(req.Tool); err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// SetColor handles POST /api/sessions/{sessionId}/color.
func (h *Handler) SetColor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.SetColor(req.Color); err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// SelectMarker handles POST /api/sessions/{sessionId}/marker.
func (h *Handler) SelectMarker(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req markerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var err error
	switch {
	case req.Marker != "":
		err = s.SelectMarker(req.Marker)
	case req.URL != "":
		err = s.PlaceMarkerFromAsset(req.URL)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "marker or url is required"})
		return
	}
	if err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Resize handles POST /api/sessions/{sessionId}/resize.
func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.Resize(req.Width, req.Height); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Undo handles POST /api/sessions/{sessionId}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, (*Session).Undo)
}

// Redo handles POST /api/sessions/{sessionId}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, (*Session).Redo)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, op func(*Session) (bool, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	changed, err := op(s)
	if err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Changed: changed, State: s.State()})
}

// Save handles POST /api/sessions/{sessionId}/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Wait()
	e, err := s.Save()
	if err != nil {
		handleSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Render handles GET /api/sessions/{sessionId}/render.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Render())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.registry.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		handleSessionError(w, err)
		return nil, false
	}
	return s, true
}

func handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, tools.ErrInvalidTool),
		errors.Is(err, stroke.ErrInvalidColor),
		errors.Is(err, catalog.ErrUnknownMap),
		errors.Is(err, catalog.ErrUnknownMarker):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, asset.ErrAssetLoad):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		slog.Error("session error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
