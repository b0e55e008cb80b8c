package live

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tarkov-debrief/debrief/internal/session"
)

type Handler struct {
	hub            *Hub
	registry       *session.Registry
	originPatterns []string
}

// NewHandler creates the WebSocket endpoint. originPatterns are host
// patterns accepted in the Origin header, e.g. "localhost:5173".
func NewHandler(hub *Hub, registry *session.Registry, originPatterns []string) *Handler {
	return &Handler{hub: hub, registry: registry, originPatterns: originPatterns}
}

// ServeWS handles GET /ws/sessions/{sessionId}. Authentication happens in
// middleware before the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	s, err := h.registry.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, s, clientID)

	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
