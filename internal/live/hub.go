package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/session"
)

var errUnknownType = errors.New("unknown message type")

// Hub tracks the connected client of each session. A session has at most one
// client; a new connection replaces the older one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // sessionID -> client
	watched map[string]bool    // sessions with a render listener installed

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		watched:    make(map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Client returns the connected client of a session, or nil.
func (h *Hub) Client(sessionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[sessionID]
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	old := h.clients[client.SessionID]
	h.clients[client.SessionID] = client
	watch := !h.watched[client.SessionID]
	h.watched[client.SessionID] = true
	h.mu.Unlock()

	if old != nil && old != client {
		old.close()
		slog.Info("client replaced", "session", client.SessionID, "old", old.ClientID, "new", client.ClientID)
	}

	if watch {
		s, sessionID := client.session, client.SessionID
		s.OnRender(func() { h.pushRender(sessionID, s) })
	}

	if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, State: client.session.State()}); err == nil {
		client.Send(msg)
	}
	h.pushRender(client.SessionID, client.session)

	slog.Info("client joined", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.SessionID] == client {
		delete(h.clients, client.SessionID)
	}
	h.mu.Unlock()

	client.close()
	slog.Info("client left", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// pushRender sends the current draw commands and state to the session's client.
func (h *Hub) pushRender(sessionID string, s *session.Session) {
	c := h.Client(sessionID)
	if c == nil {
		return
	}
	if msg, err := newMessage(TypeRender, RenderPayload{Commands: s.Render()}); err == nil {
		c.Send(msg)
	}
	if msg, err := newMessage(TypeState, s.State()); err == nil {
		c.Send(msg)
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	if err := h.apply(ctx, sender, msg); err != nil {
		slog.Debug("message rejected", "type", msg.Type, "error", err, "client", sender.ClientID)
		if out, mErr := newMessage(TypeError, ErrorPayload{Request: msg.Type, Message: err.Error()}); mErr == nil {
			out.Seq = msg.Seq
			sender.Send(out)
		}
	}
}

func (h *Hub) apply(ctx context.Context, sender *Client, msg *Message) error {
	s := sender.session

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		button, mods := engine.Button(p.Button), p.Modifiers()
		switch msg.Type {
		case TypePointerDown:
			s.PointerDown(p.Screen(), button, mods)
		case TypePointerMove:
			s.PointerMove(p.Screen(), button, mods)
		default:
			s.PointerUp(p.Screen(), button, mods)
		}
		return nil

	case TypeWheel:
		var p WheelPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.Wheel(PointerPayload{X: p.X, Y: p.Y}.Screen(), p.DeltaY)
		return nil

	case TypeKeyDown:
		var p KeyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.KeyDown(p.Key, p.Modifiers())

	case TypeKeyUp:
		var p KeyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		s.KeyUp(p.Key, p.Modifiers())
		return nil

	case TypeToolSelect:
		var p ToolPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SelectTool(p.Tool)

	case TypeColorSet:
		var p ColorPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.SetColor(p.Color)

	case TypeHistoryUndo:
		_, err := s.Undo()
		return err

	case TypeHistoryRedo:
		_, err := s.Redo()
		return err

	case TypeMarkerSelect:
		var p MarkerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.Marker != "" {
			return s.SelectMarker(p.Marker)
		}
		return s.PlaceMarkerFromAsset(p.URL)

	case TypeMapLoad:
		var p MapPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.Map != "" {
			return s.LoadMap(ctx, p.Map)
		}
		return s.LoadBackground(ctx, p.URL)

	case TypeResize:
		var p ResizePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return s.Resize(p.Width, p.Height)

	case TypeSave:
		s.Wait()
		e, err := s.Save()
		if err != nil {
			return err
		}
		out, err := newMessage(TypeExport, e)
		if err != nil {
			return err
		}
		out.Seq = msg.Seq
		sender.Send(out)
		return nil

	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", msg.Type, err)
	}
	return nil
}
