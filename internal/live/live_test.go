package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/engine"
	"github.com/tarkov-debrief/debrief/internal/export"
	"github.com/tarkov-debrief/debrief/internal/session"
)

func newRegistry(t *testing.T) *session.Registry {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Width, cfg.Height = 100, 80
	reg := session.NewRegistry(cfg, asset.NewLoader(t.TempDir(), nil), export.NewStore(2), nil)
	t.Cleanup(reg.Close)
	return reg
}

func mustMessage(t *testing.T, typ string, payload any) *Message {
	t.Helper()
	msg, err := newMessage(typ, payload)
	require.NoError(t, err)
	return msg
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case data := <-c.send:
			var m Message
			if json.Unmarshal(data, &m) == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func TestHub_OneClientPerSession(t *testing.T) {
	reg := newRegistry(t)
	s, err := reg.Create()
	require.NoError(t, err)
	hub := NewHub()

	first := NewClient(hub, nil, s, "c1")
	hub.addClient(first)
	assert.Equal(t, []string{TypeWelcome, TypeRender, TypeState}, types(drain(first)))

	second := NewClient(hub, nil, s, "c2")
	hub.addClient(second)
	assert.Same(t, second, hub.Client(s.ID()))
	assert.True(t, first.closed)

	// the replaced client's late unregister must not evict its successor
	hub.removeClient(first)
	assert.Same(t, second, hub.Client(s.ID()))

	hub.removeClient(second)
	assert.Nil(t, hub.Client(s.ID()))
}

func TestHub_AppliesInputAndPushesRenders(t *testing.T) {
	reg := newRegistry(t)
	s, err := reg.Create()
	require.NoError(t, err)
	hub := NewHub()
	c := NewClient(hub, nil, s, "c1")
	hub.addClient(c)
	drain(c)

	ctx := context.Background()
	hub.handleMessage(ctx, c, mustMessage(t, TypePointerDown, PointerPayload{X: 10, Y: 10}))
	hub.handleMessage(ctx, c, mustMessage(t, TypePointerMove, PointerPayload{X: 50, Y: 50}))
	hub.handleMessage(ctx, c, mustMessage(t, TypePointerUp, PointerPayload{X: 50, Y: 50}))
	assert.Equal(t, 1, s.State().Objects)

	msgs := drain(c)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.Equal(t, TypeState, last.Type)
	var st session.State
	require.NoError(t, json.Unmarshal(last.Payload, &st))
	assert.Equal(t, 1, st.Objects)

	hub.handleMessage(ctx, c, mustMessage(t, TypeKeyDown, KeyPayload{Key: "z", ModifierFlags: ModifierFlags{Ctrl: true}}))
	assert.Equal(t, 0, s.State().Objects)
	drain(c)

	hub.handleMessage(ctx, c, mustMessage(t, TypeToolSelect, ToolPayload{Tool: "lasso"}))
	hub.handleMessage(ctx, c, &Message{Type: "object.transform", Seq: 7})
	msgs = drain(c)
	var errs []ErrorPayload
	for _, m := range msgs {
		if m.Type == TypeError {
			var p ErrorPayload
			require.NoError(t, json.Unmarshal(m.Payload, &p))
			errs = append(errs, p)
		}
	}
	require.Len(t, errs, 2)
	assert.Equal(t, TypeToolSelect, errs[0].Request)
	assert.Equal(t, "object.transform", errs[1].Request)

	hub.handleMessage(ctx, c, &Message{Type: TypeSave, Seq: 9})
	var exported bool
	for _, m := range drain(c) {
		if m.Type == TypeExport {
			exported = true
			assert.Equal(t, int64(9), m.Seq)
			var e session.Export
			require.NoError(t, json.Unmarshal(m.Payload, &e))
			assert.Equal(t, 300, e.Width)
			assert.Equal(t, "strategy.png", e.Filename)
		}
	}
	assert.True(t, exported)
}

func TestModifierFlags(t *testing.T) {
	m := ModifierFlags{Alt: true, Meta: true}.Modifiers()
	assert.True(t, m.Has(engine.ModAlt|engine.ModMeta))
	assert.False(t, m.Has(engine.ModCtrl))
}

func TestHandler_WebSocketRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	s, err := reg.Create()
	require.NoError(t, err)

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	r := mux.NewRouter()
	r.HandleFunc("/ws/sessions/{sessionId}", NewHandler(hub, reg, nil).ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + s.ID()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	send := func(msg *Message) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	}

	welcome := read()
	require.Equal(t, TypeWelcome, welcome.Type)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	assert.Equal(t, s.ID(), wp.State.ID)

	send(mustMessage(t, TypeColorSet, ColorPayload{Color: "#00f"}))
	for {
		m := read()
		if m.Type != TypeState {
			continue
		}
		var st session.State
		require.NoError(t, json.Unmarshal(m.Payload, &st))
		if st.Color == "#00f" {
			break
		}
	}

	_, _, err = websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/sessions/sess_missing", nil)
	assert.Error(t, err)
}
