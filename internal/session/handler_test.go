package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/export"
)

type staticTokens struct{}

func (staticTokens) IssueToken(sessionID string) (string, error) { return "token-" + sessionID, nil }

func newTestRouter(t *testing.T) (*mux.Router, *Registry) {
	t.Helper()
	reg := NewRegistry(testConfig(), asset.NewLoader(writeAssets(t), nil), export.NewStore(4), nil)
	t.Cleanup(reg.Close)
	h := NewHandler(reg, staticTokens{})

	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", h.Create).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}", h.Get).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/sessions/{sessionId}/map", h.LoadMap).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/tool", h.SelectTool).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/color", h.SetColor).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/undo", h.Undo).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/save", h.Save).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/render", h.Render).Methods("GET")
	return r, reg
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler_Lifecycle(t *testing.T) {
	r, reg := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.State.ID
	assert.Equal(t, "token-"+id, created.Token)
	assert.Equal(t, 1, reg.Len())

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/map", mapRequest{Map: "woods"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/map", mapRequest{Map: "lighthouse"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/map", mapRequest{Map: "labs"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/tool", toolRequest{Tool: "lasso"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/color", colorRequest{Color: "#0f0"})
	require.Equal(t, http.StatusOK, rec.Code)
	var st State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "#0f0", st.Color)
	assert.Equal(t, "woods", st.Map)

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.False(t, hist.Changed)

	rec = do(t, r, http.MethodGet, "/api/sessions/"+id+"/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"op":"image"`)

	rec = do(t, r, http.MethodPost, "/api/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var e Export
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "strategy.png", e.Filename)
	assert.Equal(t, 600, e.Width)

	rec = do(t, r, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
