package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/retrieval"
)

func TestSyncVectorStore_SyncAndClear(t *testing.T) {
	srv, _, _ := newTestServer(t, &scriptedClient{})

	rec := postJSON(t, srv, "/api/syncVectorStore", map[string]any{
		"action":    "sync",
		"sessionId": "sess-1",
		"files": []retrieval.File{
			{Path: "src/auth.ts", Name: "auth.ts", Language: "typescript", Content: "function auth() {}"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "synced with 1 files")
	assert.Equal(t, 1, srv.vectors.Count("sess-1"))

	rec = postJSON(t, srv, "/api/syncVectorStore", map[string]any{
		"action":    "clear",
		"sessionId": "sess-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.vectors.Count("sess-1"))
}

func TestSyncVectorStore_BadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, &scriptedClient{})

	rec := postJSON(t, srv, "/api/syncVectorStore", map[string]any{"action": "sync"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, "/api/syncVectorStore", map[string]any{"action": "reindex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSave_IndexesFile(t *testing.T) {
	srv, _, _ := newTestServer(t, &scriptedClient{})

	rec := postJSON(t, srv, "/api/save", map[string]any{
		"sessionId": "sess-1",
		"file": retrieval.File{
			Path: "src/view.ts", Name: "view.ts", Language: "typescript", Content: "function render() {}",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Indexed 1 file(s)")

	rec = postJSON(t, srv, "/api/save", map[string]any{"sessionId": "sess-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions_TrackedAcrossRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, &scriptedClient{})
	postJSON(t, srv, "/api/syncVectorStore", map[string]any{"action": "clear", "sessionId": "sess-9"})

	req, rec := getRequest("/api/sessions")
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody(t, rec)["sessions"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-9", sessions[0].(map[string]any)["id"])
}

func getRequest(path string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder()
}
