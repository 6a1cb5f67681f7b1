package server

import (
	"fmt"
	"net/http"

	"github.com/planweave/planweave/internal/retrieval"
)

// handleSyncVectorStore rebuilds or clears a session's retrieval index. Sync
// always replaces the whole index; there is no incremental path here.
func (s *Server) handleSyncVectorStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string           `json:"action"` // sync | clear
		Files     []retrieval.File `json:"files"`
		SessionID string           `json:"sessionId"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := s.sessions.Touch(req.SessionID)

	switch req.Action {
	case "clear":
		s.vectors.Clear(sess.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Vector store cleared for session %s", sess.ID),
		})

	case "sync":
		if req.Files == nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("files array required for syncing"))
			return
		}
		n, err := s.vectors.Sync(r.Context(), sess.ID, req.Files)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Vector store synced with %d files (%d chunks) for session %s", len(req.Files), n, sess.ID),
		})

	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid action %q", req.Action))
	}
}

// handleSave indexes one or more saved files into the session's retrieval
// index. Unlike sync this keeps nothing else: the posted files plus the
// current index contents are re-synced together.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		File      *retrieval.File  `json:"file"`
		Files     []retrieval.File `json:"files"`
		SessionID string           `json:"sessionId"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := s.sessions.Touch(req.SessionID)

	toIndex := req.Files
	if req.File != nil {
		toIndex = append([]retrieval.File{*req.File}, toIndex...)
	}
	if len(toIndex) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file or files array is required"))
		return
	}

	if _, err := s.vectors.Sync(r.Context(), sess.ID, toIndex); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Indexed %d file(s) for session %s", len(toIndex), sess.ID),
	})
}
