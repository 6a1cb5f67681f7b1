// Package server exposes planweave over HTTP: plan generation and review,
// finalize/complete, workspace indexing, and streaming chat.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/planweave/planweave/internal/ai"
	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/retrieval"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/internal/workspace"
)

// Server wires the application's pieces behind an HTTP mux.
type Server struct {
	cfg      config.Config
	store    *store.Store
	cache    *store.Cache
	gen      *ai.Generator
	vectors  *retrieval.Store
	ws       *workspace.Workspace // nil when serving without a local workspace
	sessions *session.Registry
	logger   *log.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// New assembles a server. The workspace may be nil.
func New(cfg config.Config, st *store.Store, cache *store.Cache, client ai.Client, vectors *retrieval.Store, ws *workspace.Workspace, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		cache:    cache,
		vectors:  vectors,
		ws:       ws,
		sessions: session.NewRegistry(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The UI is a local companion; same-host pages are fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.gen = ai.NewGenerator(client, &snippetRetriever{vectors: vectors})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	mux.HandleFunc("POST /api/plan", s.handleGeneratePlan)
	mux.HandleFunc("GET /api/plan", s.handleGetPlan)
	mux.HandleFunc("PATCH /api/plan", s.handleUpdatePlan)
	mux.HandleFunc("DELETE /api/plan", s.handleDeletePlan)
	mux.HandleFunc("GET /api/plans", s.handleListPlans)
	mux.HandleFunc("GET /api/plan/flowchart", s.handleFlowchart)
	mux.HandleFunc("POST /api/plan/step", s.handleStepStatus)
	mux.HandleFunc("POST /api/plan/editStep", s.handleEditStep)
	mux.HandleFunc("POST /api/plan/finalize", s.handleFinalize)
	mux.HandleFunc("POST /api/plan/complete", s.handleComplete)
	mux.HandleFunc("POST /api/plan/apply", s.handleApplyChange)

	mux.HandleFunc("POST /api/syncVectorStore", s.handleSyncVectorStore)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket write timeout: SSE and websocket responses stay
		// open for the life of the stream.
	}
	return s
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Printf("listening on %s", s.cfg.Server.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// snippetRetriever adapts the vector store to the generator's interface.
type snippetRetriever struct {
	vectors *retrieval.Store
}

func (r *snippetRetriever) Retrieve(ctx context.Context, sessionID, query string, topK int) ([]ai.Snippet, error) {
	if r.vectors == nil {
		return nil, nil
	}
	results, err := r.vectors.Retrieve(ctx, sessionID, query, topK)
	if err != nil {
		return nil, err
	}
	snippets := make([]ai.Snippet, 0, len(results))
	for _, res := range results {
		snippets = append(snippets, ai.Snippet{Path: res.Path, Content: res.Content})
	}
	return snippets, nil
}

// decodeBody reads a JSON request body under the configured size cap.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.List()})
}
