package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/planweave/planweave/internal/ai"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/retrieval"
)

type chatRequest struct {
	SessionID string           `json:"sessionId"`
	Message   string           `json:"message"`
	Files     []retrieval.File `json:"files"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.runChat(r.Context(), sink, req)
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied
	}
	defer conn.Close()

	var req chatRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(errorEvent(fmt.Errorf("invalid request: %w", err)))
		return
	}
	if req.Message == "" {
		_ = conn.WriteJSON(errorEvent(fmt.Errorf("message is required")))
		return
	}
	s.runChat(r.Context(), &wsSink{conn: conn}, req)
}

// runChat executes one chat turn: plan generation for build-style requests
// with a plain streamed reply as fallback. The plan is admitted to the store
// only after generation fully succeeds, so a cancelled or failed request
// leaves no partial plan behind.
func (s *Server) runChat(ctx context.Context, sink eventSink, req chatRequest) {
	sess := s.sessions.Touch(req.SessionID)
	files := s.fileContexts(req.Files)

	if ai.ShouldGeneratePlan(req.Message) {
		if s.sendOr(sink, statusEvent("Analyzing request and generating execution plan...")) != nil {
			return
		}

		parsed, err := s.gen.GeneratePlan(ctx, sess.ID, req.Message, files)
		switch {
		case err == nil:
			s.streamPlanReply(ctx, sink, sess.ID, req.Message, files, parsed)
			return
		case errors.Is(err, plan.ErrEmptyPlan):
			// Model produced no usable plan; degrade to a normal reply.
		case ctx.Err() != nil:
			return
		default:
			s.logger.Printf("plan generation failed: %v", err)
			_ = sink.Send(errorEvent(err))
			return
		}
	}

	if s.sendOr(sink, statusEvent("Searching codebase...")) != nil {
		return
	}
	err := s.gen.StreamChat(ctx, sess.ID, req.Message, files, func(tok string) error {
		return sink.Send(tokenEvent(tok))
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("chat stream failed: %v", err)
			_ = sink.Send(errorEvent(err))
		}
		return
	}
	_ = sink.Send(doneEvent())
}

// streamPlanReply finishes the plan path: streams the conversational summary,
// admits the plan, and emits it.
func (s *Server) streamPlanReply(ctx context.Context, sink eventSink, sessionID, message string, files []ai.FileContext, parsed *plan.Plan) {
	if s.sendOr(sink, statusEvent("Plan generated! Creating conversational response...")) != nil {
		return
	}

	err := s.gen.StreamPlanSummary(ctx, sessionID, message, files, func(tok string) error {
		return sink.Send(tokenEvent(tok))
	})
	if err != nil && ctx.Err() != nil {
		return // client gone; plan not admitted
	}
	if err != nil {
		// Summary is decoration; the plan itself is still good.
		s.logger.Printf("plan summary stream failed: %v", err)
	}

	planID, err := s.store.CreatePlan(parsed)
	if err != nil {
		_ = sink.Send(errorEvent(err))
		return
	}
	stored, err := s.store.Plan(planID)
	if err != nil {
		_ = sink.Send(errorEvent(err))
		return
	}

	if s.sendOr(sink, planEvent(stored)) != nil {
		return
	}
	_ = sink.Send(doneEvent())
}

func (s *Server) sendOr(sink eventSink, ev Event) error {
	if err := sink.Send(ev); err != nil {
		s.logger.Printf("stream write failed: %v", err)
		return err
	}
	return nil
}

// fileContexts converts posted files to prompt contexts, falling back to the
// local workspace snapshot when the client sent none.
func (s *Server) fileContexts(files []retrieval.File) []ai.FileContext {
	if len(files) == 0 && s.ws != nil {
		for _, f := range s.ws.Files() {
			files = append(files, retrieval.File{
				Path:     f.Path,
				Name:     f.Name,
				Language: f.Language,
				Content:  f.Content,
			})
		}
	}
	out := make([]ai.FileContext, 0, len(files))
	for _, f := range files {
		out = append(out, ai.FileContext{Path: f.Path, Language: f.Language, Content: f.Content})
	}
	return out
}
