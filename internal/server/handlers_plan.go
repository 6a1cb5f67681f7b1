package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/planweave/planweave/internal/flowchart"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/store"
)

// statusFromStoreErr maps store errors onto HTTP statuses.
func statusFromStoreErr(err error) int {
	switch {
	case errors.Is(err, store.ErrPlanNotFound),
		errors.Is(err, store.ErrStepNotFound),
		errors.Is(err, store.ErrPhaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrFinalizeNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// resolvePlanID picks the requested plan: explicit id or the active plan.
func (s *Server) resolvePlanID(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("id"); id != "" {
		return id, nil
	}
	if p, ok := s.store.ActivePlan(); ok {
		return p.ID, nil
	}
	return "", fmt.Errorf("no active plan")
}

// handleGeneratePlan generates a plan synchronously from a query and returns
// it with its flowchart layout.
func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Query     string `json:"query"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	sess := s.sessions.Touch(req.SessionID)

	parsed, err := s.gen.GeneratePlan(r.Context(), sess.ID, req.Query, s.fileContexts(nil))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, plan.ErrEmptyPlan) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	planID, err := s.store.CreatePlan(parsed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	p, err := s.store.Plan(planID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plan": p,
		"flow": flowchart.Compute(p, flowchart.DefaultConfig),
	})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := s.resolvePlanID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	p, err := s.store.Plan(planID)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": p})
}

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": s.store.Plans()})
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID      string  `json:"planId"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("planId is required"))
		return
	}

	update := store.PlanUpdate{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		st := plan.PlanStatus(*req.Status)
		update.Status = &st
	}
	p, err := s.store.UpdatePlan(req.PlanID, update)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": p})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID := r.URL.Query().Get("id")
	if planID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id is required"))
		return
	}
	if err := s.store.DeletePlan(planID); err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleFlowchart(w http.ResponseWriter, r *http.Request) {
	planID, err := s.resolvePlanID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	p, err := s.store.Plan(planID)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, flowchart.Compute(p, flowchart.DefaultConfig))
}

func (s *Server) handleStepStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StepID string `json:"stepId"`
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.StepID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("stepId and status are required"))
		return
	}

	p, err := s.store.UpdateStepStatus(req.StepID, plan.StepStatus(req.Status), req.Error)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": p})
}

func (s *Server) handleEditStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID      string `json:"planId"`
		StepID      string `json:"stepId"`
		Instruction string `json:"instruction"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PlanID == "" || req.StepID == "" || req.Instruction == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("planId, stepId, instruction required"))
		return
	}

	desc := req.Instruction
	step, err := s.store.UpdateStep(req.StepID, store.StepUpdate{Description: &desc})
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": step})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"planId"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("planId is required"))
		return
	}

	markdown, err := s.store.Finalize(req.PlanID)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markdown": markdown})
}

// handleComplete turns a reviewed plan into an agent-ready document. The
// model call is expensive, so results are cached per plan keyed by the
// reviewed-state fingerprint; any plan mutation evicts the entry.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"planId"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("planId is required"))
		return
	}

	p, err := s.store.Plan(req.PlanID)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}

	// Same gate as finalize: no document from a partially reviewed plan.
	ready, err := s.store.CanFinalize(req.PlanID)
	if err != nil {
		writeError(w, statusFromStoreErr(err), err)
		return
	}
	if !ready {
		writeError(w, statusFromStoreErr(store.ErrFinalizeNotReady), store.ErrFinalizeNotReady)
		return
	}

	policy := s.store.Policy()
	var approved, skipped int
	for _, st := range p.AllSteps() {
		if st.Status == plan.StepStatusSkipped {
			skipped++
		} else if policy.Accepted(st.Status) {
			approved++
		}
	}
	metadata := map[string]int{
		"totalSteps":    p.TotalSteps(),
		"approvedSteps": approved,
		"skippedSteps":  skipped,
	}

	fingerprint := plan.Fingerprint(p)
	if doc, ok := s.cache.Get(p.ID, fingerprint); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"agentPlan": doc,
			"metadata":  metadata,
			"cached":    true,
		})
		return
	}

	doc, err := s.gen.AgentDocument(r.Context(), p, policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.cache.Put(p.ID, doc, fingerprint)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"agentPlan": doc,
		"metadata":  metadata,
		"cached":    false,
	})
}

// handleApplyChange writes a step's code change to the workspace and flips
// its applied flag.
func (s *Server) handleApplyChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChangeID string `json:"changeId"`
	}
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ChangeID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("changeId is required"))
		return
	}
	if s.ws == nil {
		writeError(w, http.StatusConflict, fmt.Errorf("no workspace configured"))
		return
	}

	change, err := s.findChange(req.ChangeID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	result, err := s.ws.Apply(*change)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	applied, err := s.store.MarkChangeApplied(req.ChangeID)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"change": applied, "result": result})
}

func (s *Server) findChange(changeID string) (*plan.CodeChange, error) {
	for _, p := range s.store.Plans() {
		for _, step := range p.AllSteps() {
			for i := range step.CodeChanges {
				if step.CodeChanges[i].ID == changeID {
					cc := step.CodeChanges[i]
					return &cc, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("code change not found: %s", changeID)
}
