package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/util"
)

// Store owns the canonical in-memory plan collection. All reads and writes go
// through it; every mutation executes under one mutex and recomputes derived
// state (phase/plan status, progress, metadata) before releasing it, so a
// reader never observes a half-updated plan.
//
// Mutations are copy-on-write: the stored plan is replaced wholesale by an
// updated clone, and accessors hand out clones, so nothing outside the store
// can alias canonical state.
type Store struct {
	mu      sync.RWMutex
	policy  plan.ReviewPolicy
	cache   *Cache
	journal *Journal
	now     func() time.Time

	plans    map[string]*plan.Plan
	order    []string
	activeID string
}

// Option configures a Store.
type Option func(*Store)

// WithJournal makes the store append lifecycle events to the given journal.
func WithJournal(j *Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store. The review policy and the artifact cache are fixed for
// the store's lifetime; the cache is evicted eagerly on every plan mutation.
func New(policy plan.ReviewPolicy, cache *Cache, opts ...Option) *Store {
	s := &Store{
		policy: policy,
		cache:  cache,
		now:    time.Now,
		plans:  make(map[string]*plan.Plan),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the review-acceptance policy the store was built with.
func (s *Store) Policy() plan.ReviewPolicy { return s.policy }

// CreatePlan admits a parsed plan into the collection: assigns ids and
// timestamps, resets progress, and makes the plan active. Returns the new
// plan id.
func (s *Store) CreatePlan(parsed *plan.Plan) (string, error) {
	p := parsed.Clone()

	id, err := util.NewID("plan")
	if err != nil {
		return "", err
	}
	now := s.now()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Status = plan.PlanStatusDraft
	p.Progress = 0

	for pi := range p.Phases {
		phase := &p.Phases[pi]
		phaseID, err := util.NewID("phase")
		if err != nil {
			return "", err
		}
		phase.ID = phaseID
		phase.PlanID = id
		for si := range phase.Steps {
			step := &phase.Steps[si]
			stepID, err := util.NewID("step")
			if err != nil {
				return "", err
			}
			step.ID = stepID
			step.PhaseID = phaseID
			for ci := range step.CodeChanges {
				changeID, err := util.NewID("change")
				if err != nil {
					return "", err
				}
				step.CodeChanges[ci].ID = changeID
				step.CodeChanges[ci].StepID = stepID
			}
		}
	}
	plan.Recalculate(p, s.policy)

	s.mu.Lock()
	s.plans[id] = p
	s.order = append(s.order, id)
	s.activeID = id
	s.mu.Unlock()

	s.journal.Log(EventPlanCreated, map[string]any{
		"plan_id": id,
		"phases":  len(p.Phases),
		"steps":   p.TotalSteps(),
	})
	return id, nil
}

// Plan returns a copy of the plan with the given id.
func (s *Store) Plan(planID string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return p.Clone(), nil
}

// Plans returns copies of all plans in creation order.
func (s *Store) Plans() []*plan.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*plan.Plan, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.plans[id].Clone())
	}
	return out
}

// ActivePlan returns a copy of the currently active plan, or false if none.
func (s *Store) ActivePlan() (*plan.Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[s.activeID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// SetActivePlan points the active-plan pointer at the given plan.
func (s *Store) SetActivePlan(planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[planID]; !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	s.activeID = planID
	return nil
}

// UpdateStepStatus sets a step's status and re-derives the owning phase and
// plan. Transitions not permitted by the step state machine are rejected with
// ErrInvalidTransition and leave all state untouched. errMsg is recorded on
// the step only when the new status is failed.
//
// Returns a copy of the updated plan.
func (s *Store) UpdateStepStatus(stepID string, status plan.StepStatus, errMsg string) (*plan.Plan, error) {
	s.mu.Lock()

	p, pi, si, err := s.locateStep(stepID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	from := p.Phases[pi].Steps[si].Status
	if !plan.ValidTransition(from, status) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
	}

	now := s.now()
	cp := p.Clone()
	step := &cp.Phases[pi].Steps[si]
	step.Status = status
	switch status {
	case plan.StepStatusCompleted, plan.StepStatusApproved:
		step.CompletedAt = &now
		step.Error = ""
	case plan.StepStatusFailed:
		step.CompletedAt = nil
		step.Error = errMsg
	default:
		step.CompletedAt = nil
		step.Error = ""
	}
	cp.UpdatedAt = now
	plan.Recalculate(cp, s.policy)

	s.plans[cp.ID] = cp
	s.cache.Invalidate(cp.ID)
	s.mu.Unlock()

	s.journal.Log(EventStepStatusChanged, map[string]any{
		"plan_id": cp.ID,
		"step_id": stepID,
		"from":    string(from),
		"to":      string(status),
	})
	return cp.Clone(), nil
}

// StepUpdate describes an edit to a step's authored fields. Nil fields are
// left unchanged; statuses are never edited this way.
type StepUpdate struct {
	Label       *string
	Description *string
	Command     *string
}

// UpdateStep edits a step's authored fields and returns a copy of the updated
// step. The plan's cache entry is evicted like any other mutation.
func (s *Store) UpdateStep(stepID string, update StepUpdate) (*plan.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, pi, si, err := s.locateStep(stepID)
	if err != nil {
		return nil, err
	}

	cp := p.Clone()
	step := &cp.Phases[pi].Steps[si]
	if update.Label != nil {
		step.Label = *update.Label
	}
	if update.Description != nil {
		step.Description = *update.Description
	}
	if update.Command != nil {
		step.Command = *update.Command
	}
	cp.UpdatedAt = s.now()

	s.plans[cp.ID] = cp
	s.cache.Invalidate(cp.ID)
	out := *step
	return &out, nil
}

// PlanUpdate describes a direct plan-metadata update. Nil fields are left
// unchanged.
type PlanUpdate struct {
	Title       *string
	Description *string
	Status      *plan.PlanStatus
}

// UpdatePlan applies a direct plan update, evicts the plan's cache entry, and
// re-derives state. Status may only be set to paused or active here; all
// other plan statuses are derived or set by Finalize.
func (s *Store) UpdatePlan(planID string, update PlanUpdate) (*plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	cp := p.Clone()
	if update.Title != nil {
		cp.Title = *update.Title
	}
	if update.Description != nil {
		cp.Description = *update.Description
	}
	if update.Status != nil {
		if *update.Status != plan.PlanStatusPaused && *update.Status != plan.PlanStatusActive {
			return nil, fmt.Errorf("%w: plan status %s cannot be set directly", ErrInvalidTransition, *update.Status)
		}
		cp.Status = *update.Status
	}
	cp.UpdatedAt = s.now()
	plan.Recalculate(cp, s.policy)

	s.plans[planID] = cp
	s.cache.Invalidate(planID)
	return cp.Clone(), nil
}

// ToggleStepExpansion flips a step's display flag. Pure UI state: no status,
// progress, or cache effect.
func (s *Store) ToggleStepExpansion(stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, pi, si, err := s.locateStep(stepID)
	if err != nil {
		return err
	}
	cp := p.Clone()
	cp.Phases[pi].Steps[si].Expanded = !cp.Phases[pi].Steps[si].Expanded
	s.plans[cp.ID] = cp
	return nil
}

// TogglePhaseExpansion flips a phase's display flag. Pure UI state.
func (s *Store) TogglePhaseExpansion(phaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.plans {
		for pi := range p.Phases {
			if p.Phases[pi].ID == phaseID {
				cp := p.Clone()
				cp.Phases[pi].Expanded = !cp.Phases[pi].Expanded
				s.plans[id] = cp
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrPhaseNotFound, phaseID)
}

// MarkChangeApplied flips a code change's applied flag, exactly once. A
// second application attempt is an error; the flip is irreversible.
func (s *Store) MarkChangeApplied(changeID string) (*plan.CodeChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.plans {
		for pi := range p.Phases {
			for si := range p.Phases[pi].Steps {
				for ci := range p.Phases[pi].Steps[si].CodeChanges {
					if p.Phases[pi].Steps[si].CodeChanges[ci].ID != changeID {
						continue
					}
					if p.Phases[pi].Steps[si].CodeChanges[ci].Applied {
						return nil, fmt.Errorf("code change %s already applied", changeID)
					}
					now := s.now()
					cp := p.Clone()
					change := &cp.Phases[pi].Steps[si].CodeChanges[ci]
					change.Applied = true
					change.AppliedAt = &now
					cp.UpdatedAt = now
					s.plans[id] = cp
					s.cache.Invalidate(id)
					out := *change
					return &out, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("code change not found: %s", changeID)
}

// CanFinalize reports whether every step of the plan has been reviewed under
// the store's policy. Plans with zero steps can never be finalized.
func (s *Store) CanFinalize(planID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan.CanFinalize(p, s.policy), nil
}

// ReviewedSubset returns a copy of the plan filtered down to reviewed steps.
// The canonical plan is not mutated.
func (s *Store) ReviewedSubset(planID string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan.ReviewedSubset(p, s.policy), nil
}

// Fingerprint returns the plan's current reviewed-state fingerprint.
func (s *Store) Fingerprint(planID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan.Fingerprint(p), nil
}

// Finalize marks a fully reviewed plan finalized and returns the rendered
// markdown document. Refused with ErrFinalizeNotReady while any step is
// unreviewed.
func (s *Store) Finalize(planID string) (string, error) {
	s.mu.Lock()

	p, ok := s.plans[planID]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if !plan.CanFinalize(p, s.policy) {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrFinalizeNotReady, planID)
	}

	cp := p.Clone()
	cp.Status = plan.PlanStatusFinalized
	cp.UpdatedAt = s.now()
	doc := plan.RenderFinal(cp, s.policy)

	s.plans[planID] = cp
	s.cache.Invalidate(planID)
	s.mu.Unlock()

	s.journal.Log(EventPlanFinalized, map[string]any{"plan_id": planID})
	return doc, nil
}

// DeletePlan removes the plan from the collection, cascades deletion of its
// cache entry, and clears the active-plan pointer if it pointed here.
func (s *Store) DeletePlan(planID string) error {
	s.mu.Lock()

	if _, ok := s.plans[planID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	delete(s.plans, planID)
	for i, id := range s.order {
		if id == planID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activeID == planID {
		s.activeID = ""
	}
	s.cache.Invalidate(planID)
	s.mu.Unlock()

	s.journal.Log(EventPlanDeleted, map[string]any{"plan_id": planID})
	return nil
}

// locateStep finds the plan holding stepID along with the phase and step
// indices. Callers must hold the mutex.
func (s *Store) locateStep(stepID string) (*plan.Plan, int, int, error) {
	for _, p := range s.plans {
		for pi := range p.Phases {
			for si := range p.Phases[pi].Steps {
				if p.Phases[pi].Steps[si].ID == stepID {
					return p, pi, si, nil
				}
			}
		}
	}
	return nil, 0, 0, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
}
