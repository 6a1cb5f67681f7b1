package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/plan"
)

func testPlan() *plan.Plan {
	return &plan.Plan{
		Title: "Add user authentication",
		Phases: []plan.Phase{
			{
				Label: "Setup",
				Order: 0,
				Steps: []plan.Step{
					{Label: "Install dependencies", Order: 0, Type: plan.StepTypeCommand, Status: plan.StepStatusPending, Command: "npm install bcrypt jsonwebtoken"},
					{Label: "Create login form component", Order: 1, Type: plan.StepTypeFile, Status: plan.StepStatusPending, Files: []string{"src/components/LoginForm.tsx"}},
				},
			},
			{
				Label: "Backend",
				Order: 1,
				Steps: []plan.Step{
					{Label: "Add auth endpoint", Order: 0, Type: plan.StepTypeCode, Status: plan.StepStatusPending, Files: []string{"src/api/auth.ts"}},
					{Label: "Write auth tests", Order: 1, Type: plan.StepTypeTest, Status: plan.StepStatusPending, Files: []string{"src/api/auth.test.ts"}},
				},
			},
		},
	}
}

func newTestStore(t *testing.T, policy plan.ReviewPolicy) (*Store, *Cache) {
	t.Helper()
	cache := NewCache()
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := New(policy, cache, WithClock(func() time.Time { return clock }))
	return s, cache
}

func createTestPlan(t *testing.T, s *Store) *plan.Plan {
	t.Helper()
	id, err := s.CreatePlan(testPlan())
	require.NoError(t, err)
	p, err := s.Plan(id)
	require.NoError(t, err)
	return p
}

func TestCreatePlan_AssignsIdentity(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	assert.True(t, len(p.ID) > len("plan-"))
	assert.Equal(t, plan.PlanStatusDraft, p.Status)
	assert.Equal(t, 0, p.Progress)
	assert.False(t, p.CreatedAt.IsZero())

	for _, phase := range p.Phases {
		assert.NotEmpty(t, phase.ID)
		assert.Equal(t, p.ID, phase.PlanID)
		assert.Equal(t, plan.PhaseStatusPending, phase.Status)
		for _, step := range phase.Steps {
			assert.NotEmpty(t, step.ID)
			assert.Equal(t, phase.ID, step.PhaseID)
		}
	}

	require.NotNil(t, p.Metadata)
	assert.Equal(t, 4, p.Metadata.TotalSteps)
	assert.Equal(t, 0, p.Metadata.CompletedSteps)
	assert.Equal(t, []string{
		"src/components/LoginForm.tsx",
		"src/api/auth.ts",
		"src/api/auth.test.ts",
	}, p.Metadata.FilesAffected)
}

func TestCreatePlan_BecomesActive(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	active, ok := s.ActivePlan()
	require.True(t, ok)
	assert.Equal(t, p.ID, active.ID)
}

func TestPlan_NotFound(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	_, err := s.Plan("plan-missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestUpdateStepStatus_DerivesProgress(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	steps := p.AllSteps()

	_, err := s.UpdateStepStatus(steps[0].ID, plan.StepStatusCompleted, "")
	require.NoError(t, err)
	_, err = s.UpdateStepStatus(steps[1].ID, plan.StepStatusCompleted, "")
	require.NoError(t, err)
	updated, err := s.UpdateStepStatus(steps[2].ID, plan.StepStatusSkipped, "")
	require.NoError(t, err)

	assert.Equal(t, 75, updated.Progress)
	assert.Equal(t, plan.PhaseStatusCompleted, updated.Phases[0].Status)
	assert.Equal(t, plan.PhaseStatusPending, updated.Phases[1].Status)
	assert.Equal(t, plan.PlanStatusDraft, updated.Status)
	assert.Equal(t, 3, updated.Metadata.CompletedSteps)
}

func TestUpdateStepStatus_CompletionStamp(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	stepID := p.AllSteps()[0].ID

	updated, err := s.UpdateStepStatus(stepID, plan.StepStatusCompleted, "")
	require.NoError(t, err)
	step := updated.Phases[0].Steps[0]
	require.NotNil(t, step.CompletedAt)
	assert.Empty(t, step.Error)

	// Resetting to pending clears the stamp.
	updated, err = s.UpdateStepStatus(stepID, plan.StepStatusPending, "")
	require.NoError(t, err)
	assert.Nil(t, updated.Phases[0].Steps[0].CompletedAt)
}

func TestUpdateStepStatus_FailedRecordsError(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	stepID := p.AllSteps()[0].ID

	updated, err := s.UpdateStepStatus(stepID, plan.StepStatusFailed, "npm install exited 1")
	require.NoError(t, err)
	step := updated.Phases[0].Steps[0]
	assert.Equal(t, "npm install exited 1", step.Error)
	assert.Nil(t, step.CompletedAt)
	assert.Equal(t, plan.PhaseStatusFailed, updated.Phases[0].Status)
	assert.Equal(t, plan.PlanStatusFailed, updated.Status)

	// Retrying clears the recorded error.
	updated, err = s.UpdateStepStatus(stepID, plan.StepStatusInProgress, "")
	require.NoError(t, err)
	assert.Empty(t, updated.Phases[0].Steps[0].Error)
	assert.Equal(t, plan.PlanStatusActive, updated.Status)
}

func TestUpdateStepStatus_InvalidTransitionIsNoOp(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	stepID := p.AllSteps()[0].ID

	_, err := s.UpdateStepStatus(stepID, plan.StepStatusCompleted, "")
	require.NoError(t, err)

	_, err = s.UpdateStepStatus(stepID, plan.StepStatusFailed, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	after, err := s.Plan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StepStatusCompleted, after.Phases[0].Steps[0].Status)
	assert.Equal(t, 25, after.Progress)
}

func TestUpdateStepStatus_ApprovalPolicy(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyApproval)
	p := createTestPlan(t, s)
	steps := p.AllSteps()

	for _, st := range steps[:3] {
		_, err := s.UpdateStepStatus(st.ID, plan.StepStatusApproved, "")
		require.NoError(t, err)
	}
	updated, err := s.UpdateStepStatus(steps[3].ID, plan.StepStatusSkipped, "")
	require.NoError(t, err)

	assert.Equal(t, 100, updated.Progress)
	ok, err := s.CanFinalize(p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateStepStatus_EvictsCache(t *testing.T) {
	s, cache := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	fp, err := s.Fingerprint(p.ID)
	require.NoError(t, err)
	cache.Put(p.ID, "agent doc", fp)
	require.Equal(t, 1, cache.Len())

	_, err = s.UpdateStepStatus(p.AllSteps()[0].ID, plan.StepStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestUpdateStep_EditsAuthoredFields(t *testing.T) {
	s, cache := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	stepID := p.AllSteps()[0].ID

	fp, err := s.Fingerprint(p.ID)
	require.NoError(t, err)
	cache.Put(p.ID, "agent doc", fp)

	desc := "Install bcrypt and jsonwebtoken with pinned versions"
	step, err := s.UpdateStep(stepID, StepUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, step.Description)
	assert.Equal(t, "Install dependencies", step.Label)

	// An edit invalidates the cached artifact even though no status moved.
	assert.Equal(t, 0, cache.Len())
}

func TestUpdatePlan_PauseAndResume(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	paused := plan.PlanStatusPaused
	updated, err := s.UpdatePlan(p.ID, PlanUpdate{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, plan.PlanStatusPaused, updated.Status)

	// A status update on a paused plan keeps it paused.
	updated, err = s.UpdateStepStatus(p.AllSteps()[0].ID, plan.StepStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, plan.PlanStatusPaused, updated.Status)

	completed := plan.PlanStatusCompleted
	_, err = s.UpdatePlan(p.ID, PlanUpdate{Status: &completed})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestToggleExpansion_NoCacheEffect(t *testing.T) {
	s, cache := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	fp, err := s.Fingerprint(p.ID)
	require.NoError(t, err)
	cache.Put(p.ID, "agent doc", fp)

	require.NoError(t, s.ToggleStepExpansion(p.AllSteps()[0].ID))
	require.NoError(t, s.TogglePhaseExpansion(p.Phases[1].ID))

	after, err := s.Plan(p.ID)
	require.NoError(t, err)
	assert.True(t, after.Phases[0].Steps[0].Expanded)
	assert.True(t, after.Phases[1].Expanded)
	assert.Equal(t, 1, cache.Len())

	fpAfter, err := s.Fingerprint(p.ID)
	require.NoError(t, err)
	assert.Equal(t, fp, fpAfter)
}

func TestFinalize_GatedOnReview(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	steps := p.AllSteps()

	_, err := s.Finalize(p.ID)
	assert.ErrorIs(t, err, ErrFinalizeNotReady)

	for _, st := range steps[:3] {
		_, err := s.UpdateStepStatus(st.ID, plan.StepStatusCompleted, "")
		require.NoError(t, err)
	}
	_, err = s.UpdateStepStatus(steps[3].ID, plan.StepStatusSkipped, "")
	require.NoError(t, err)

	doc, err := s.Finalize(p.ID)
	require.NoError(t, err)
	assert.Contains(t, doc, "# Final Plan: Add user authentication")
	assert.Contains(t, doc, "Write auth tests (skipped)")

	after, err := s.Plan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanStatusFinalized, after.Status)
}

func TestFinalize_ZeroStepsNeverReady(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	id, err := s.CreatePlan(&plan.Plan{Title: "Empty", Phases: []plan.Phase{{Label: "Setup"}}})
	require.NoError(t, err)

	ok, err := s.CanFinalize(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkChangeApplied_FlipsOnce(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	src := testPlan()
	src.Phases[0].Steps[0].CodeChanges = []plan.CodeChange{{
		File:       "package.json",
		Language:   "json",
		ChangeType: plan.ChangeTypeModify,
	}}
	id, err := s.CreatePlan(src)
	require.NoError(t, err)
	p, err := s.Plan(id)
	require.NoError(t, err)
	changeID := p.Phases[0].Steps[0].CodeChanges[0].ID

	change, err := s.MarkChangeApplied(changeID)
	require.NoError(t, err)
	assert.True(t, change.Applied)
	require.NotNil(t, change.AppliedAt)

	_, err = s.MarkChangeApplied(changeID)
	assert.Error(t, err)
}

func TestDeletePlan_Cascades(t *testing.T) {
	s, cache := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	fp, err := s.Fingerprint(p.ID)
	require.NoError(t, err)
	cache.Put(p.ID, "agent doc", fp)

	require.NoError(t, s.DeletePlan(p.ID))
	assert.Equal(t, 0, cache.Len())
	_, ok := s.ActivePlan()
	assert.False(t, ok)
	assert.Empty(t, s.Plans())
	assert.ErrorIs(t, s.DeletePlan(p.ID), ErrPlanNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)

	p.Title = "mutated"
	p.Phases[0].Steps[0].Status = plan.StepStatusCompleted

	after, err := s.Plan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Add user authentication", after.Title)
	assert.Equal(t, plan.StepStatusPending, after.Phases[0].Steps[0].Status)
}

func TestReviewedSubset_FromStore(t *testing.T) {
	s, _ := newTestStore(t, plan.PolicyExecution)
	p := createTestPlan(t, s)
	steps := p.AllSteps()

	_, err := s.UpdateStepStatus(steps[0].ID, plan.StepStatusCompleted, "")
	require.NoError(t, err)

	subset, err := s.ReviewedSubset(p.ID)
	require.NoError(t, err)
	assert.Len(t, subset.Phases[0].Steps, 1)
	assert.Empty(t, subset.Phases[1].Steps)

	// The canonical plan still has all steps.
	after, err := s.Plan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, after.TotalSteps())
}
