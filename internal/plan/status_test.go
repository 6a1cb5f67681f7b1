package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourStepPlan builds a single-phase plan with the given step statuses.
func fourStepPlan(statuses ...StepStatus) *Plan {
	steps := make([]Step, len(statuses))
	for i, s := range statuses {
		steps[i] = Step{ID: "step-" + string(rune('a'+i)), Label: "S", Status: s, Order: i, Type: StepTypeCode}
	}
	return &Plan{
		ID:     "plan-x",
		Title:  "T",
		Status: PlanStatusDraft,
		Phases: []Phase{{ID: "phase-a", Label: "P", Status: PhaseStatusPending, Steps: steps}},
	}
}

func TestProgress_CountsCompletedAndSkipped(t *testing.T) {
	p := fourStepPlan(StepStatusCompleted, StepStatusCompleted, StepStatusSkipped, StepStatusPending)
	assert.Equal(t, 75, ProgressFor(p, PolicyExecution))
}

func TestProgress_FailedStepsNotReviewed(t *testing.T) {
	p := fourStepPlan(StepStatusCompleted, StepStatusCompleted, StepStatusSkipped, StepStatusFailed)
	Recalculate(p, PolicyExecution)

	assert.Equal(t, 75, p.Progress)
	assert.Equal(t, PhaseStatusFailed, p.Phases[0].Status)
	assert.Equal(t, PlanStatusFailed, p.Status)
}

func TestProgress_ZeroSteps(t *testing.T) {
	p := &Plan{Phases: []Phase{{Label: "Empty"}}}
	assert.Equal(t, 0, ProgressFor(p, PolicyExecution))
}

func TestProgress_ApprovalPolicy(t *testing.T) {
	p := fourStepPlan(StepStatusApproved, StepStatusSkipped, StepStatusPending, StepStatusPending)
	assert.Equal(t, 50, ProgressFor(p, PolicyApproval))
	// Approved steps do not count under the execution policy.
	assert.Equal(t, 25, ProgressFor(p, PolicyExecution))
}

func TestProgress_MonotonicUnderAcceptance(t *testing.T) {
	p := fourStepPlan(StepStatusCompleted, StepStatusPending, StepStatusPending, StepStatusPending)
	before := ProgressFor(p, PolicyExecution)

	p.Phases[0].Steps[1].Status = StepStatusCompleted
	after := ProgressFor(p, PolicyExecution)
	assert.GreaterOrEqual(t, after, before)

	p.Phases[0].Steps[1].Status = StepStatusPending
	assert.LessOrEqual(t, ProgressFor(p, PolicyExecution), after)
}

func TestPhaseStatus_Rollup(t *testing.T) {
	tests := []struct {
		name     string
		statuses []StepStatus
		want     PhaseStatus
	}{
		{"all pending", []StepStatus{StepStatusPending, StepStatusPending}, PhaseStatusPending},
		{"any in-progress", []StepStatus{StepStatusPending, StepStatusInProgress}, PhaseStatusInProgress},
		{"any failed wins", []StepStatus{StepStatusInProgress, StepStatusFailed}, PhaseStatusFailed},
		{"all completed or skipped", []StepStatus{StepStatusCompleted, StepStatusSkipped}, PhaseStatusCompleted},
		{"no steps", nil, PhaseStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fourStepPlan(tt.statuses...)
			assert.Equal(t, tt.want, PhaseStatusFor(&p.Phases[0], PolicyExecution))
		})
	}
}

func TestPlanStatus_Rollup(t *testing.T) {
	p := fourStepPlan(StepStatusCompleted, StepStatusSkipped)
	Recalculate(p, PolicyExecution)
	assert.Equal(t, PlanStatusCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)

	p = fourStepPlan(StepStatusInProgress, StepStatusPending)
	Recalculate(p, PolicyExecution)
	assert.Equal(t, PlanStatusActive, p.Status)
}

func TestValidTransition(t *testing.T) {
	assert.True(t, ValidTransition(StepStatusPending, StepStatusInProgress))
	assert.True(t, ValidTransition(StepStatusPending, StepStatusFailed))
	assert.True(t, ValidTransition(StepStatusFailed, StepStatusPending))
	assert.True(t, ValidTransition(StepStatusCompleted, StepStatusPending))
	assert.True(t, ValidTransition(StepStatusSkipped, StepStatusSkipped))

	assert.False(t, ValidTransition(StepStatusCompleted, StepStatusFailed))
	assert.False(t, ValidTransition(StepStatusSkipped, StepStatusApproved))
	assert.False(t, ValidTransition(StepStatusApproved, StepStatusCompleted))
}

func TestCanFinalize(t *testing.T) {
	assert.False(t, CanFinalize(fourStepPlan(StepStatusCompleted, StepStatusPending), PolicyExecution))
	assert.False(t, CanFinalize(fourStepPlan(StepStatusCompleted, StepStatusInProgress), PolicyExecution))
	assert.True(t, CanFinalize(fourStepPlan(StepStatusCompleted, StepStatusSkipped), PolicyExecution))
	assert.True(t, CanFinalize(fourStepPlan(StepStatusApproved, StepStatusSkipped), PolicyApproval))

	// A plan with no steps can never be finalized.
	assert.False(t, CanFinalize(&Plan{Phases: []Phase{{Label: "Empty"}}}, PolicyExecution))
}

func TestReviewedSubset_FiltersAndPreservesOriginal(t *testing.T) {
	p := fourStepPlan(StepStatusCompleted, StepStatusPending, StepStatusSkipped, StepStatusFailed)
	subset := ReviewedSubset(p, PolicyExecution)

	require.Len(t, subset.Phases, 1)
	require.Len(t, subset.Phases[0].Steps, 2)
	assert.Equal(t, StepStatusCompleted, subset.Phases[0].Steps[0].Status)
	assert.Equal(t, StepStatusSkipped, subset.Phases[0].Steps[1].Status)

	// The canonical plan is untouched.
	assert.Len(t, p.Phases[0].Steps, 4)
}

func TestClone_IsDeep(t *testing.T) {
	p := fourStepPlan(StepStatusPending, StepStatusPending)
	p.Phases[0].Steps[0].Files = []string{"a.go"}
	cp := p.Clone()
	cp.Phases[0].Steps[0].Files[0] = "b.go"
	cp.Phases[0].Steps[1].Status = StepStatusCompleted

	assert.Equal(t, "a.go", p.Phases[0].Steps[0].Files[0])
	assert.Equal(t, StepStatusPending, p.Phases[0].Steps[1].Status)
}
