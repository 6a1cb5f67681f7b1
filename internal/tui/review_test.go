package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/store"
)

func reviewStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(plan.PolicyExecution, store.NewCache())
	_, err := st.CreatePlan(&plan.Plan{
		Title: "Add login page",
		Phases: []plan.Phase{{
			Label: "Setup",
			Steps: []plan.Step{
				{Label: "Create form", Status: plan.StepStatusPending},
				{Label: "Wire route", Status: plan.StepStatusPending},
			},
		}},
	})
	require.NoError(t, err)
	return st
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m ReviewModel, keys ...string) ReviewModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(ReviewModel)
	}
	return m
}

func TestNewReview_RequiresActivePlan(t *testing.T) {
	st := store.New(plan.PolicyExecution, store.NewCache())
	_, err := NewReview(st)
	assert.Error(t, err)
}

func TestReview_CompleteAdvancesProgress(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	m = press(t, m, "c")
	assert.Equal(t, 50, m.plan.Progress)
	assert.Equal(t, plan.StepStatusCompleted, m.plan.AllSteps()[0].Status)
}

func TestReview_CursorNavigation(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	m = press(t, m, "j", "s")
	steps := m.plan.AllSteps()
	assert.Equal(t, plan.StepStatusPending, steps[0].Status)
	assert.Equal(t, plan.StepStatusSkipped, steps[1].Status)

	// Cursor does not run off the end.
	m = press(t, m, "j", "j")
	assert.Equal(t, 1, m.cursor)
}

func TestReview_InvalidTransitionShowsNotice(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	m = press(t, m, "c", "x") // completed -> failed is rejected
	assert.NotEmpty(t, m.notice)
	assert.Equal(t, plan.StepStatusCompleted, m.plan.AllSteps()[0].Status)
}

func TestReview_ResetThenRetry(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	m = press(t, m, "x")
	require.Equal(t, plan.StepStatusFailed, m.plan.AllSteps()[0].Status)
	assert.NotEmpty(t, m.plan.AllSteps()[0].Error)

	m = press(t, m, "r", "c")
	assert.Equal(t, plan.StepStatusCompleted, m.plan.AllSteps()[0].Status)
}

func TestReview_FinalizeGating(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	m = press(t, m, "f")
	assert.Empty(t, m.preview)
	assert.Contains(t, m.notice, "review every step")

	m = press(t, m, "c", "j", "s", "f")
	assert.NotEmpty(t, m.preview)

	p, err := st.Plan(m.plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanStatusFinalized, p.Status)
}

func TestReview_ViewListsSteps(t *testing.T) {
	st := reviewStore(t)
	m, err := NewReview(st)
	require.NoError(t, err)

	out := m.View()
	assert.Contains(t, out, "Add login page")
	assert.Contains(t, out, "Phase 1: Setup")
	assert.Contains(t, out, "Create form")
	assert.Contains(t, out, "Wire route")
}
