// Package tui implements the terminal plan-review screen: step through a
// generated plan, approve or skip each step, and finalize it into the
// handoff document.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/store"
)

var statusGlyphs = map[plan.StepStatus]string{
	plan.StepStatusPending:    "○",
	plan.StepStatusInProgress: "◐",
	plan.StepStatusApproved:   "✓",
	plan.StepStatusCompleted:  "✓",
	plan.StepStatusFailed:     "✗",
	plan.StepStatusSkipped:    "–",
}

// ReviewModel is the Bubble Tea model for reviewing one plan.
type ReviewModel struct {
	store *store.Store
	plan  *plan.Plan

	cursor   int
	bar      progress.Model
	preview  string // glamour-rendered finalize output
	notice   string
	quitting bool
	width    int
	height   int
}

// NewReview builds a review model over the store's active plan.
func NewReview(st *store.Store) (ReviewModel, error) {
	p, ok := st.ActivePlan()
	if !ok {
		return ReviewModel{}, errors.New("no active plan to review")
	}
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40
	return ReviewModel{store: st, plan: p, bar: bar}, nil
}

// Run starts the review screen and blocks until it exits.
func Run(st *store.Store) error {
	m, err := NewReview(st)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// steps returns the plan's steps in display order.
func (m ReviewModel) steps() []plan.Step {
	return m.plan.AllSteps()
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.preview != "" {
			// Preview screen: any of these dismisses, q quits.
			switch msg.String() {
			case "q", "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			case "esc", "enter":
				m.preview = ""
			}
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ReviewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	steps := m.steps()
	m.notice = ""

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(steps)-1 {
			m.cursor++
		}

	case "a":
		m.setStatus(steps, plan.StepStatusApproved)
	case "c":
		m.setStatus(steps, plan.StepStatusCompleted)
	case "s":
		m.setStatus(steps, plan.StepStatusSkipped)
	case "x":
		m.setStatus(steps, plan.StepStatusFailed)
	case "r":
		m.setStatus(steps, plan.StepStatusPending)

	case "f":
		ok, err := m.store.CanFinalize(m.plan.ID)
		if err != nil {
			m.notice = err.Error()
			break
		}
		if !ok {
			m.notice = "review every step before finalizing"
			break
		}
		markdown, err := m.store.Finalize(m.plan.ID)
		if err != nil {
			m.notice = err.Error()
			break
		}
		m.preview = renderMarkdown(markdown)
		m.refresh()
	}
	return m, nil
}

func (m *ReviewModel) setStatus(steps []plan.Step, status plan.StepStatus) {
	if len(steps) == 0 || m.cursor >= len(steps) {
		return
	}
	var errMsg string
	if status == plan.StepStatusFailed {
		errMsg = "marked failed during review"
	}
	_, err := m.store.UpdateStepStatus(steps[m.cursor].ID, status, errMsg)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			m.notice = fmt.Sprintf("can't move %s step to %s (reset with r first)", steps[m.cursor].Status, status)
			return
		}
		m.notice = err.Error()
		return
	}
	m.refresh()
}

// refresh reloads the plan from the store.
func (m *ReviewModel) refresh() {
	if p, err := m.store.Plan(m.plan.ID); err == nil {
		m.plan = p
	}
}

func renderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if m.quitting {
		return ""
	}
	if m.preview != "" {
		return m.preview + subtleStyle.Render("\nesc: back  q: quit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Review: "+m.plan.Title) + "\n")
	b.WriteString(m.bar.ViewAs(float64(m.plan.Progress)/100) +
		subtleStyle.Render(fmt.Sprintf("  %d%%  [%s]", m.plan.Progress, m.plan.Status)) + "\n\n")

	idx := 0
	for _, phase := range m.plan.Phases {
		b.WriteString(phaseStyle.Render(fmt.Sprintf("Phase %d: %s", phase.Order+1, phase.Label)) +
			subtleStyle.Render("  ("+string(phase.Status)+")") + "\n")
		for _, step := range phase.Steps {
			line := fmt.Sprintf("  %s %s", m.glyph(step), step.Label)
			if step.Error != "" {
				line += errorStyle.Render("  " + step.Error)
			}
			if idx == m.cursor {
				line = selectedStyle.Render("›" + line[1:])
			}
			b.WriteString(line + "\n")
			idx++
		}
	}

	if m.notice != "" {
		b.WriteString("\n" + warnStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + subtleStyle.Render("a: approve  c: complete  s: skip  x: fail  r: reset  f: finalize  q: quit"))
	return b.String()
}

func (m ReviewModel) glyph(step plan.Step) string {
	glyph := statusGlyphs[step.Status]
	switch step.Status {
	case plan.StepStatusApproved, plan.StepStatusCompleted:
		return successStyle.Render(glyph)
	case plan.StepStatusFailed:
		return errorStyle.Render(glyph)
	case plan.StepStatusSkipped:
		return subtleStyle.Render(glyph)
	default:
		return glyph
	}
}
