package plan

import "math"

// ReviewPolicy decides which step statuses count as "reviewed" for progress,
// finalize gating, and the finalizer's filtering. A policy is chosen once per
// store and applied for the whole lifetime of every plan in it.
type ReviewPolicy string

const (
	// PolicyExecution counts applied work: completed and skipped steps.
	PolicyExecution ReviewPolicy = "execution"
	// PolicyApproval counts the approval-gated workflow: approved and
	// skipped steps.
	PolicyApproval ReviewPolicy = "approval"
)

// Accepted reports whether a step with the given status is reviewed under
// this policy.
func (p ReviewPolicy) Accepted(s StepStatus) bool {
	switch p {
	case PolicyApproval:
		return s == StepStatusApproved || s == StepStatusSkipped
	default:
		return s == StepStatusCompleted || s == StepStatusSkipped
	}
}

// settled reports whether a step no longer needs attention for phase
// completion purposes. A completed step never demotes a phase regardless of
// policy.
func (p ReviewPolicy) settled(s StepStatus) bool {
	return p.Accepted(s) || s == StepStatusCompleted
}

// validStepTransitions is the closed transition table for step statuses.
// Terminal statuses (completed, skipped, approved) are only left through an
// explicit reset to pending; failed steps may be retried.
var validStepTransitions = map[StepStatus][]StepStatus{
	StepStatusPending:    {StepStatusInProgress, StepStatusApproved, StepStatusCompleted, StepStatusSkipped, StepStatusFailed},
	StepStatusInProgress: {StepStatusPending, StepStatusApproved, StepStatusCompleted, StepStatusSkipped, StepStatusFailed},
	StepStatusApproved:   {StepStatusPending},
	StepStatusCompleted:  {StepStatusPending},
	StepStatusSkipped:    {StepStatusPending},
	StepStatusFailed:     {StepStatusPending, StepStatusInProgress},
}

// ValidTransition reports whether a step may move from one status to another.
// Re-asserting the current status is always permitted (a no-op).
func ValidTransition(from, to StepStatus) bool {
	if from == to {
		return true
	}
	for _, s := range validStepTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PhaseStatusFor derives a phase's status from its steps: failed if any step
// failed, completed once every step is settled, in-progress while any step is
// being worked, pending otherwise.
func PhaseStatusFor(phase *Phase, policy ReviewPolicy) PhaseStatus {
	if len(phase.Steps) == 0 {
		return PhaseStatusPending
	}

	allSettled := true
	for _, s := range phase.Steps {
		if s.Status == StepStatusFailed {
			return PhaseStatusFailed
		}
		if !policy.settled(s.Status) {
			allSettled = false
		}
	}
	if allSettled {
		return PhaseStatusCompleted
	}
	for _, s := range phase.Steps {
		if s.Status == StepStatusInProgress {
			return PhaseStatusInProgress
		}
	}
	return PhaseStatusPending
}

// PlanStatusFor rolls phase statuses up into a plan status by the analogous
// rule: failed, then completed, then active, then draft. Finalized and paused
// are set explicitly and never derived, so they are preserved as-is unless a
// phase failed.
func PlanStatusFor(p *Plan, policy ReviewPolicy) PlanStatus {
	anyFailed := false
	anyInProgress := false
	allCompleted := len(p.Phases) > 0
	for i := range p.Phases {
		switch p.Phases[i].Status {
		case PhaseStatusFailed:
			anyFailed = true
			allCompleted = false
		case PhaseStatusInProgress:
			anyInProgress = true
			allCompleted = false
		case PhaseStatusPending:
			allCompleted = false
		}
	}

	switch {
	case anyFailed:
		return PlanStatusFailed
	case p.Status == PlanStatusFinalized || p.Status == PlanStatusPaused:
		return p.Status
	case allCompleted:
		return PlanStatusCompleted
	case anyInProgress:
		return PlanStatusActive
	default:
		return PlanStatusDraft
	}
}

// ProgressFor computes a plan's progress as the rounded percentage of
// reviewed steps. A plan with zero steps has progress 0.
func ProgressFor(p *Plan, policy ReviewPolicy) int {
	total := p.TotalSteps()
	if total == 0 {
		return 0
	}
	reviewed := 0
	for _, s := range p.AllSteps() {
		if policy.Accepted(s.Status) {
			reviewed++
		}
	}
	return int(math.Round(100 * float64(reviewed) / float64(total)))
}

// Recalculate re-derives every phase status, the plan status, the progress
// value, and the summary metadata in place.
func Recalculate(p *Plan, policy ReviewPolicy) {
	for i := range p.Phases {
		p.Phases[i].Status = PhaseStatusFor(&p.Phases[i], policy)
	}
	p.Status = PlanStatusFor(p, policy)
	p.Progress = ProgressFor(p, policy)

	reviewed := 0
	for _, s := range p.AllSteps() {
		if policy.Accepted(s.Status) {
			reviewed++
		}
	}
	md := Metadata{
		TotalSteps:     p.TotalSteps(),
		CompletedSteps: reviewed,
		FilesAffected:  p.FilesAffected(),
	}
	if p.Metadata != nil {
		md.EstimatedTime = p.Metadata.EstimatedTime
	}
	p.Metadata = &md
}

// CanFinalize reports whether every step has been reviewed. Plans with no
// steps can never be finalized.
func CanFinalize(p *Plan, policy ReviewPolicy) bool {
	total := 0
	for _, s := range p.AllSteps() {
		total++
		if !policy.Accepted(s.Status) {
			return false
		}
	}
	return total > 0
}

// ReviewedSubset returns a copy of the plan with every phase's step list
// filtered down to reviewed steps. The receiver is not mutated.
func ReviewedSubset(p *Plan, policy ReviewPolicy) *Plan {
	cp := p.Clone()
	for i := range cp.Phases {
		var kept []Step
		for _, s := range cp.Phases[i].Steps {
			if policy.Accepted(s.Status) {
				kept = append(kept, s)
			}
		}
		cp.Phases[i].Steps = kept
	}
	return cp
}
