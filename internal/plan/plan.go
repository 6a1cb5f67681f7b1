package plan

import "time"

// PlanStatus is the lifecycle status of a plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusFinalized PlanStatus = "finalized"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusFailed    PlanStatus = "failed"
	PlanStatusPaused    PlanStatus = "paused"
)

// PhaseStatus is derived from the statuses of a phase's steps and is never
// set directly by callers.
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in-progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusFailed     PhaseStatus = "failed"
)

// StepStatus is the review/execution status of a single step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in-progress"
	StepStatusApproved   StepStatus = "approved"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusSkipped    StepStatus = "skipped"
)

// StepType classifies what kind of work a step represents.
type StepType string

const (
	StepTypeCode    StepType = "code"
	StepTypeFile    StepType = "file"
	StepTypeCommand StepType = "command"
	StepTypeReview  StepType = "review"
	StepTypeTest    StepType = "test"
)

// ChangeType is the kind of file mutation a CodeChange describes.
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeModify ChangeType = "modify"
	ChangeTypeDelete ChangeType = "delete"
)

// Plan is the top-level structured output of turning a user request into
// actionable work, composed of ordered phases.
type Plan struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      PlanStatus `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Phases      []Phase    `json:"phases"`
	Metadata    *Metadata  `json:"metadata,omitempty"`
}

// Metadata carries derived summary information about a plan.
type Metadata struct {
	EstimatedTime  string   `json:"estimatedTime,omitempty"`
	TotalSteps     int      `json:"totalSteps"`
	CompletedSteps int      `json:"completedSteps"`
	FilesAffected  []string `json:"filesAffected,omitempty"`
}

// Phase is a named stage of a plan, composed of ordered steps.
type Phase struct {
	ID            string      `json:"id"`
	PlanID        string      `json:"planId"`
	Label         string      `json:"label"`
	Description   string      `json:"description,omitempty"`
	Status        PhaseStatus `json:"status"`
	Order         int         `json:"order"`
	EstimatedTime string      `json:"estimatedTime,omitempty"`
	Steps         []Step      `json:"steps"`
	Dependencies  []string    `json:"dependencies,omitempty"`
	Expanded      bool        `json:"expanded"`
}

// Step is a single actionable unit within a phase.
type Step struct {
	ID            string       `json:"id"`
	PhaseID       string       `json:"phaseId"`
	Label         string       `json:"label"`
	Description   string       `json:"description,omitempty"`
	Status        StepStatus   `json:"status"`
	Order         int          `json:"order"`
	Type          StepType     `json:"type"`
	Files         []string     `json:"files,omitempty"`
	CodeChanges   []CodeChange `json:"codeChanges,omitempty"`
	Command       string       `json:"command,omitempty"`
	EstimatedTime string       `json:"estimatedTime,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
	Error         string       `json:"error,omitempty"`
	Expanded      bool         `json:"expanded"`
}

// CodeChange is a concrete file mutation attached to a step. Exactly one of
// Content (full new body) or Diff/Before/After describes the mutation.
type CodeChange struct {
	ID         string     `json:"id"`
	StepID     string     `json:"stepId"`
	File       string     `json:"file"`
	Language   string     `json:"language"`
	ChangeType ChangeType `json:"changeType"`
	Content    string     `json:"content,omitempty"`
	Diff       string     `json:"diff,omitempty"`
	Before     string     `json:"before,omitempty"`
	After      string     `json:"after,omitempty"`
	Applied    bool       `json:"applied"`
	AppliedAt  *time.Time `json:"appliedAt,omitempty"`
}

// AllSteps returns every step across all phases in stable
// (phase order, then step order) sequence.
func (p *Plan) AllSteps() []Step {
	var steps []Step
	for _, phase := range p.Phases {
		steps = append(steps, phase.Steps...)
	}
	return steps
}

// TotalSteps returns the number of steps across all phases.
func (p *Plan) TotalSteps() int {
	n := 0
	for _, phase := range p.Phases {
		n += len(phase.Steps)
	}
	return n
}

// FilesAffected returns the deduplicated set of file paths declared by any
// step, in first-appearance order.
func (p *Plan) FilesAffected() []string {
	seen := make(map[string]bool)
	var files []string
	for _, phase := range p.Phases {
		for _, step := range phase.Steps {
			for _, f := range step.Files {
				if !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
		}
	}
	return files
}

// Clone returns a deep copy of the plan. Mutating the copy never affects the
// original; the store relies on this for its copy-on-write discipline.
func (p *Plan) Clone() *Plan {
	cp := *p
	if p.Metadata != nil {
		md := *p.Metadata
		md.FilesAffected = append([]string(nil), p.Metadata.FilesAffected...)
		cp.Metadata = &md
	}
	cp.Phases = make([]Phase, len(p.Phases))
	for i, phase := range p.Phases {
		cp.Phases[i] = clonePhase(phase)
	}
	return &cp
}

func clonePhase(phase Phase) Phase {
	cp := phase
	cp.Dependencies = append([]string(nil), phase.Dependencies...)
	cp.Steps = make([]Step, len(phase.Steps))
	for i, step := range phase.Steps {
		cp.Steps[i] = cloneStep(step)
	}
	return cp
}

func cloneStep(step Step) Step {
	cp := step
	cp.Files = append([]string(nil), step.Files...)
	cp.CodeChanges = append([]CodeChange(nil), step.CodeChanges...)
	if step.CompletedAt != nil {
		t := *step.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
