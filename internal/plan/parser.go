package plan

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyPlan is returned when the input produced zero phases. Callers treat
// it as a recoverable condition and fall back to a plain chat reply.
var ErrEmptyPlan = errors.New("no phases found in plan text")

// maxFallbackTitleLen bounds the title taken from the user's query when the
// model omitted a PLAN: line.
const maxFallbackTitleLen = 50

// defaultCodeLanguage is assumed for fenced blocks with no language tag.
const defaultCodeLanguage = "typescript"

var (
	phaseHeaderRe = regexp.MustCompile(`(?i)^PHASE\s+(\d+):\s*(.+)`)
	stepHeaderRe  = regexp.MustCompile(`(?i)^STEP\s+[\d.]+:\s*(.+)`)
)

var stepTypes = map[string]StepType{
	"code":    StepTypeCode,
	"file":    StepTypeFile,
	"command": StepTypeCommand,
	"review":  StepTypeReview,
	"test":    StepTypeTest,
}

var languageExtensions = map[string]string{
	"typescript": "ts",
	"javascript": "js",
	"tsx":        "tsx",
	"jsx":        "jsx",
	"python":     "py",
	"rust":       "rs",
	"go":         "go",
	"java":       "java",
	"css":        "css",
	"html":       "html",
	"json":       "json",
	"bash":       "sh",
	"shell":      "sh",
}

// parseState tracks the phase/step/code-block currently being assembled.
type parseState struct {
	title        string
	description  string
	phases       []Phase
	currentPhase *Phase
	currentStep  *Step

	inCodeBlock   bool
	codeLanguage  string
	codeLines     []string
	placeholderID int
}

// Parse converts a raw model response into a Plan tree following the
// line-oriented PLAN/PHASE/STEP grammar. Keywords are case-insensitive;
// phases and steps are ordered by first appearance, not by their numeric
// labels. Returns ErrEmptyPlan when no phases were found.
//
// The returned plan has no ids and no timestamps; those are assigned when the
// plan is admitted into the store.
func Parse(rawText, fallbackTitle string) (*Plan, error) {
	st := &parseState{}

	for _, rawLine := range strings.Split(rawText, "\n") {
		line := strings.TrimSpace(rawLine)

		// Fences toggle code mode; everything between them accumulates
		// verbatim, so fence handling runs before any keyword matching.
		if strings.HasPrefix(line, "```") {
			st.toggleCodeBlock(line)
			continue
		}
		if st.inCodeBlock {
			st.codeLines = append(st.codeLines, rawLine)
			continue
		}

		if title, ok := cutKeyword(line, "PLAN:"); ok && st.title == "" {
			st.title = title
			continue
		}
		if desc, ok := cutKeyword(line, "DESCRIPTION:"); ok && st.description == "" {
			st.description = desc
			continue
		}

		if m := phaseHeaderRe.FindStringSubmatch(line); m != nil {
			st.openPhase(strings.TrimSpace(m[2]))
			continue
		}
		if m := stepHeaderRe.FindStringSubmatch(line); m != nil {
			st.openStep(strings.TrimSpace(m[1]))
			continue
		}

		st.metadataLine(line)
	}

	st.flushStep()
	st.flushPhase()

	if len(st.phases) == 0 {
		return nil, ErrEmptyPlan
	}

	title := st.title
	if title == "" {
		title = truncate(fallbackTitle, maxFallbackTitleLen)
	}
	description := st.description
	if description == "" {
		description = "Execution plan for: " + fallbackTitle
	}

	p := &Plan{
		Title:       title,
		Description: description,
		Status:      PlanStatusDraft,
		Progress:    0,
		Phases:      st.phases,
	}
	p.Metadata = &Metadata{
		TotalSteps:    p.TotalSteps(),
		FilesAffected: p.FilesAffected(),
		EstimatedTime: joinEstimates(st.phases),
	}
	return p, nil
}

// cutKeyword strips a case-insensitive leading keyword and returns the
// trimmed remainder.
func cutKeyword(line, keyword string) (string, bool) {
	if len(line) < len(keyword) || !strings.EqualFold(line[:len(keyword)], keyword) {
		return "", false
	}
	return strings.TrimSpace(line[len(keyword):]), true
}

func (st *parseState) toggleCodeBlock(line string) {
	if !st.inCodeBlock {
		st.inCodeBlock = true
		st.codeLanguage = strings.TrimSpace(strings.TrimPrefix(line, "```"))
		if st.codeLanguage == "" {
			st.codeLanguage = defaultCodeLanguage
		}
		st.codeLines = nil
		return
	}

	st.inCodeBlock = false
	// A block closing with no step open has no home; drop it rather than
	// fail, since model formatting drift is expected.
	if st.currentStep == nil {
		return
	}
	st.currentStep.CodeChanges = append(st.currentStep.CodeChanges, CodeChange{
		File:       st.codeChangeFile(),
		Language:   st.codeLanguage,
		ChangeType: ChangeTypeCreate,
		Content:    strings.TrimSpace(strings.Join(st.codeLines, "\n")),
		Applied:    false,
	})
}

// codeChangeFile picks the target file for a closed code block: the step's
// first declared file, or a generated placeholder name.
func (st *parseState) codeChangeFile() string {
	if len(st.currentStep.Files) > 0 {
		return st.currentStep.Files[0]
	}
	st.placeholderID++
	ext, ok := languageExtensions[strings.ToLower(st.codeLanguage)]
	if !ok {
		ext = "txt"
	}
	return fmt.Sprintf("generated-%d.%s", st.placeholderID, ext)
}

func (st *parseState) openPhase(label string) {
	st.flushStep()
	st.flushPhase()
	st.currentPhase = &Phase{
		Label:  label,
		Status: PhaseStatusPending,
	}
}

func (st *parseState) openStep(label string) {
	st.flushStep()
	if st.currentPhase == nil {
		// STEP header before any PHASE header; nothing to attach to.
		return
	}
	st.currentStep = &Step{
		Label:  label,
		Status: StepStatusPending,
		Type:   StepTypeCode,
	}
}

// metadataLine handles "- Key:" lines for whichever of phase/step was opened
// most recently. Anything unrecognized is ignored.
func (st *parseState) metadataLine(line string) {
	if st.currentStep != nil {
		if v, ok := cutKeyword(line, "- Type:"); ok {
			if t, valid := stepTypes[strings.ToLower(v)]; valid {
				st.currentStep.Type = t
			}
			return
		}
		if v, ok := cutKeyword(line, "- Files:"); ok {
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					st.currentStep.Files = append(st.currentStep.Files, f)
				}
			}
			return
		}
		if v, ok := cutKeyword(line, "- Action:"); ok {
			st.currentStep.Description = v
			return
		}
		return
	}

	if st.currentPhase != nil {
		if v, ok := cutKeyword(line, "- Estimated time:"); ok {
			st.currentPhase.EstimatedTime = v
			return
		}
		if v, ok := cutKeyword(line, "- Description:"); ok {
			st.currentPhase.Description = v
			return
		}
	}
}

func (st *parseState) flushStep() {
	if st.currentStep == nil || st.currentPhase == nil {
		st.currentStep = nil
		return
	}
	st.currentStep.Order = len(st.currentPhase.Steps)
	st.currentPhase.Steps = append(st.currentPhase.Steps, *st.currentStep)
	st.currentStep = nil
}

func (st *parseState) flushPhase() {
	if st.currentPhase == nil {
		return
	}
	st.currentPhase.Order = len(st.phases)
	st.currentPhase.Expanded = len(st.phases) == 0 // first phase starts expanded
	st.phases = append(st.phases, *st.currentPhase)
	st.currentPhase = nil
}

func joinEstimates(phases []Phase) string {
	var parts []string
	for _, p := range phases {
		if p.EstimatedTime != "" {
			parts = append(parts, p.EstimatedTime)
		}
	}
	return strings.Join(parts, " + ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
