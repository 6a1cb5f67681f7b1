package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPlanText = `PLAN: Add Login
DESCRIPTION: Wire up credential auth.

PHASE 1: Setup
- Estimated time: 30m
- Description: Prepare dependencies.
STEP 1.1: Install deps
- Type: command
STEP 1.2: Write auth.ts
- Type: code
- Files: lib/auth.ts
- Action: Implement the session helper.
` + "```typescript\nexport const auth = {};\n```\n"

func TestParse_StructuredPlan(t *testing.T) {
	p, err := Parse(loginPlanText, "add login to my app")
	require.NoError(t, err)

	assert.Equal(t, "Add Login", p.Title)
	assert.Equal(t, "Wire up credential auth.", p.Description)
	assert.Equal(t, PlanStatusDraft, p.Status)
	assert.Equal(t, 0, p.Progress)

	require.Len(t, p.Phases, 1)
	phase := p.Phases[0]
	assert.Equal(t, "Setup", phase.Label)
	assert.Equal(t, "30m", phase.EstimatedTime)
	assert.Equal(t, "Prepare dependencies.", phase.Description)
	assert.Equal(t, 0, phase.Order)
	assert.True(t, phase.Expanded)

	require.Len(t, phase.Steps, 2)
	assert.Equal(t, "Install deps", phase.Steps[0].Label)
	assert.Equal(t, StepTypeCommand, phase.Steps[0].Type)
	assert.Empty(t, phase.Steps[0].CodeChanges)

	second := phase.Steps[1]
	assert.Equal(t, "Write auth.ts", second.Label)
	assert.Equal(t, StepTypeCode, second.Type)
	assert.Equal(t, []string{"lib/auth.ts"}, second.Files)
	assert.Equal(t, "Implement the session helper.", second.Description)
	require.Len(t, second.CodeChanges, 1)
	assert.Equal(t, "lib/auth.ts", second.CodeChanges[0].File)
	assert.Equal(t, ChangeTypeCreate, second.CodeChanges[0].ChangeType)
	assert.Equal(t, "typescript", second.CodeChanges[0].Language)
	assert.Equal(t, "export const auth = {};", second.CodeChanges[0].Content)
	assert.False(t, second.CodeChanges[0].Applied)

	require.NotNil(t, p.Metadata)
	assert.Equal(t, 2, p.Metadata.TotalSteps)
	assert.Equal(t, []string{"lib/auth.ts"}, p.Metadata.FilesAffected)
}

func TestParse_NoPhases(t *testing.T) {
	_, err := Parse("Sure, here is how you could think about it.", "query")
	require.ErrorIs(t, err, ErrEmptyPlan)
}

func TestParse_PhaseWithoutSteps(t *testing.T) {
	p, err := Parse("PHASE 1: Research", "query")
	require.NoError(t, err)
	require.Len(t, p.Phases, 1)
	assert.Empty(t, p.Phases[0].Steps)
	assert.Equal(t, 0, p.Progress)
}

func TestParse_FallbackTitleTruncated(t *testing.T) {
	long := strings.Repeat("build a thing ", 10)
	p, err := Parse("PHASE 1: Only", long)
	require.NoError(t, err)
	assert.Len(t, p.Title, maxFallbackTitleLen)
	assert.True(t, strings.HasSuffix(p.Title, "..."))
	assert.Equal(t, "Execution plan for: "+long, p.Description)
}

func TestParse_CaseInsensitiveKeywords(t *testing.T) {
	text := "plan: Lowercase\nphase 1: First\nstep 1.1: Do it\n- type: test\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	assert.Equal(t, "Lowercase", p.Title)
	require.Len(t, p.Phases, 1)
	require.Len(t, p.Phases[0].Steps, 1)
	assert.Equal(t, StepTypeTest, p.Phases[0].Steps[0].Type)
}

func TestParse_FirstPlanLineWins(t *testing.T) {
	text := "PLAN: First\nPLAN: Second\nPHASE 1: A\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	assert.Equal(t, "First", p.Title)
}

func TestParse_OrderFollowsAppearanceNotLabels(t *testing.T) {
	text := "PHASE 9: Later label\nSTEP 9.5: One\nPHASE 2: Other\nSTEP 2.1: Two\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	require.Len(t, p.Phases, 2)
	assert.Equal(t, "Later label", p.Phases[0].Label)
	assert.Equal(t, 0, p.Phases[0].Order)
	assert.Equal(t, "Other", p.Phases[1].Label)
	assert.Equal(t, 1, p.Phases[1].Order)
}

func TestParse_CodeBlockWithoutFilesGetsPlaceholder(t *testing.T) {
	text := "PHASE 1: A\nSTEP 1.1: Script it\n```bash\necho hi\n```\n```python\nprint(1)\n```\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	changes := p.Phases[0].Steps[0].CodeChanges
	require.Len(t, changes, 2)
	assert.Equal(t, "generated-1.sh", changes[0].File)
	assert.Equal(t, "generated-2.py", changes[1].File)
}

func TestParse_CodeBlockDefaultLanguage(t *testing.T) {
	text := "PHASE 1: A\nSTEP 1.1: S\n```\nbody\n```\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	changes := p.Phases[0].Steps[0].CodeChanges
	require.Len(t, changes, 1)
	assert.Equal(t, "typescript", changes[0].Language)
	assert.Equal(t, "generated-1.ts", changes[0].File)
}

func TestParse_CodeBlockOutsideStepDropped(t *testing.T) {
	text := "PHASE 1: A\n```go\npackage main\n```\nSTEP 1.1: S\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	assert.Empty(t, p.Phases[0].Steps[0].CodeChanges)
}

func TestParse_UnrecognizedLinesIgnored(t *testing.T) {
	text := "PHASE 1: A\nThis prose should not leak anywhere.\n- Description: Real description\nSTEP 1.1: S\nmore prose\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	assert.Equal(t, "Real description", p.Phases[0].Description)
	assert.Empty(t, p.Phases[0].Steps[0].Description)
}

func TestParse_PhaseHeaderFlushesOpenStep(t *testing.T) {
	text := "PHASE 1: A\nSTEP 1.1: One\nPHASE 2: B\nSTEP 2.1: Two\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	require.Len(t, p.Phases, 2)
	require.Len(t, p.Phases[0].Steps, 1)
	require.Len(t, p.Phases[1].Steps, 1)
	assert.Equal(t, "One", p.Phases[0].Steps[0].Label)
	assert.Equal(t, "Two", p.Phases[1].Steps[0].Label)
}

func TestParse_InvalidStepTypeKeepsDefault(t *testing.T) {
	text := "PHASE 1: A\nSTEP 1.1: S\n- Type: banana\n"
	p, err := Parse(text, "query")
	require.NoError(t, err)
	assert.Equal(t, StepTypeCode, p.Phases[0].Steps[0].Type)
}

func TestFormatGrammar_RoundTrip(t *testing.T) {
	original, err := Parse(loginPlanText, "add login")
	require.NoError(t, err)

	reparsed, err := Parse(FormatGrammar(original), "add login")
	require.NoError(t, err)

	require.Len(t, reparsed.Phases, len(original.Phases))
	assert.Equal(t, original.Title, reparsed.Title)
	assert.Equal(t, original.Description, reparsed.Description)
	for i := range original.Phases {
		want, got := original.Phases[i], reparsed.Phases[i]
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.Order, got.Order)
		require.Len(t, got.Steps, len(want.Steps))
		for j := range want.Steps {
			assert.Equal(t, want.Steps[j].Label, got.Steps[j].Label)
			assert.Equal(t, want.Steps[j].Type, got.Steps[j].Type)
			assert.Equal(t, want.Steps[j].Files, got.Steps[j].Files)
			assert.Equal(t, want.Steps[j].Order, got.Steps[j].Order)
		}
	}
}
