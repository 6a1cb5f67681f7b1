package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planweave/planweave/internal/plan"
)

// SystemPrompt frames every conversational reply.
const SystemPrompt = `You are an expert coding assistant integrated into an IDE. You have access to the user's workspace files and can see their code.

Your responsibilities:
- Help users understand their code
- Suggest improvements and fixes
- Answer questions about their codebase
- Provide specific code examples when needed
- Reference specific files and line numbers when making suggestions

When responding:
- Be concise but thorough
- Reference specific files from the workspace when relevant
- Provide code examples in markdown code blocks with the appropriate language
- If suggesting changes, clearly indicate which file should be modified
- Ask clarifying questions if the user's request is ambiguous

You have access to:
1. The complete list of files in the workspace
2. Relevant code snippets retrieved via semantic search
3. The conversation history

Always base your responses on the actual code in the workspace.`

// PlanGenerationPrompt instructs the model to emit the line-oriented plan
// grammar the parser understands.
const PlanGenerationPrompt = `You are an expert software architect. Break the user's request into a structured, phased execution plan.

Output the plan using EXACTLY this format, one item per line:

PLAN: [short title for the overall plan]
DESCRIPTION: [one sentence describing what will be built]

PHASE 1: [phase name]
- Estimated time: [rough estimate, e.g. 30 minutes]
- Description: [what this phase accomplishes]

STEP 1.1: [step title]
- Type: [one of: code, file, command, review, test]
- Files: [comma-separated file paths this step touches]
- Action: [one sentence describing exactly what to do]

` + "```" + `[language]
[working code for this step, when the step produces code]
` + "```" + `

STEP 1.2: [next step title]
...

PHASE 2: [next phase name]
...

Rules:
- Every step belongs to the most recent PHASE line above it
- Number phases and steps sequentially
- Keep steps small and independently verifiable
- Put code in a fenced block immediately after the step it belongs to
- Do not add prose outside this format`

// AgentPlanPrompt turns a reviewed plan into an agent-ready execution
// document.
const AgentPlanPrompt = `You are a plan transformation specialist. Your job is to take a user-reviewed execution plan and transform it into a clean, agent-friendly format optimized for coding agents.

## Your Task:
1. Analyze the original proposed plan and user decisions (approved/skipped steps)
2. Generate a comprehensive, sequential plan that includes ONLY approved steps
3. Provide working code examples for each step
4. Ensure the plan is clear, actionable, and ready for execution by an AI coding agent

## Output Format:
Create a markdown document with the following structure:

` + "```" + `
# Agent Execution Plan: [Title]

## Overview
[Brief description of what will be built]

## User Review Summary
- Total Steps Proposed: X
- Steps Approved: Y
- Steps Skipped: Z
- Modifications: [Any notable changes]

---

## Phase 1: [Phase Name]
**Status:** Approved
**Estimated Time:** [time]

### Step 1.1: [Step Title]
**Action:** [Clear description of what to do]
**Files:** ` + "`path/to/file.ts`" + `

**Rationale:** [Why this step is important]

---

## Phase 2: [Next Phase]
...

---

## Execution Notes
- [Any important considerations]
- [Dependencies or prerequisites]
- [Testing recommendations]

## Success Criteria
- [ ] Criterion 1
- [ ] Criterion 2
` + "```" + `

## Guidelines:
- Only include approved steps
- Provide complete, working code
- Be specific about file paths
- Include error handling in code examples
- Add helpful comments
- Consider edge cases
- Make it copy-paste ready for agents

Now, transform the following plan:`

// FileContext describes one workspace file for prompt assembly.
type FileContext struct {
	Path     string
	Language string
	Content  string
}

// Snippet is a retrieved piece of code context.
type Snippet struct {
	Path    string
	Content string
}

// maxFileExcerptLen bounds per-file content included in chat prompts.
const maxFileExcerptLen = 500

func snippetsContext(snippets []Snippet) string {
	if len(snippets) == 0 {
		return "No relevant code context found."
	}
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, fmt.Sprintf("From %s:\n%s", s.Path, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

func fileListContext(files []FileContext) string {
	if len(files) == 0 {
		return "No files in workspace."
	}
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, fmt.Sprintf("- %s (%s)", f.Path, f.Language))
	}
	return strings.Join(parts, "\n")
}

func fileExcerptContext(files []FileContext) string {
	if len(files) == 0 {
		return "No files in workspace."
	}
	parts := make([]string, 0, len(files))
	for _, f := range files {
		content := f.Content
		if len(content) > maxFileExcerptLen {
			content = content[:maxFileExcerptLen] + "..."
		}
		parts = append(parts, fmt.Sprintf("File: %s (%s)\n```%s\n%s\n```", f.Path, f.Language, f.Language, content))
	}
	return strings.Join(parts, "\n\n")
}

// BuildPlanPrompt assembles the full plan-generation prompt from the user
// request and workspace context.
func BuildPlanPrompt(query string, files []FileContext, snippets []Snippet) string {
	return fmt.Sprintf(`%s

## Current Workspace Context:

### Existing Files:
%s

### Relevant Code Context:
%s

---

## User Request:
%s

---

Now generate a detailed, structured execution plan following the format above. Include actual working code in the steps.`,
		PlanGenerationPrompt, fileListContext(files), snippetsContext(snippets), query)
}

// BuildChatPrompt assembles a plain conversational prompt with workspace and
// retrieved context.
func BuildChatPrompt(message string, files []FileContext, snippets []Snippet) string {
	return fmt.Sprintf(`%s

Current Workspace Files:
%s

Relevant Code Context:
%s

User Message: %s`,
		SystemPrompt, fileExcerptContext(files), snippetsContext(snippets), message)
}

// BuildPlanSummaryPrompt asks for the short conversational reply that
// accompanies a freshly generated plan.
func BuildPlanSummaryPrompt(message string, files []FileContext, snippets []Snippet) string {
	return BuildChatPrompt(message, files, snippets) + `

I've created a detailed execution plan for this task. Please provide a brief, friendly summary (2-3 sentences) explaining what the plan will accomplish and encourage the user to check the plan view to see the step-by-step breakdown. Be conversational and helpful.`
}

// agentPlanContext is the reviewed-plan payload embedded in the agent-document
// prompt.
type agentPlanContext struct {
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	TotalSteps    int               `json:"totalSteps"`
	ApprovedCount int               `json:"approvedCount"`
	SkippedCount  int               `json:"skippedCount"`
	Phases        []agentPhaseEntry `json:"phases"`
}

type agentPhaseEntry struct {
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Steps       []agentStepEntry `json:"steps"`
}

type agentStepEntry struct {
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Type        string            `json:"type"`
	Files       []string          `json:"files,omitempty"`
	CodeChanges []agentCodeChange `json:"codeChanges,omitempty"`
}

type agentCodeChange struct {
	File     string `json:"file"`
	Language string `json:"language"`
	Content  string `json:"content,omitempty"`
}

// BuildAgentPrompt assembles the prompt that transforms a reviewed plan into
// an agent-ready document. accepted decides which statuses count as approved
// in the review summary.
func BuildAgentPrompt(p *plan.Plan, policy plan.ReviewPolicy) (string, error) {
	var accepted, skipped int
	for _, s := range p.AllSteps() {
		if s.Status == plan.StepStatusSkipped {
			skipped++
		} else if policy.Accepted(s.Status) {
			accepted++
		}
	}

	pc := agentPlanContext{
		Title:         p.Title,
		Description:   p.Description,
		TotalSteps:    p.TotalSteps(),
		ApprovedCount: accepted,
		SkippedCount:  skipped,
	}
	for _, phase := range p.Phases {
		entry := agentPhaseEntry{Label: phase.Label, Description: phase.Description}
		for _, step := range phase.Steps {
			se := agentStepEntry{
				Label:       step.Label,
				Description: step.Description,
				Status:      string(step.Status),
				Type:        string(step.Type),
				Files:       step.Files,
			}
			for _, cc := range step.CodeChanges {
				se.CodeChanges = append(se.CodeChanges, agentCodeChange{
					File:     cc.File,
					Language: cc.Language,
					Content:  cc.Content,
				})
			}
			entry.Steps = append(entry.Steps, se)
		}
		pc.Phases = append(pc.Phases, entry)
	}

	payload, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode plan context: %w", err)
	}

	return fmt.Sprintf("%s\n\n## Original Plan Details:\n```json\n%s\n```\n\nGenerate the agent-friendly execution plan now:",
		AgentPlanPrompt, string(payload)), nil
}
