package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/planweave/planweave/internal/plan"
)

// planTriggerKeywords mark a chat message as a request to build something,
// which routes it through plan generation instead of a plain reply.
var planTriggerKeywords = []string{
	"build", "create", "implement", "develop", "make", "add",
	"setup", "configure", "generate", "write", "code",
	"how to build", "help me create", "show me how to",
	"need to implement", "want to add", "can you build",
}

// ShouldGeneratePlan reports whether the message looks like a request for
// work rather than a question.
func ShouldGeneratePlan(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range planTriggerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Retriever serves relevant code snippets for a session's workspace.
type Retriever interface {
	Retrieve(ctx context.Context, sessionID, query string, topK int) ([]Snippet, error)
}

// defaultTopK is how many snippets of code context a prompt gets.
const defaultTopK = 5

// Generator produces plans and agent documents from model completions.
type Generator struct {
	client    Client
	retriever Retriever
}

// NewGenerator creates a generator. retriever may be nil, in which case
// prompts carry no retrieved context.
func NewGenerator(client Client, retriever Retriever) *Generator {
	return &Generator{client: client, retriever: retriever}
}

// retrieve fetches snippet context, tolerating a nil retriever. Retrieval
// errors degrade to an empty context rather than failing generation.
func (g *Generator) retrieve(ctx context.Context, sessionID, query string) []Snippet {
	if g.retriever == nil {
		return nil
	}
	snippets, err := g.retriever.Retrieve(ctx, sessionID, query, defaultTopK)
	if err != nil {
		return nil
	}
	return snippets
}

// GeneratePlan runs the plan-generation prompt and parses the response into a
// plan tree. Returns plan.ErrEmptyPlan when the model produced no usable
// phases; callers fall back to a conversational reply. A cancelled context
// aborts before any plan is produced.
func (g *Generator) GeneratePlan(ctx context.Context, sessionID, query string, files []FileContext) (*plan.Plan, error) {
	snippets := g.retrieve(ctx, sessionID, query)
	prompt := BuildPlanPrompt(query, files, snippets)

	text, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	p, err := plan.Parse(text, query)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// StreamPlanSummary streams the short conversational reply that accompanies a
// generated plan.
func (g *Generator) StreamPlanSummary(ctx context.Context, sessionID, query string, files []FileContext, onToken func(string) error) error {
	snippets := g.retrieve(ctx, sessionID, query)
	return g.client.ChatStream(ctx, BuildPlanSummaryPrompt(query, files, snippets), onToken)
}

// StreamChat streams a plain conversational reply with workspace context.
func (g *Generator) StreamChat(ctx context.Context, sessionID, message string, files []FileContext, onToken func(string) error) error {
	snippets := g.retrieve(ctx, sessionID, message)
	return g.client.ChatStream(ctx, BuildChatPrompt(message, files, snippets), onToken)
}

// AgentDocument transforms a reviewed plan into an agent-ready markdown
// document. The expensive model call is the reason callers cache the result
// keyed by the plan's fingerprint.
func (g *Generator) AgentDocument(ctx context.Context, p *plan.Plan, policy plan.ReviewPolicy) (string, error) {
	prompt, err := BuildAgentPrompt(p, policy)
	if err != nil {
		return "", err
	}
	doc, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("agent document generation failed: %w", err)
	}
	return doc, nil
}
