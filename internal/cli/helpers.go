package cli

import (
	"context"
	"fmt"

	"github.com/planweave/planweave/internal/ai"
	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/retrieval"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/workspace"
)

// localRetriever adapts the vector store for the generator.
type localRetriever struct {
	vectors *retrieval.Store
}

func (r *localRetriever) Retrieve(ctx context.Context, sessionID, query string, topK int) ([]ai.Snippet, error) {
	results, err := r.vectors.Retrieve(ctx, sessionID, query, topK)
	if err != nil {
		return nil, err
	}
	snippets := make([]ai.Snippet, 0, len(results))
	for _, res := range results {
		snippets = append(snippets, ai.Snippet{Path: res.Path, Content: res.Content})
	}
	return snippets, nil
}

// generationContext is everything a one-shot plan generation needs.
type generationContext struct {
	cfg   config.Config
	gen   *ai.Generator
	files []ai.FileContext
}

// setupGeneration loads config, connects the model client, and indexes the
// optional workspace so generation prompts carry real code context.
func setupGeneration(ctx context.Context, workspaceDir string) (*generationContext, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	client, err := ai.NewOllama(ai.OllamaOptions{
		URL:         cfg.Ollama.URL,
		ChatModel:   cfg.Ollama.ChatModel,
		EmbedModel:  cfg.Ollama.EmbedModel,
		Temperature: cfg.Ollama.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("is ollama running? %w", err)
	}

	vectors := retrieval.NewStore(client)
	gc := &generationContext{
		cfg: cfg,
		gen: ai.NewGenerator(client, &localRetriever{vectors: vectors}),
	}

	if workspaceDir != "" {
		ws, err := workspace.New(workspaceDir)
		if err != nil {
			return nil, err
		}
		if err := ws.Scan(); err != nil {
			return nil, err
		}
		if _, err := syncWorkspaceIndex(ctx, vectors, ws); err != nil {
			return nil, err
		}
		for _, f := range ws.Files() {
			gc.files = append(gc.files, ai.FileContext{
				Path:     f.Path,
				Language: f.Language,
				Content:  f.Content,
			})
		}
	}
	return gc, nil
}

// defaultSessionID is what one-shot CLI generations run under.
const defaultSessionID = session.DefaultID
