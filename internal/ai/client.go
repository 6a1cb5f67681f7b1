package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollama "github.com/ollama/ollama/api"
)

// Client is the language-model surface the rest of the application talks to.
// Implementations must honor context cancellation on every call.
type Client interface {
	// Complete runs a single prompt to completion and returns the full text.
	Complete(ctx context.Context, prompt string) (string, error)

	// ChatStream runs a prompt and delivers response tokens to onToken as
	// they arrive. A non-nil error from onToken aborts the stream.
	ChatStream(ctx context.Context, prompt string, onToken func(token string) error) error

	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaClient talks to a local or remote Ollama server.
type OllamaClient struct {
	client      *ollama.Client
	chatModel   string
	embedModel  string
	temperature float64
}

// OllamaOptions configures an OllamaClient.
type OllamaOptions struct {
	// URL of the Ollama server. Empty means resolve from OLLAMA_HOST, the
	// same way the ollama CLI does.
	URL         string
	ChatModel   string
	EmbedModel  string
	Temperature float64
}

// NewOllama creates a client for an Ollama server.
func NewOllama(opts OllamaOptions) (*OllamaClient, error) {
	var client *ollama.Client
	if opts.URL == "" {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
	} else {
		base, err := url.Parse(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", opts.URL, err)
		}
		client = ollama.NewClient(base, http.DefaultClient)
	}

	return &OllamaClient{
		client:      client,
		chatModel:   opts.ChatModel,
		embedModel:  opts.EmbedModel,
		temperature: opts.Temperature,
	}, nil
}

// Ping verifies the server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama server unreachable: %w", err)
	}
	return nil
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	stream := false
	req := &ollama.ChatRequest{
		Model:    c.chatModel,
		Messages: []ollama.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}
	err := c.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		out += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	return out, nil
}

func (c *OllamaClient) ChatStream(ctx context.Context, prompt string, onToken func(token string) error) error {
	stream := true
	req := &ollama.ChatRequest{
		Model:    c.chatModel,
		Messages: []ollama.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}
	err := c.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return onToken(resp.Message.Content)
	})
	if err != nil {
		return fmt.Errorf("chat stream failed: %w", err)
	}
	return nil
}

func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.Embed(ctx, &ollama.EmbedRequest{
		Model: c.embedModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
