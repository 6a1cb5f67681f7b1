// Package config loads planweave configuration from TOML with environment
// variable overrides.
//
// File location precedence:
//   - path passed explicitly (--config)
//   - ~/.planweave/config.toml
//   - built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/planweave/planweave/internal/plan"
)

// Config is the complete planweave configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Review    ReviewConfig    `toml:"review"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8713".
	Addr string `toml:"addr"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// OllamaConfig configures the model backend.
type OllamaConfig struct {
	// URL of the Ollama server. Empty defers to OLLAMA_HOST.
	URL string `toml:"url"`
	// ChatModel handles plan generation and chat.
	ChatModel string `toml:"chat_model"`
	// EmbedModel produces retrieval embeddings.
	EmbedModel string `toml:"embed_model"`
	// Temperature for chat completions.
	Temperature float64 `toml:"temperature"`
}

// RetrievalConfig configures the vector store.
type RetrievalConfig struct {
	// TopK is how many snippets each prompt gets.
	TopK int `toml:"top_k"`
}

// ReviewConfig configures plan review semantics.
type ReviewConfig struct {
	// Policy decides which step statuses count as reviewed:
	// "execution" (completed/skipped) or "approval" (approved/skipped).
	Policy string `toml:"policy"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8713",
			MaxBodyBytes: 4 << 20,
		},
		Ollama: OllamaConfig{
			ChatModel:   "qwen2.5-coder:7b",
			EmbedModel:  "nomic-embed-text",
			Temperature: 0.3,
		},
		Retrieval: RetrievalConfig{TopK: 5},
		Review:    ReviewConfig{Policy: string(plan.PolicyExecution)},
		Log: LogConfig{
			Path:       defaultLogPath(),
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "planweave.log"
	}
	return filepath.Join(home, ".planweave", "planweave.log")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".planweave", "config.toml")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv layers PLANWEAVE_* environment overrides on top of file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PLANWEAVE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PLANWEAVE_OLLAMA_URL"); v != "" {
		cfg.Ollama.URL = v
	}
	if v := os.Getenv("PLANWEAVE_CHAT_MODEL"); v != "" {
		cfg.Ollama.ChatModel = v
	}
	if v := os.Getenv("PLANWEAVE_EMBED_MODEL"); v != "" {
		cfg.Ollama.EmbedModel = v
	}
	if v := os.Getenv("PLANWEAVE_REVIEW_POLICY"); v != "" {
		cfg.Review.Policy = v
	}
	if v := os.Getenv("PLANWEAVE_LOG_PATH"); v != "" {
		cfg.Log.Path = v
	}
	if v := os.Getenv("PLANWEAVE_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.Retrieval.TopK = k
		}
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch plan.ReviewPolicy(c.Review.Policy) {
	case plan.PolicyExecution, plan.PolicyApproval:
	default:
		return fmt.Errorf("invalid review policy %q (want %q or %q)",
			c.Review.Policy, plan.PolicyExecution, plan.PolicyApproval)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

// ReviewPolicy returns the typed review policy.
func (c Config) ReviewPolicy() plan.ReviewPolicy {
	return plan.ReviewPolicy(c.Review.Policy)
}
