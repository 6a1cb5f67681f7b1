package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planweave/planweave/internal/plan"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8713", cfg.Server.Addr)
	assert.Equal(t, plan.PolicyExecution, cfg.ReviewPolicy())
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = "0.0.0.0:9000"

[ollama]
chat_model = "llama3.1:8b"

[review]
policy = "approval"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "llama3.1:8b", cfg.Ollama.ChatModel)
	assert.Equal(t, plan.PolicyApproval, cfg.ReviewPolicy())
	// Untouched sections keep defaults.
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbedModel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \"0.0.0.0:9000\"\n"), 0644))

	t.Setenv("PLANWEAVE_ADDR", "127.0.0.1:4242")
	t.Setenv("PLANWEAVE_TOP_K", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4242", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[review]\npolicy = \"yolo\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid review policy")
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr ="), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
