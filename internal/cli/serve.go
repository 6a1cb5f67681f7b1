package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/ai"
	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/logging"
	"github.com/planweave/planweave/internal/retrieval"
	"github.com/planweave/planweave/internal/server"
	"github.com/planweave/planweave/internal/session"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/internal/workspace"
)

var serveWorkspaceDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planweave HTTP server",
	Long:  `Serves the plan, chat, and indexing API. With --workspace, the directory is scanned, indexed for retrieval, and watched for changes.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveWorkspaceDir, "workspace", "", "workspace directory to index and watch")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.Log)
	defer logging.Close()

	client, err := ai.NewOllama(ai.OllamaOptions{
		URL:         cfg.Ollama.URL,
		ChatModel:   cfg.Ollama.ChatModel,
		EmbedModel:  cfg.Ollama.EmbedModel,
		Temperature: cfg.Ollama.Temperature,
	})
	if err != nil {
		return err
	}

	cache := store.NewCache()
	journal := store.NewJournal(journalPath())
	st := store.New(cfg.ReviewPolicy(), cache, store.WithJournal(journal))
	vectors := retrieval.NewStore(client)

	var ws *workspace.Workspace
	var watcher *workspace.Watcher
	if serveWorkspaceDir != "" {
		ws, err = workspace.New(serveWorkspaceDir)
		if err != nil {
			return err
		}
		if err := ws.Scan(); err != nil {
			return err
		}
		if n, err := syncWorkspaceIndex(cmd.Context(), vectors, ws); err != nil {
			logger.Printf("initial index failed: %v", err)
		} else {
			logger.Printf("indexed %d chunks from workspace %s", n, ws.Root())
		}

		watcher, err = workspace.NewWatcher(ws, workspace.DefaultDebounce, func(paths []string) {
			logger.Printf("workspace changed: %v", paths)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := syncWorkspaceIndex(ctx, vectors, ws); err != nil {
				logger.Printf("reindex failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
		if err := watcher.Watch(); err != nil {
			return err
		}
		defer watcher.Close()
	}

	srv := server.New(cfg, st, cache, client, vectors, ws, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Printf("planweave serving on http://%s\n", cfg.Server.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// syncWorkspaceIndex rebuilds the default session's retrieval index from the
// workspace snapshot.
func syncWorkspaceIndex(ctx context.Context, vectors *retrieval.Store, ws *workspace.Workspace) (int, error) {
	files := ws.Files()
	indexed := make([]retrieval.File, 0, len(files))
	for _, f := range files {
		indexed = append(indexed, retrieval.File{
			Path:     f.Path,
			Name:     f.Name,
			Language: f.Language,
			Content:  f.Content,
		})
	}
	return vectors.Sync(ctx, session.DefaultID, indexed)
}

func journalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "journal.jsonl"
	}
	return filepath.Join(home, ".planweave", "journal.jsonl")
}
