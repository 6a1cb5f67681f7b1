// Package workspace tracks the files a session is working on and applies
// plan code changes to disk.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// maxFileSize bounds what Scan will load into memory.
const maxFileSize = 1 << 20 // 1 MiB

// ignoredDirs are skipped during scans and never watched.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	".next":        true,
}

var extLanguages = map[string]string{
	".ts":   "typescript",
	".tsx":  "tsx",
	".js":   "javascript",
	".jsx":  "jsx",
	".go":   "go",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
	".css":  "css",
	".html": "html",
	".json": "json",
	".md":   "markdown",
	".sh":   "bash",
	".toml": "toml",
	".yaml": "yaml",
	".yml":  "yaml",
}

// File is one tracked workspace file.
type File struct {
	Path     string `json:"path"` // relative to the workspace root
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Workspace is a root directory plus an in-memory snapshot of its text files.
type Workspace struct {
	root string

	mu    sync.RWMutex
	files map[string]File
}

// New creates a workspace rooted at dir. The directory must exist.
func New(dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Workspace{root: abs, files: make(map[string]File)}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// LanguageForPath guesses a language name from the file extension.
func LanguageForPath(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}

// Scan walks the root and loads recognized text files into the snapshot,
// replacing the previous one. Oversized files and ignored directories are
// skipped.
func (w *Workspace) Scan() error {
	files := make(map[string]File)

	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if info.IsDir() {
			if ignoredDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if _, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		files[rel] = File{
			Path:     rel,
			Name:     filepath.Base(rel),
			Language: LanguageForPath(rel),
			Content:  string(content),
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan workspace: %w", err)
	}

	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
	return nil
}

// Files returns the current snapshot sorted by path.
func (w *Workspace) Files() []File {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]File, 0, len(w.files))
	for _, f := range w.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FileByPath returns one tracked file.
func (w *Workspace) FileByPath(path string) (File, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.files[filepath.ToSlash(path)]
	return f, ok
}

// Refresh re-reads a single file from disk into the snapshot, or drops it if
// it no longer exists.
func (w *Workspace) Refresh(relPath string) error {
	relPath = filepath.ToSlash(relPath)
	abs, err := w.resolve(relPath)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			w.mu.Lock()
			delete(w.files, relPath)
			w.mu.Unlock()
			return nil
		}
		return err
	}

	w.mu.Lock()
	w.files[relPath] = File{
		Path:     relPath,
		Name:     filepath.Base(relPath),
		Language: LanguageForPath(relPath),
		Content:  string(content),
	}
	w.mu.Unlock()
	return nil
}

// resolve maps a relative path to an absolute one inside the root, refusing
// escapes.
func (w *Workspace) resolve(relPath string) (string, error) {
	abs := filepath.Join(w.root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s escapes the workspace", relPath)
	}
	return abs, nil
}
