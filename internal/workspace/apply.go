package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/planweave/planweave/internal/plan"
)

// ApplyResult reports what applying a code change did to disk.
type ApplyResult struct {
	Path  string `json:"path"`
	Diff  string `json:"diff,omitempty"` // patch text for modifies
	Bytes int    `json:"bytes"`
}

// Apply writes a plan code change to disk and refreshes the snapshot. The
// caller is responsible for flipping the change's applied flag in the store
// once this succeeds.
func (w *Workspace) Apply(change plan.CodeChange) (*ApplyResult, error) {
	abs, err := w.resolve(change.File)
	if err != nil {
		return nil, err
	}

	switch change.ChangeType {
	case plan.ChangeTypeCreate:
		if err := writeFileAtomic(abs, []byte(change.Content)); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", change.File, err)
		}
		if err := w.Refresh(change.File); err != nil {
			return nil, err
		}
		return &ApplyResult{Path: change.File, Bytes: len(change.Content)}, nil

	case plan.ChangeTypeModify:
		before, after, err := modifyContents(abs, change)
		if err != nil {
			return nil, err
		}
		if err := writeFileAtomic(abs, []byte(after)); err != nil {
			return nil, fmt.Errorf("failed to modify %s: %w", change.File, err)
		}
		if err := w.Refresh(change.File); err != nil {
			return nil, err
		}
		dmp := diffmatchpatch.New()
		patches := dmp.PatchMake(before, after)
		return &ApplyResult{
			Path:  change.File,
			Diff:  dmp.PatchToText(patches),
			Bytes: len(after),
		}, nil

	case plan.ChangeTypeDelete:
		if err := os.Remove(abs); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", change.File, err)
		}
		if err := w.Refresh(change.File); err != nil {
			return nil, err
		}
		return &ApplyResult{Path: change.File}, nil

	default:
		return nil, fmt.Errorf("unknown change type %q", change.ChangeType)
	}
}

// modifyContents resolves the before/after pair for a modify: an explicit
// After wins, otherwise Content replaces the whole file.
func modifyContents(abs string, change plan.CodeChange) (before, after string, err error) {
	current, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("cannot modify %s: %w", change.File, err)
	}
	before = string(current)

	switch {
	case change.After != "":
		after = change.After
	case change.Content != "":
		after = change.Content
	default:
		return "", "", fmt.Errorf("modify of %s carries no content", change.File)
	}
	return before, after, nil
}

// writeFileAtomic writes via a temp file in the same directory plus rename, so
// a crash never leaves a half-written file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
