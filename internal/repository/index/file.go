package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

// FileRepo stores the index as a single JSON document.
type FileRepo struct {
	path string
}

// NewFile creates a JSON file repository.
func NewFile(path string) *FileRepo {
	return &FileRepo{path: path}
}

// Path returns the artifact location.
func (r *FileRepo) Path() string { return r.path }

// Save replaces the artifact atomically: readers see either the old or the new index.
func (r *FileRepo) Save(ctx context.Context, idx domidx.Index) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	data, err := json.Marshal(indexToArtifact(idx))
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load reads and validates the artifact.
func (r *FileRepo) Load(ctx context.Context) (domidx.Index, error) {
	if err := ctx.Err(); err != nil {
		return domidx.Index{}, fmt.Errorf("load index: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(r.path))
	if errors.Is(err, fs.ErrNotExist) {
		return domidx.Index{}, fmt.Errorf("%s: %w", r.path, domain.ErrIndexNotFound)
	}
	if err != nil {
		return domidx.Index{}, fmt.Errorf("read index %s: %v: %w", r.path, err, domain.ErrUnreadableInput)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return domidx.Index{}, fmt.Errorf("parse index %s: %v: %w", r.path, err, domain.ErrUnreadableInput)
	}
	return artifactToIndex(a)
}
