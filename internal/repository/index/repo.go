// Package index persists catalog indexes as self-describing artifacts.
package index

import (
	"context"
	"path/filepath"
	"strings"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Repo saves and loads one index artifact at a fixed location.
type Repo interface {
	Save(ctx context.Context, idx domidx.Index) error
	Load(ctx context.Context) (domidx.Index, error)
	Path() string
}

// New returns the backend named by storage ("file" or "sqlite") for path.
func New(storage, path string) Repo {
	if storage == StorageSQLite {
		return NewSQLite(path)
	}
	return NewFile(path)
}

// StorageFor picks the backend name from the file extension.
func StorageFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return StorageSQLite
	default:
		return StorageFile
	}
}

// ForPath returns the backend matching the file extension.
// Used for artifacts supplied by a collaborator rather than the configured default.
func ForPath(path string) Repo {
	return New(StorageFor(path), path)
}
