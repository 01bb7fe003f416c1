package catalog

import (
	"context"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

// Embedder vectorizes catalog variants.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Repository persists one index artifact.
type Repository interface {
	Save(ctx context.Context, idx domidx.Index) error
	Load(ctx context.Context) (domidx.Index, error)
	Path() string
}

// Opener returns the repository for an explicit artifact path.
type Opener func(path string) Repository
