package cleaning

import (
	"context"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/match"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// IndexSource provides the default index or an explicitly supplied one.
type IndexSource interface {
	Get(ctx context.Context) (domidx.Index, error)
	Load(ctx context.Context, path string) (domidx.Index, error)
}

// Matcher resolves queries against an index.
type Matcher interface {
	Match(ctx context.Context, idx domidx.Index, queries []string, threshold float64) (match.Result, error)
}

// Reporter augments and exports the cleaned dataset.
type Reporter interface {
	Apply(t table.Table, column string, resolutions map[string]string) (table.Table, error)
	Export(ctx context.Context, augmented table.Table, dir, baseName, runID string) (string, error)
}

// Reader loads a dirty dataset.
type Reader func(path string) (table.Table, error)
