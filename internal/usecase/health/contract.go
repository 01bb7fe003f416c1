package health

import (
	"context"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexSource exposes the active catalog index.
type IndexSource interface {
	Get(ctx context.Context) (domidx.Index, error)
}
