package chi

import (
	"context"

	catalogu "github.com/kailas-cloud/canonic/internal/usecase/catalog"
	cleaningu "github.com/kailas-cloud/canonic/internal/usecase/cleaning"
	healthuc "github.com/kailas-cloud/canonic/internal/usecase/health"
)

// Indexer builds the catalog index from an uploaded file and locates the persisted artifact.
type Indexer interface {
	BuildFromFile(ctx context.Context, path string) (catalogu.BuildResult, error)
	ArtifactPath() string
}

// Cleaner runs one cleaning pass.
type Cleaner interface {
	Clean(ctx context.Context, req cleaningu.Request) (cleaningu.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
