package matching

import "context"

// Embedder vectorizes queries in order.
// ModelID may return "" when the active model is unknown.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}
