package index

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

// formatName tags canonic artifacts.
const formatName = "canonic.index"

// artifact is the JSON layout of a persisted index.
// variants and canonicals are nil when absent from the document.
type artifact struct {
	Format     string      `json:"format"`
	Version    int         `json:"version"`
	Model      string      `json:"model,omitempty"`
	Dimensions int         `json:"dimensions"`
	CreatedAt  time.Time   `json:"created_at"`
	Variants   []string    `json:"variants"`
	Canonicals []string    `json:"canonicals"`
	Embeddings [][]float32 `json:"embeddings"`
}

func indexToArtifact(idx domidx.Index) artifact {
	meta := idx.Meta()
	return artifact{
		Format:     formatName,
		Version:    domidx.FormatVersion,
		Model:      meta.Model,
		Dimensions: meta.Dimensions,
		CreatedAt:  meta.CreatedAt.UTC(),
		Variants:   nonNil(idx.Variants()),
		Canonicals: nonNil(idx.Canonicals()),
		Embeddings: nonNil(idx.Vectors()),
	}
}

func artifactToIndex(a artifact) (domidx.Index, error) {
	if a.Format != "" && a.Format != formatName {
		return domidx.Index{}, fmt.Errorf("unknown artifact format %q: %w", a.Format, domain.ErrUnreadableInput)
	}
	if a.Variants == nil || a.Canonicals == nil {
		return domidx.Index{}, fmt.Errorf("artifact lacks variants or canonicals, rebuild it: %w",
			domain.ErrIndexFormatOutdated)
	}
	if a.Version > domidx.FormatVersion {
		return domidx.Index{}, fmt.Errorf("artifact version %d is newer than supported %d: %w",
			a.Version, domidx.FormatVersion, domain.ErrUnreadableInput)
	}
	embeddings := a.Embeddings
	if embeddings == nil {
		embeddings = [][]float32{}
	}

	idx, err := domidx.New(a.Variants, a.Canonicals, embeddings, domidx.Meta{
		Model:      a.Model,
		Dimensions: a.Dimensions,
		CreatedAt:  a.CreatedAt,
	})
	if err != nil {
		return domidx.Index{}, fmt.Errorf("restore index: %w", err)
	}
	return idx, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
