// Package index holds the catalog index: variants, canonical names and variant embeddings.
package index

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/canonic/internal/domain"
)

// FormatVersion is the artifact layout version written by this build.
const FormatVersion = 2

// Meta describes how an index was built.
type Meta struct {
	Model      string
	Dimensions int
	CreatedAt  time.Time
}

// Index is the catalog index aggregate (immutable value object).
// variants[i], canonicals[i] and vectors[i] describe the same catalog entry.
type Index struct {
	variants   []string
	canonicals []string
	vectors    [][]float32
	meta       Meta
}

// New validates and creates an Index. The three sequences must have equal length
// and every vector the same dimension.
func New(variants, canonicals []string, vectors [][]float32, meta Meta) (Index, error) {
	if len(variants) != len(canonicals) || len(variants) != len(vectors) {
		return Index{}, fmt.Errorf("variants=%d canonicals=%d embeddings=%d: %w",
			len(variants), len(canonicals), len(vectors), domain.ErrIndexCorrupt)
	}

	dim := meta.Dimensions
	for i, v := range vectors {
		if len(v) == 0 {
			return Index{}, fmt.Errorf("entry %d has an empty embedding: %w", i, domain.ErrIndexCorrupt)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return Index{}, fmt.Errorf("entry %d has dimension %d, expected %d: %w",
				i, len(v), dim, domain.ErrIndexCorrupt)
		}
	}
	meta.Dimensions = dim

	return Index{
		variants:   append([]string(nil), variants...),
		canonicals: append([]string(nil), canonicals...),
		vectors:    cloneVectors(vectors),
		meta:       meta,
	}, nil
}

// Len returns the number of catalog entries.
func (x Index) Len() int { return len(x.variants) }

// IsEmpty reports whether the index has no entries.
func (x Index) IsEmpty() bool { return len(x.variants) == 0 }

// Variant returns the search variant at position i.
func (x Index) Variant(i int) string { return x.variants[i] }

// Canonical returns the canonical name at position i.
func (x Index) Canonical(i int) string { return x.canonicals[i] }

// Vector returns the embedding at position i. Callers must not modify it.
func (x Index) Vector(i int) []float32 { return x.vectors[i] }

// Variants returns a copy of the variant sequence.
func (x Index) Variants() []string { return append([]string(nil), x.variants...) }

// Canonicals returns a copy of the canonical sequence.
func (x Index) Canonicals() []string { return append([]string(nil), x.canonicals...) }

// Vectors returns a copy of the embedding sequence.
func (x Index) Vectors() [][]float32 { return cloneVectors(x.vectors) }

// Meta returns build metadata.
func (x Index) Meta() Meta { return x.meta }

// Dimensions returns the embedding dimension, 0 for an empty index.
func (x Index) Dimensions() int { return x.meta.Dimensions }

func cloneVectors(in [][]float32) [][]float32 {
	out := make([][]float32, len(in))
	for i, v := range in {
		out[i] = append([]float32(nil), v...)
	}
	return out
}
