// Package matching resolves query strings to canonical names by nearest catalog variant.
package matching

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/match"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

// Hit is the best catalog entry for one query.
type Hit struct {
	Index int
	Score float64
}

// Service runs top-1 cosine search against a catalog index.
type Service struct {
	embedder Embedder
	logger   *zap.Logger
}

// New creates a matching service.
func New(embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, logger: logger}
}

// Match resolves every query. A query resolves to the canonical name of its
// nearest variant when the similarity is at least threshold, otherwise to itself.
// Changes list the resolutions that differ from the query, in query order.
func (s *Service) Match(ctx context.Context, idx domidx.Index, queries []string, threshold float64) (match.Result, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return match.Result{}, fmt.Errorf("threshold %v outside [0, 1]: %w", threshold, domain.ErrInvalidThreshold)
	}

	res := match.Result{Resolutions: make(map[string]string, len(queries))}
	if len(queries) == 0 {
		return res, nil
	}
	if idx.IsEmpty() {
		for _, q := range queries {
			res.Resolutions[q] = q
		}
		metrics.MatchesTotal.WithLabelValues(string(match.Unmatched)).Add(float64(len(queries)))
		return res, nil
	}

	vectors, err := s.embedder.Embed(ctx, queries)
	if err != nil {
		return match.Result{}, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return match.Result{}, fmt.Errorf("got %d embeddings for %d queries: %w",
			len(vectors), len(queries), domain.ErrEmbeddingProviderError)
	}
	if err := checkModel(idx, s.embedder.ModelID()); err != nil {
		return match.Result{}, err
	}

	hits, err := Search(idx, vectors)
	if err != nil {
		return match.Result{}, err
	}

	counts := make(map[match.Outcome]int, 3)
	for i, q := range queries {
		hit := hits[i]
		metrics.MatchScore.Observe(hit.Score)

		if hit.Score < threshold {
			res.Resolutions[q] = q
			counts[match.Unmatched]++
			continue
		}

		resolved := idx.Canonical(hit.Index)
		res.Resolutions[q] = resolved
		if resolved == q {
			counts[match.Confirmed]++
			continue
		}
		counts[match.Substituted]++
		res.Changes = append(res.Changes, match.Change{
			Original:       q,
			MatchedVariant: idx.Variant(hit.Index),
			Resolved:       resolved,
			Confidence:     hit.Score,
		})
	}

	for outcome, n := range counts {
		metrics.MatchesTotal.WithLabelValues(string(outcome)).Add(float64(n))
	}
	s.logger.Debug("Queries matched",
		zap.Int("queries", len(queries)),
		zap.Int("substituted", counts[match.Substituted]),
		zap.Int("confirmed", counts[match.Confirmed]),
		zap.Int("unmatched", counts[match.Unmatched]),
		zap.Float64("threshold", threshold),
	)
	return res, nil
}

// checkModel rejects an index built by a different model. Vectors of two
// models are not comparable even when their dimensions agree.
func checkModel(idx domidx.Index, active string) error {
	built := idx.Meta().Model
	if built == "" || active == "" || built == active {
		return nil
	}
	return fmt.Errorf("index built with %q, active model is %q: %w",
		built, active, domain.ErrIndexModelMismatch)
}

// Search returns the most similar entry of idx for every query vector.
// The first entry in catalog order wins ties. idx must not be empty.
func Search(idx domidx.Index, queries [][]float32) ([]Hit, error) {
	dim := idx.Dimensions()
	norms := make([]float64, idx.Len())
	for j := range norms {
		norms[j] = norm(idx.Vector(j))
	}

	hits := make([]Hit, len(queries))
	for i, q := range queries {
		if len(q) != dim {
			return nil, fmt.Errorf("query %d has dimension %d, index has %d: %w",
				i, len(q), dim, domain.ErrVectorDimMismatch)
		}
		qn := norm(q)
		best := Hit{Index: 0, Score: cosine(q, qn, idx.Vector(0), norms[0])}
		for j := 1; j < idx.Len(); j++ {
			if score := cosine(q, qn, idx.Vector(j), norms[j]); score > best.Score {
				best = Hit{Index: j, Score: score}
			}
		}
		hits[i] = best
	}
	return hits, nil
}
