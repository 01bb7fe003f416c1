// Package catalog builds catalog indexes and holds the active one.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/table"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

// Reader loads a catalog file into a table. Plain text must be accepted.
type Reader func(path string) (table.Table, error)

// BuildResult summarizes an index build.
type BuildResult struct {
	Entries int
	Path    string
	Model   string
	Status  string
}

// Service builds catalog indexes.
type Service struct {
	embedder Embedder
	repo     Repository
	holder   *Holder
	read     Reader
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a catalog service.
func New(embedder Embedder, repo Repository, holder *Holder, read Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder: embedder,
		repo:     repo,
		holder:   holder,
		read:     read,
		logger:   logger,
		now:      time.Now,
	}
}

// Build turns a catalog table into an index. The first column holds search
// variants, the second canonical names; a single column maps to itself.
// Rows with either side missing are dropped.
func (s *Service) Build(ctx context.Context, catalog table.Table) (domidx.Index, error) {
	variants, canonicals, err := entries(catalog)
	if err != nil {
		return domidx.Index{}, err
	}

	vectors, err := s.embedder.Embed(ctx, variants)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("embed variants: %w", err)
	}

	idx, err := domidx.New(variants, canonicals, vectors, domidx.Meta{
		Model:     s.embedder.ModelID(),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domidx.Index{}, fmt.Errorf("assemble index: %w", err)
	}
	return idx, nil
}

// BuildFromFile reads a catalog, builds the index, persists it as a full
// replacement and makes it the active index.
func (s *Service) BuildFromFile(ctx context.Context, path string) (BuildResult, error) {
	start := time.Now()

	catalog, err := s.read(path)
	if err != nil {
		return BuildResult{}, fmt.Errorf("read catalog: %w", err)
	}

	idx, err := s.Build(ctx, catalog)
	if err != nil {
		return BuildResult{}, err
	}

	if err := s.repo.Save(ctx, idx); err != nil {
		return BuildResult{}, fmt.Errorf("save index: %w", err)
	}
	s.holder.Replace(idx)

	metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Index built",
		zap.String("catalog", path),
		zap.String("path", s.repo.Path()),
		zap.Int("entries", idx.Len()),
		zap.String("model", idx.Meta().Model),
		zap.Duration("duration", time.Since(start)),
	)

	return BuildResult{
		Entries: idx.Len(),
		Path:    s.repo.Path(),
		Model:   idx.Meta().Model,
		Status:  fmt.Sprintf("Index built with %d variants.", idx.Len()),
	}, nil
}

// ArtifactPath returns where the configured index artifact is persisted.
func (s *Service) ArtifactPath() string {
	return s.repo.Path()
}

func entries(catalog table.Table) (variants, canonicals []string, err error) {
	if catalog.Width() == 0 {
		return nil, nil, fmt.Errorf("catalog has no columns: %w", domain.ErrEmptyInput)
	}

	canonicalCol := 0
	if catalog.Width() > 1 {
		canonicalCol = 1
	}

	variants = make([]string, 0, catalog.Len())
	canonicals = make([]string, 0, catalog.Len())
	for i := range catalog.Len() {
		row := catalog.Row(i)
		v, ok := cellText(row[0])
		if !ok {
			continue
		}
		c, ok := cellText(row[canonicalCol])
		if !ok {
			continue
		}
		variants = append(variants, v)
		canonicals = append(canonicals, c)
	}
	return variants, canonicals, nil
}

// cellText returns the trimmed value; blank counts as missing.
func cellText(c table.Cell) (string, bool) {
	v, ok := c.Get()
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
