package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

// Holder keeps the process-wide catalog index. The default artifact is read
// once on first use; Replace swaps in a rebuilt index.
type Holder struct {
	repo   Repository
	open   Opener
	logger *zap.Logger

	mu     sync.RWMutex
	loaded bool
	idx    domidx.Index
}

// NewHolder creates a holder over the default artifact repository.
func NewHolder(repo Repository, open Opener, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{repo: repo, open: open, logger: logger}
}

// Get returns the default index, loading it on the first call.
// A failed load is not memoized.
func (h *Holder) Get(ctx context.Context) (domidx.Index, error) {
	h.mu.RLock()
	if h.loaded {
		idx := h.idx
		h.mu.RUnlock()
		return idx, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return h.idx, nil
	}

	idx, err := h.repo.Load(ctx)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("load index %s: %w", h.repo.Path(), err)
	}

	h.idx = idx
	h.loaded = true
	metrics.IndexEntries.Set(float64(idx.Len()))
	h.logger.Info("Index loaded",
		zap.String("path", h.repo.Path()),
		zap.Int("entries", idx.Len()),
		zap.String("model", idx.Meta().Model),
	)
	return idx, nil
}

// Replace installs a freshly built index as the default.
func (h *Holder) Replace(idx domidx.Index) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.idx = idx
	h.loaded = true
	metrics.IndexEntries.Set(float64(idx.Len()))
}

// Load reads an explicit artifact without touching the default index.
func (h *Holder) Load(ctx context.Context, path string) (domidx.Index, error) {
	repo := h.open(path)
	idx, err := repo.Load(ctx)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("load index %s: %w", path, err)
	}
	h.logger.Info("Supplied index loaded",
		zap.String("path", path),
		zap.Int("entries", idx.Len()),
	)
	return idx, nil
}

// Loaded reports whether the default index is in memory.
func (h *Holder) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}
