package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

// Candidate is one embedding model the provider may fall back to.
// Load builds the decorated embedder; it runs at most once per successful load.
type Candidate struct {
	ID   string
	Load func(ctx context.Context) (domain.Embedder, error)
}

// Provider resolves the first working model out of an ordered candidate list
// on first use and serves every later call from it.
type Provider struct {
	candidates []Candidate
	probeText  string
	logger     *zap.Logger

	mu      sync.Mutex
	loaded  bool
	active  domain.Embedder
	modelID string
	dims    int
}

// NewProvider creates a lazy provider. The first candidate is primary, the rest are fallbacks.
func NewProvider(candidates []Candidate, probeText string, logger *zap.Logger) *Provider {
	if probeText == "" {
		probeText = "probe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		candidates: candidates,
		probeText:  probeText,
		logger:     logger,
	}
}

// Load resolves the active model. A failed resolution is not memoized,
// so the next call tries the whole candidate list again.
func (p *Provider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

func (p *Provider) loadLocked(ctx context.Context) error {
	if p.loaded {
		return nil
	}

	errs := make([]error, 0, len(p.candidates))
	for _, c := range p.candidates {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load embedding model: %w", err)
		}

		emb, dims, err := p.try(ctx, c)
		if err != nil {
			metrics.EmbeddingModelLoadsTotal.WithLabelValues(c.ID, "error").Inc()
			p.logger.Warn("Embedding model unavailable, trying next",
				zap.String("model", c.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", c.ID, err))
			continue
		}

		metrics.EmbeddingModelLoadsTotal.WithLabelValues(c.ID, "success").Inc()
		metrics.EmbeddingModelActive.WithLabelValues(c.ID).Set(1)
		p.logger.Info("Embedding model loaded",
			zap.String("model", c.ID),
			zap.Int("dimensions", dims),
		)

		p.active = emb
		p.modelID = c.ID
		p.dims = dims
		p.loaded = true
		return nil
	}

	p.logger.Error("No embedding model could be loaded", zap.Int("candidates", len(p.candidates)))
	if len(errs) == 0 {
		return fmt.Errorf("%w: no models configured", domain.ErrModelUnavailable)
	}
	return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, errors.Join(errs...))
}

// try loads a candidate and embeds the probe text to confirm it works end to end.
func (p *Provider) try(ctx context.Context, c Candidate) (domain.Embedder, int, error) {
	if c.Load == nil {
		return nil, 0, errors.New("no loader")
	}
	emb, err := c.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	res, err := emb.Embed(ctx, p.probeText)
	if err != nil {
		return nil, 0, fmt.Errorf("probe: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, 0, errors.New("probe returned an empty vector")
	}
	return emb, len(res.Embedding), nil
}

func (p *Provider) get(ctx context.Context) (domain.Embedder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(ctx); err != nil {
		return nil, err
	}
	return p.active, nil
}

// Embed vectorizes texts in input order with a single batch call.
// Empty input returns without touching the model.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	emb, err := p.get(ctx)
	if err != nil {
		return nil, err
	}

	res, err := domain.EmbedAll(ctx, emb, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	return res.Embeddings, nil
}

// ModelID returns the active model identifier, or "" before a successful load.
func (p *Provider) ModelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modelID
}

// Dimensions returns the active model's vector size, or 0 before a successful load.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

// Loaded reports whether a model has been resolved.
func (p *Provider) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// HealthCheck loads the model if needed and checks the active backend.
func (p *Provider) HealthCheck(ctx context.Context) error {
	emb, err := p.get(ctx)
	if err != nil {
		return err
	}
	if hc, ok := emb.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.ModelID(), err)
		}
	}
	return nil
}
