package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
)

func candidate(id string, emb domain.Embedder, loads *int32) Candidate {
	return Candidate{
		ID: id,
		Load: func(context.Context) (domain.Embedder, error) {
			if loads != nil {
				atomic.AddInt32(loads, 1)
			}
			return emb, nil
		},
	}
}

func failing(id string, loads *int32) Candidate {
	return Candidate{
		ID: id,
		Load: func(context.Context) (domain.Embedder, error) {
			if loads != nil {
				atomic.AddInt32(loads, 1)
			}
			return nil, errors.New("weights not found")
		},
	}
}

func TestProvider_PrimaryWins(t *testing.T) {
	primary := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}}
	fallback := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0, 1}}}
	var fallbackLoads int32

	p := NewProvider([]Candidate{
		candidate("primary", primary, nil),
		candidate("fallback", fallback, &fallbackLoads),
	}, "", zap.NewNop())

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "primary" {
		t.Errorf("expected primary model, got %q", p.ModelID())
	}
	if p.Dimensions() != 3 {
		t.Errorf("expected 3 dimensions, got %d", p.Dimensions())
	}
	if fallbackLoads != 0 {
		t.Errorf("fallback must not be loaded when primary works")
	}
}

func TestProvider_FallsBack(t *testing.T) {
	fallback := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0, 1}}}
	p := NewProvider([]Candidate{
		failing("primary", nil),
		candidate("fallback", fallback, nil),
	}, "probe", zap.NewNop())

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if p.ModelID() != "fallback" {
		t.Errorf("expected fallback model, got %q", p.ModelID())
	}
}

func TestProvider_ProbeFailureFallsBack(t *testing.T) {
	broken := &mockEmbedder{err: errors.New("boom")}
	empty := &mockEmbedder{result: domain.EmbeddingResult{Embedding: nil}}
	good := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}

	p := NewProvider([]Candidate{
		candidate("broken", broken, nil),
		candidate("empty", empty, nil),
		candidate("good", good, nil),
	}, "", zap.NewNop())

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "good" {
		t.Errorf("expected good model, got %q", p.ModelID())
	}
}

func TestProvider_AllFail(t *testing.T) {
	p := NewProvider([]Candidate{failing("a", nil), failing("b", nil)}, "", zap.NewNop())

	err := p.Load(context.Background())
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if p.Loaded() {
		t.Error("failed load must not be memoized")
	}

	if _, err := p.Embed(context.Background(), []string{"x"}); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable from Embed, got %v", err)
	}
}

func TestProvider_NoCandidates(t *testing.T) {
	p := NewProvider(nil, "", nil)
	if err := p.Load(context.Background()); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestProvider_RetriesAfterFailure(t *testing.T) {
	var calls int32
	good := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	flaky := Candidate{
		ID: "flaky",
		Load: func(context.Context) (domain.Embedder, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("temporarily unavailable")
			}
			return good, nil
		},
	}
	p := NewProvider([]Candidate{flaky}, "", zap.NewNop())

	if err := p.Load(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("expected second load to succeed, got %v", err)
	}
}

func TestProvider_LoadsOnceUnderConcurrency(t *testing.T) {
	var loads int32
	emb := &plainMockEmbedder{embedding: []float32{1, 2}}
	p := NewProvider([]Candidate{candidate("m", emb, &loads)}, "", zap.NewNop())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Load(context.Background())
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Errorf("expected a single load, got %d", loads)
	}
}

func TestProvider_EmptyInputSkipsModel(t *testing.T) {
	var loads int32
	p := NewProvider([]Candidate{candidate("m", &mockEmbedder{}, &loads)}, "", zap.NewNop())

	vecs, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil vectors, got %v", vecs)
	}
	if loads != 0 {
		t.Error("empty input must not load a model")
	}
}

func TestProvider_EmbedUsesSingleBatch(t *testing.T) {
	emb := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewProvider([]Candidate{candidate("m", emb, nil)}, "", zap.NewNop())

	if _, err := p.Embed(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 1 {
		t.Errorf("expected one batch call, got %d", emb.batchCalls)
	}
}

func TestProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProvider([]Candidate{candidate("m", &mockEmbedder{}, nil)}, "", zap.NewNop())
	if err := p.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
