package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	batchCalls  int
	batchSizes  []int
	healthErr   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

func (m *mockEmbedder) HealthCheck(_ context.Context) error {
	return m.healthErr
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestInstrumentedEmbedder_WithUsage(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 100,
		TotalTokens:  100,
	}}
	p := NewInstrumentedEmbedder(inner, "test-usage", "test-model-u", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 100 {
		t.Fatalf("expected 100 total tokens, got %d", result.TotalTokens)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("api error: %w", domain.ErrEmbeddingProviderError)}
	p := NewInstrumentedEmbedder(inner, "test-err", "test-model-e", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

// --- BatchEmbed tests ---

func TestInstrumentedEmbedder_BatchEmbed_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	p := NewInstrumentedEmbedder(inner, "test-batch", "test-model-b", zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if res.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "test-chunk", "model", zap.NewNop()).WithMaxBatchSize(2)

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 {
		t.Fatalf("expected 5 embeddings, got %d", len(res.Embeddings))
	}
	want := []int{2, 2, 1}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("expected chunks %v, got %v", want, inner.batchSizes)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Errorf("chunk %d: expected %d texts, got %d", i, want[i], inner.batchSizes[i])
		}
	}
}

func TestInstrumentedEmbedder_WithMaxBatchSize_IgnoresNonPositive(t *testing.T) {
	p := NewInstrumentedEmbedder(&mockEmbedder{}, "p", "m", zap.NewNop()).WithMaxBatchSize(0)
	if p.maxBatchSize != DefaultMaxAPIBatchSize {
		t.Errorf("expected default batch size, got %d", p.maxBatchSize)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil for empty input")
	}
	if inner.batchCalls != 0 {
		t.Errorf("expected no inner calls, got %d", inner.batchCalls)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: fmt.Errorf("api down")}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	inner := &mockEmbedder{batchResult: domain.BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{embedding: []float32{0.5, 0.6}}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 single calls, got %d", inner.calls)
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	inner := &mockEmbedder{healthErr: errors.New("unreachable")}
	p := NewInstrumentedEmbedder(inner, "test", "model", zap.NewNop())
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error to propagate")
	}

	plain := NewInstrumentedEmbedder(&plainMockEmbedder{}, "test", "model", zap.NewNop())
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Fatalf("embedder without health check must report healthy, got %v", err)
	}
}

// plainMockEmbedder implements only Embed (no BatchEmbed).
type plainMockEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.embedding}, nil
}
