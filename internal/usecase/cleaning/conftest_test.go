package cleaning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/table"
	"github.com/kailas-cloud/canonic/internal/repository/dataset"
	"github.com/kailas-cloud/canonic/internal/usecase/matching"
	"github.com/kailas-cloud/canonic/internal/usecase/report"
)

type stubIndex struct {
	idx      domidx.Index
	err      error
	loaded   []string
	getCalls int
}

func (s *stubIndex) Get(context.Context) (domidx.Index, error) {
	s.getCalls++
	return s.idx, s.err
}

func (s *stubIndex) Load(_ context.Context, path string) (domidx.Index, error) {
	s.loaded = append(s.loaded, path)
	return s.idx, s.err
}

// vocabEmbedder maps known texts to fixed vectors; unknown texts point elsewhere.
type vocabEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (e *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 1, 0}
	}
	return out, nil
}

func (e *vocabEmbedder) ModelID() string { return "test" }

func bankFixture(t *testing.T) (domidx.Index, *vocabEmbedder) {
	t.Helper()
	idx, err := domidx.New(
		[]string{"BCP", "Banco Credito", "Interbank"},
		[]string{"BANCO DE CREDITO DEL PERU", "BANCO DE CREDITO DEL PERU", "INTERBANK"},
		[][]float32{{1, 0, 0}, {0.95, 0.05, 0}, {0, 0, 1}},
		domidx.Meta{Model: "test"},
	)
	if err != nil {
		t.Fatal(err)
	}
	emb := &vocabEmbedder{vectors: map[string][]float32{
		"BCP":           {1, 0, 0},
		"Banco Credito": {0.95, 0.05, 0},
		"INTERBANK":     {0, 0, 1},
	}}
	return idx, emb
}

func defaultOptions(dir string) Options {
	return Options{
		Threshold:    0.75,
		MinThreshold: 0.5,
		MaxThreshold: 0.99,
		OutputDir:    dir,
	}
}

// newPipeline wires real matching, report and dataset components around a stub index.
func newPipeline(t *testing.T, src *stubIndex, emb *vocabEmbedder, opts Options) *Service {
	t.Helper()
	read := func(path string) (table.Table, error) { return dataset.Read(path, dataset.ReadOptions{}) }
	svc := New(src, matching.New(emb, zap.NewNop()), report.New("", dataset.WriteXLSX), read, opts, zap.NewNop())
	svc.newID = func() string { return "run-1" }
	return svc
}

func writeData(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
