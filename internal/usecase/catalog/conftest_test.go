package catalog

import (
	"context"
	"sync"
	"testing"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// fakeEmbedder returns a 2-dim vector per text derived from its length.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelID() string { return "fake" }

// memRepo keeps one index in memory.
type memRepo struct {
	mu      sync.Mutex
	path    string
	idx     *domidx.Index
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func (m *memRepo) Save(_ context.Context, idx domidx.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.idx = &idx
	return nil
}

func (m *memRepo) Load(_ context.Context) (domidx.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return domidx.Index{}, m.loadErr
	}
	if m.idx == nil {
		return domidx.Index{}, nil
	}
	return *m.idx, nil
}

func (m *memRepo) Path() string { return m.path }

func mustTable(t *testing.T, columns []string, rows ...[]table.Cell) table.Table {
	t.Helper()
	tb, err := table.New(columns, rows)
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func row(values ...string) []table.Cell {
	cells := make([]table.Cell, len(values))
	for i, v := range values {
		if v == "<nil>" {
			cells[i] = table.Missing()
			continue
		}
		cells[i] = table.Value(v)
	}
	return cells
}

func mustIndex(t *testing.T, variants, canonicals []string) domidx.Index {
	t.Helper()
	vecs := make([][]float32, len(variants))
	for i := range vecs {
		vecs[i] = []float32{1, float32(i)}
	}
	idx, err := domidx.New(variants, canonicals, vecs, domidx.Meta{Model: "fake"})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}
