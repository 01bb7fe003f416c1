package index

import (
	"testing"
	"time"

	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

func testIndex(t *testing.T) domidx.Index {
	t.Helper()
	idx, err := domidx.New(
		[]string{"BCP", "Banco Credito", "Interbank"},
		[]string{"BANCO DE CREDITO DEL PERU", "BANCO DE CREDITO DEL PERU", "INTERBANK"},
		[][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 0, 1}},
		domidx.Meta{Model: "local-ngram", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	)
	if err != nil {
		t.Fatalf("build test index: %v", err)
	}
	return idx
}

func assertSameIndex(t *testing.T, want, got domidx.Index) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("expected %d entries, got %d", want.Len(), got.Len())
	}
	for i := range want.Len() {
		if got.Variant(i) != want.Variant(i) || got.Canonical(i) != want.Canonical(i) {
			t.Errorf("entry %d: got (%q, %q), want (%q, %q)",
				i, got.Variant(i), got.Canonical(i), want.Variant(i), want.Canonical(i))
		}
		gv, wv := got.Vector(i), want.Vector(i)
		if len(gv) != len(wv) {
			t.Fatalf("entry %d: dimension %d, want %d", i, len(gv), len(wv))
		}
		for j := range wv {
			if gv[j] != wv[j] {
				t.Errorf("entry %d component %d: %v, want %v", i, j, gv[j], wv[j])
			}
		}
	}
	if got.Meta().Model != want.Meta().Model {
		t.Errorf("model %q, want %q", got.Meta().Model, want.Meta().Model)
	}
	if got.Dimensions() != want.Dimensions() {
		t.Errorf("dimensions %d, want %d", got.Dimensions(), want.Dimensions())
	}
	if !got.Meta().CreatedAt.Equal(want.Meta().CreatedAt) {
		t.Errorf("created_at %v, want %v", got.Meta().CreatedAt, want.Meta().CreatedAt)
	}
}
