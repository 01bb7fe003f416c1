package report

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/domain/match"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

func dirtyTable(t *testing.T) table.Table {
	t.Helper()
	tb, err := table.New([]string{"id", "Merchant"}, [][]table.Cell{
		{table.Value("1"), table.Value("BCP")},
		{table.Value("2"), table.Missing()},
		{table.Value("3"), table.Value("Totally Unrelated Text")},
		{table.Value("4"), table.Value("BCP")},
		{table.Value("5"), table.Value("Not In Map")},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func texts(cells []table.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c.IsMissing() {
			out[i] = "<nil>"
			continue
		}
		out[i] = c.Text()
	}
	return out
}

func TestApply(t *testing.T) {
	svc := New("", nil)
	in := dirtyTable(t)
	resolutions := map[string]string{
		"BCP":                    "BANCO DE CREDITO DEL PERU",
		"Totally Unrelated Text": "Totally Unrelated Text",
	}

	out, err := svc.Apply(in, "Merchant", resolutions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out.Columns(), []string{"id", "Merchant", "Merchant_NORMALIZED"}) {
		t.Errorf("unexpected columns %v", out.Columns())
	}

	cells, err := out.Column("Merchant_NORMALIZED")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"BANCO DE CREDITO DEL PERU", "<nil>", "Totally Unrelated Text", "BANCO DE CREDITO DEL PERU", "Not In Map"}
	if got := texts(cells); !reflect.DeepEqual(got, want) {
		t.Errorf("normalized column %v, want %v", got, want)
	}

	if in.Width() != 2 {
		t.Error("input table must not be mutated")
	}
}

func TestApply_CustomSuffix(t *testing.T) {
	out, err := New("_STD", nil).Apply(dirtyTable(t), "Merchant", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.HasColumn("Merchant_STD") {
		t.Errorf("expected Merchant_STD column, got %v", out.Columns())
	}
}

func TestApply_UnknownColumn(t *testing.T) {
	_, err := New("", nil).Apply(dirtyTable(t), "Vendor", nil)
	if !errors.Is(err, domain.ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestChangeLog(t *testing.T) {
	log := ChangeLog([]match.Change{
		{Original: "BCP", MatchedVariant: "BCP", Resolved: "BANCO DE CREDITO DEL PERU", Confidence: 0.99999},
		{Original: "Banco Credito", MatchedVariant: "Banco de Credito", Resolved: "BANCO DE CREDITO DEL PERU", Confidence: 0.8149},
	})

	if !reflect.DeepEqual(log.Columns(), []string{"Original", "Matched Variant", "Resolved", "Confidence"}) {
		t.Errorf("unexpected columns %v", log.Columns())
	}
	conf, _ := log.Column(ColConfidence)
	if got := texts(conf); !reflect.DeepEqual(got, []string{"1.00", "0.81"}) {
		t.Errorf("confidence %v", got)
	}
}

func TestChangeLog_Empty(t *testing.T) {
	log := ChangeLog(nil)
	if log.Len() != 0 || log.Width() != 4 {
		t.Errorf("expected empty 4-column log, got %d rows x %d cols", log.Len(), log.Width())
	}
}

func TestExport(t *testing.T) {
	var gotPath string
	var gotTable table.Table
	svc := New("", func(path string, tb table.Table) error {
		gotPath, gotTable = path, tb
		return nil
	})

	dir := t.TempDir()
	path, err := svc.Export(context.Background(), dirtyTable(t), dir, "/uploads/dirty.csv", "run1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, "dirty_normalized_run1.xlsx")
	if path != want || gotPath != want {
		t.Errorf("path %q (written %q), want %q", path, gotPath, want)
	}
	if gotTable.Len() != 5 {
		t.Errorf("unexpected table written: %d rows", gotTable.Len())
	}
}

func TestExport_WriteError(t *testing.T) {
	svc := New("", func(string, table.Table) error { return errors.New("disk full") })
	if _, err := svc.Export(context.Background(), dirtyTable(t), t.TempDir(), "x.csv", "r"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct{ base, want string }{
		{"dirty.csv", "dirty_normalized_abc.xlsx"},
		{"/a/b/Report Q1.xlsx", "Report Q1_normalized_abc.xlsx"},
		{"", "output_normalized_abc.xlsx"},
	}
	for _, tc := range tests {
		if got := OutputName(tc.base, "abc"); got != tc.want {
			t.Errorf("OutputName(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}
