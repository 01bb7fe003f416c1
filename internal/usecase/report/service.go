// Package report augments datasets with resolved values and exports them.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/canonic/internal/domain/match"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// Change log column names.
const (
	ColOriginal       = "Original"
	ColMatchedVariant = "Matched Variant"
	ColResolved       = "Resolved"
	ColConfidence     = "Confidence"
)

// DefaultSuffix is appended to the cleaned column name.
const DefaultSuffix = "_NORMALIZED"

// Writer persists a table at path.
type Writer func(path string, t table.Table) error

// Service builds augmented tables and change logs.
type Service struct {
	suffix string
	write  Writer
}

// New creates a report service. An empty suffix means DefaultSuffix.
func New(suffix string, write Writer) *Service {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Service{suffix: suffix, write: write}
}

// OutputColumn returns the name of the column Apply adds for column.
func (s *Service) OutputColumn(column string) string {
	return column + s.suffix
}

// Apply returns a copy of t with a resolved column appended. Each cell holds
// resolutions[value] when present and the original value otherwise.
// Missing cells stay missing.
func (s *Service) Apply(t table.Table, column string, resolutions map[string]string) (table.Table, error) {
	cells, err := t.Column(column)
	if err != nil {
		return table.Table{}, fmt.Errorf("apply resolutions: %w", err)
	}

	out := make([]table.Cell, len(cells))
	for i, c := range cells {
		if c.IsMissing() {
			out[i] = table.Missing()
			continue
		}
		v := c.Text()
		if r, found := resolutions[v]; found {
			v = r
		}
		out[i] = table.Value(v)
	}

	augmented, err := t.WithColumn(s.OutputColumn(column), out)
	if err != nil {
		return table.Table{}, fmt.Errorf("apply resolutions: %w", err)
	}
	return augmented, nil
}

// ChangeLog renders changes as a four-column table in the given order.
func ChangeLog(changes []match.Change) table.Table {
	rows := make([][]table.Cell, len(changes))
	for i, c := range changes {
		rows[i] = []table.Cell{
			table.Value(c.Original),
			table.Value(c.MatchedVariant),
			table.Value(c.Resolved),
			table.Value(c.ConfidenceText()),
		}
	}
	// column count is fixed and every row matches it
	t, _ := table.New([]string{ColOriginal, ColMatchedVariant, ColResolved, ColConfidence}, rows)
	return t
}

// Export writes augmented to a new file in dir named after baseName and runID
// and returns its path.
func (s *Service) Export(ctx context.Context, augmented table.Table, dir, baseName, runID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	path := filepath.Join(dir, OutputName(baseName, runID))
	if err := s.write(path, augmented); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

// OutputName returns "<base>_normalized_<runID>.xlsx" for an input file name.
func OutputName(baseName, runID string) string {
	base := strings.TrimSuffix(filepath.Base(baseName), filepath.Ext(baseName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "output"
	}
	return fmt.Sprintf("%s_normalized_%s.xlsx", base, runID)
}
