package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// WriteCSV writes t as comma-separated UTF-8 with a header row.
func WriteCSV(w io.Writer, t table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r := range t.Len() {
		row := t.Row(r)
		rec := make([]string, len(row))
		for i, c := range row {
			rec[i] = c.Text()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
