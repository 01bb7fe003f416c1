package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// sheetName is the single sheet written to exported workbooks.
const sheetName = "Sheet1"

func checkExists(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, domain.ErrMissingInput)
	}
	return nil
}

// readXLSX reads the first sheet; its first row is the header.
func readXLSX(path string) (table.Table, error) {
	if err := checkExists(path); err != nil {
		return table.Table{}, err
	}

	f, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return table.Table{}, fmt.Errorf("open workbook: %v: %w", err, domain.ErrUnreadableInput)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.Table{}, domain.ErrEmptyInput
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %q: %v: %w", sheets[0], err, domain.ErrUnreadableInput)
	}
	return fromRecords(records)
}

// readXLS reads the first sheet of a legacy BIFF workbook.
func readXLS(path string) (t table.Table, err error) {
	if err := checkExists(path); err != nil {
		return table.Table{}, err
	}

	// the BIFF parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			t, err = table.Table{}, fmt.Errorf("parse workbook: %v: %w", r, domain.ErrUnreadableInput)
		}
	}()

	wb, err := xls.Open(filepath.Clean(path), "utf-8")
	if err != nil {
		return table.Table{}, fmt.Errorf("open workbook: %v: %w", err, domain.ErrUnreadableInput)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return table.Table{}, domain.ErrEmptyInput
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, row.LastCol())
		for j := range rec {
			rec[j] = row.Col(j)
		}
		records = append(records, rec)
	}
	return fromRecords(records)
}

// fromRecords turns raw spreadsheet rows into a table, skipping blank rows.
func fromRecords(records [][]string) (table.Table, error) {
	var header []string
	var rows [][]table.Cell
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		rows = append(rows, toCells(rec))
	}
	if header == nil {
		return table.Table{}, domain.ErrEmptyInput
	}
	return build(header, rows)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

// WriteXLSX writes t to path as a single-sheet workbook. Missing cells are left blank.
func WriteXLSX(path string, t table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, t.Width())
	for i, c := range t.Columns() {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r := range t.Len() {
		values := make([]any, t.Width())
		for i, c := range t.Row(r) {
			if !c.IsMissing() {
				values[i] = c.Text()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", r, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
