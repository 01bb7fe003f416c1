// Package dataset reads tabular inputs (CSV, TSV, XLSX, XLS, TXT) and writes spreadsheet outputs.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/domain/table"
)

// TextColumn is the synthetic column name for plain text inputs.
const TextColumn = "Search_Variant"

const bom = "\ufeff"

// ReadOptions controls which formats Read accepts.
type ReadOptions struct {
	AllowText bool // accept .txt (one value per line)
}

// Read loads the file at path into a table, choosing the parser by extension.
// Every failure wraps domain.ErrInvalidInput.
func Read(path string, opts ReadOptions) (table.Table, error) {
	if strings.TrimSpace(path) == "" {
		return table.Table{}, domain.ErrMissingInput
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return readFile(path, readCSV)
	case ".tsv":
		return readFile(path, readTSV)
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	case ".txt":
		if opts.AllowText {
			return readFile(path, readText)
		}
	}
	return table.Table{}, fmt.Errorf("%q: %w", ext, domain.ErrUnsupportedFormat)
}

func readFile(path string, parse func([]byte) (table.Table, error)) (table.Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return table.Table{}, fmt.Errorf("%s: %w", path, domain.ErrMissingInput)
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("read %s: %v: %w", path, err, domain.ErrUnreadableInput)
	}
	return parse(data)
}

// readCSV tries comma-separated UTF-8 first, then semicolon-separated Latin-1 once.
func readCSV(data []byte) (table.Table, error) {
	t, err := parseDelimited(data, ',')
	if err == nil || errors.Is(err, domain.ErrEmptyInput) {
		return t, err
	}

	decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if decErr != nil {
		return table.Table{}, fmt.Errorf("decode latin-1: %v: %w", decErr, domain.ErrUnreadableInput)
	}
	t, fallbackErr := parseDelimited(decoded, ';')
	if fallbackErr != nil {
		return table.Table{}, fmt.Errorf("comma: %v; semicolon: %w", err, fallbackErr)
	}
	return t, nil
}

func readTSV(data []byte) (table.Table, error) {
	return parseDelimited(data, '\t')
}

func parseDelimited(data []byte, delim rune) (table.Table, error) {
	if !utf8.Valid(data) {
		return table.Table{}, fmt.Errorf("invalid UTF-8: %w", domain.ErrUnreadableInput)
	}
	data = bytes.TrimPrefix(data, []byte(bom))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return table.Table{}, domain.ErrEmptyInput
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("header: %v: %w", err, domain.ErrUnreadableInput)
	}

	var rows [][]table.Cell
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("%v: %w", err, domain.ErrUnreadableInput)
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return table.Table{}, fmt.Errorf("line %d: expected %d fields, saw %d: %w",
				line, len(header), len(rec), domain.ErrUnreadableInput)
		}
		rows = append(rows, toCells(rec))
	}
	return build(header, rows)
}

func readText(data []byte) (table.Table, error) {
	text := strings.ToValidUTF8(string(data), "")
	text = strings.TrimPrefix(text, bom)

	var rows [][]table.Cell
	for line := range strings.Lines(text) {
		if v := strings.TrimSpace(line); v != "" {
			rows = append(rows, []table.Cell{table.Value(v)})
		}
	}
	return build([]string{TextColumn}, rows)
}

func toCells(rec []string) []table.Cell {
	cells := make([]table.Cell, len(rec))
	for i, v := range rec {
		if v == "" {
			cells[i] = table.Missing()
			continue
		}
		cells[i] = table.Value(v)
	}
	return cells
}

// build widens the header to the longest row, normalizes names and creates the table.
func build(header []string, rows [][]table.Cell) (table.Table, error) {
	width := len(header)
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return table.Table{}, domain.ErrEmptyInput
	}

	names := make([]string, width)
	copy(names, header)

	t, err := table.New(normalizeHeader(names), rows)
	if err != nil {
		return table.Table{}, fmt.Errorf("%v: %w", err, domain.ErrUnreadableInput)
	}
	return t, nil
}

// normalizeHeader trims names, names blank columns "Unnamed: N" and
// disambiguates duplicates with ".1", ".2" suffixes.
func normalizeHeader(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		n = strings.TrimSpace(strings.TrimPrefix(n, bom))
		if n == "" {
			n = "Unnamed: " + strconv.Itoa(i)
		}
		name := n
		for k := 1; used[name]; k++ {
			name = n + "." + strconv.Itoa(k)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
