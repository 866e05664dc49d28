// Package input streams annotation records out of tabular files.
//
// Files must carry a header row with a doi and an abstract column. Cells
// holding one of the usual missing-value markers ("NA", "NaN", "NULL", ...)
// are read as empty.
package input

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// Column names looked up in the header row, case-insensitively.
const (
	ColumnDOI      = "doi"
	ColumnAbstract = "abstract"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Source is a RecordReader backed by an open file.
type Source interface {
	annotate.RecordReader
	io.Closer
}

var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Clean maps missing-value markers to the empty string.
func Clean(v string) string {
	if _, ok := naTokens[v]; ok {
		return ""
	}
	return v
}

// Open picks a reader from the file extension: .xlsx and .xlsm are read as
// workbooks, .tsv as tab separated, everything else as CSV.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return OpenXLSX(path, "")
	case ".tsv":
		return OpenCSV(path, '\t')
	default:
		return OpenCSV(path, ',')
	}
}

type columns struct {
	doi      int
	abstract int
}

func locate(header []string) (columns, error) {
	cols := columns{doi: -1, abstract: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case name == ColumnDOI && cols.doi == -1:
			cols.doi = i
		case name == ColumnAbstract && cols.abstract == -1:
			cols.abstract = i
		}
	}
	if cols.doi == -1 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnDOI)
	}
	if cols.abstract == -1 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnAbstract)
	}
	return cols, nil
}

func (c columns) record(row []string) annotate.Record {
	return annotate.Record{
		DOI:      Clean(cell(row, c.doi)),
		Abstract: Clean(cell(row, c.abstract)),
	}
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
