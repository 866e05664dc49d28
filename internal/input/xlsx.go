package input

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// XLSXReader streams records from one worksheet.
type XLSXReader struct {
	file *excelize.File
	rows *excelize.Rows
	cols columns
	row  int
}

var _ Source = (*XLSXReader)(nil)

// OpenXLSX opens a workbook and reads the header of sheet, or of the first
// sheet when sheet is empty.
func OpenXLSX(path, sheet string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	x, err := newXLSXReader(f, sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return x, nil
}

func newXLSXReader(f *excelize.File, sheet string) (*XLSXReader, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if !rows.Next() {
		_ = rows.Close()
		if err := rows.Error(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("read header: sheet %q is empty", sheet)
	}
	header, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := locate(header)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &XLSXReader{file: f, rows: rows, cols: cols, row: 1}, nil
}

// Next returns the next record or io.EOF.
func (x *XLSXReader) Next() (annotate.Record, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return annotate.Record{}, fmt.Errorf("read row %d: %w", x.row+1, err)
		}
		return annotate.Record{}, io.EOF
	}
	x.row++
	row, err := x.rows.Columns()
	if err != nil {
		return annotate.Record{}, fmt.Errorf("read row %d: %w", x.row, err)
	}
	return x.cols.record(row), nil
}

// Close releases the row iterator and the workbook.
func (x *XLSXReader) Close() error {
	return errors.Join(x.rows.Close(), x.file.Close())
}
