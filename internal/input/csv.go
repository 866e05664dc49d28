package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// CSVReader reads records from delimited text.
type CSVReader struct {
	r      *csv.Reader
	closer io.Closer
	cols   columns
	line   int
}

var _ Source = (*CSVReader)(nil)

// OpenCSV opens path and reads its header.
func OpenCSV(path string, comma rune) (*CSVReader, error) {
	// #nosec G304 -- the input path is supplied by the operator.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	r, err := NewCSVReader(f, comma)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewCSVReader wraps r and reads its header row.
func NewCSVReader(r io.Reader, comma rune) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := locate(header)
	if err != nil {
		return nil, err
	}
	return &CSVReader{r: cr, cols: cols, line: 1}, nil
}

// Next returns the next record or io.EOF.
func (c *CSVReader) Next() (annotate.Record, error) {
	row, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return annotate.Record{}, io.EOF
	}
	c.line++
	if err != nil {
		return annotate.Record{}, fmt.Errorf("read csv row %d: %w", c.line, err)
	}
	return c.cols.record(row), nil
}

// Close releases the underlying file, if any.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
