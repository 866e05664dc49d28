package input

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

func drain(t *testing.T, r annotate.RecordReader) []annotate.Record {
	t.Helper()
	var out []annotate.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "NA", "N/A", "NaN", "nan", "NULL", "null", "None", "<NA>", "#N/A", "-1.#IND"} {
		assert.Empty(t, Clean(tok), tok)
	}
	assert.Equal(t, "10.1/abc", Clean("10.1/abc"))
	assert.Equal(t, "none", Clean("none"))
	assert.Equal(t, " NA", Clean(" NA"))
}

func TestCSVReader_ReadsRecords(t *testing.T) {
	t.Parallel()

	data := "title,doi,abstract\n" +
		"A,10.1/abc,fever\n" +
		"B,NaN,cough\n" +
		"C,10.2/x,\n" +
		"D,,\"multi\nline, quoted\"\n" +
		"E,10.3/short\n"
	r, err := NewCSVReader(strings.NewReader(data), ',')
	require.NoError(t, err)

	got := drain(t, r)
	require.Equal(t, []annotate.Record{
		{DOI: "10.1/abc", Abstract: "fever"},
		{DOI: "", Abstract: "cough"},
		{DOI: "10.2/x", Abstract: ""},
		{DOI: "", Abstract: "multi\nline, quoted"},
		{DOI: "10.3/short", Abstract: ""},
	}, got)
	require.NoError(t, r.Close())
}

func TestCSVReader_HeaderMatchingIgnoresCaseAndBOM(t *testing.T) {
	t.Parallel()

	r, err := NewCSVReader(strings.NewReader("\ufeffDOI, Abstract \n10.1/a,text\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, []annotate.Record{{DOI: "10.1/a", Abstract: "text"}}, drain(t, r))
}

func TestCSVReader_HeaderErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCSVReader(strings.NewReader(""), ',')
	require.ErrorContains(t, err, "empty input")

	_, err = NewCSVReader(strings.NewReader("doi,title\n"), ',')
	require.ErrorIs(t, err, ErrMissingColumn)
	require.ErrorContains(t, err, ColumnAbstract)

	_, err = NewCSVReader(strings.NewReader("abstract\n"), ',')
	require.ErrorIs(t, err, ErrMissingColumn)
	require.ErrorContains(t, err, ColumnDOI)
}

func TestCSVReader_MalformedRow(t *testing.T) {
	t.Parallel()

	r, err := NewCSVReader(strings.NewReader("doi,abstract\n10.1/a,ok\n10.1/b,\"unterminated\n"), ',')
	require.NoError(t, err)
	r.r.LazyQuotes = false

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestOpen_ByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("doi,abstract\n10.1/a,x\n"), 0o600))
	tsvPath := filepath.Join(dir, "in.tsv")
	require.NoError(t, os.WriteFile(tsvPath, []byte("doi\tabstract\n10.1/b\ty, z\n"), 0o600))

	src, err := Open(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []annotate.Record{{DOI: "10.1/a", Abstract: "x"}}, drain(t, src))
	require.NoError(t, src.Close())

	src, err = Open(tsvPath)
	require.NoError(t, err)
	assert.Equal(t, []annotate.Record{{DOI: "10.1/b", Abstract: "y, z"}}, drain(t, src))
	require.NoError(t, src.Close())

	_, err = Open(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
}

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestXLSXReader_ReadsRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.xlsx")
	writeWorkbook(t, path, [][]any{
		{"doi", "title", "abstract"},
		{"10.1/abc", "A", "fever"},
		{"NA", "B", "cough"},
		{"10.2/x", "C"},
	})

	src, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	assert.Equal(t, []annotate.Record{
		{DOI: "10.1/abc", Abstract: "fever"},
		{DOI: "", Abstract: "cough"},
		{DOI: "10.2/x", Abstract: ""},
	}, drain(t, src))
}

func TestXLSXReader_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	noAbstract := filepath.Join(dir, "bad.xlsx")
	writeWorkbook(t, noAbstract, [][]any{{"doi", "title"}, {"10.1/a", "x"}})

	_, err := OpenXLSX(noAbstract, "")
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = OpenXLSX(noAbstract, "NoSuchSheet")
	require.Error(t, err)

	_, err = OpenXLSX(filepath.Join(dir, "missing.xlsx"), "")
	require.Error(t, err)
}
