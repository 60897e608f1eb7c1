// Package ingest turns uploaded rosters (CSV, XLSX, pasted text) into a
// header row plus data rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatText = "text"
)

// PlayersSheet is preferred over the first sheet when present.
const PlayersSheet = "players"

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeXLS  = "application/vnd.ms-excel"
)

var (
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	zipMagic = []byte("PK\x03\x04")
)

// Table is a parsed upload. Rows exclude the header and leading blank lines.
type Table struct {
	Format  string
	Sheet   string
	Headers []string
	Rows    [][]string
}

// Parse reads data as CSV or XLSX, chosen by filename extension, then
// content type, then content sniffing.
func Parse(filename, contentType string, data []byte) (*Table, error) {
	switch detect(filename, contentType, data) {
	case FormatXLSX:
		return parseXLSX(data)
	case "xls":
		return nil, structural("xls", "legacy .xls workbooks are not supported; save as .xlsx or .csv", ErrUnsupported)
	default:
		return parseDelimited(FormatCSV, data)
	}
}

// ParseText reads pasted text. Tab separated input is what spreadsheets
// put on the clipboard; comma and semicolon separated text also works.
func ParseText(text string) (*Table, error) {
	return parseDelimited(FormatText, []byte(text))
}

// Extension returns the archive file extension for a format.
func Extension(format string) string {
	switch format {
	case FormatXLSX:
		return ".xlsx"
	case FormatText:
		return ".txt"
	default:
		return ".csv"
	}
}

func detect(filename, contentType string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return "xls"
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case contentTypeXLSX:
		return FormatXLSX
	case contentTypeXLS:
		return "xls"
	case "text/csv", "text/plain", "text/tab-separated-values":
		return FormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// sniffDelimiter picks the most frequent of tab, semicolon and comma in
// the first line. Ties go to comma.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func parseDelimited(format string, data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, structural(format, "file is empty", nil)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, structural(format, "could not parse file", err)
		}
		records = append(records, rec)
	}
	return table(format, "", records)
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, structural(FormatXLSX, "could not open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, structural(FormatXLSX, "workbook has no sheets", nil)
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), PlayersSheet) {
			sheet = s
			break
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, structural(FormatXLSX, "could not read sheet "+sheet, err)
	}
	return table(FormatXLSX, sheet, rows)
}

// table splits records into header and data rows, dropping leading blank
// records and trailing blank cells of the header.
func table(format, sheet string, records [][]string) (*Table, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, structural(format, "file is empty", nil)
	}
	headers := records[start]
	for len(headers) > 0 && strings.TrimSpace(headers[len(headers)-1]) == "" {
		headers = headers[:len(headers)-1]
	}
	return &Table{
		Format:  format,
		Sheet:   sheet,
		Headers: headers,
		Rows:    records[start+1:],
	}, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
