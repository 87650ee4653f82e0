package importer

// decode.go turns an uploaded file into a Table.
//
// CSV files go through BOM stripping and UTF-8 sanitization before
// encoding/csv. XLSX files are read with excelize, first sheet only, using raw
// cell values so numbers and dates arrive exactly as stored. In both cases
// cells stay strings; nothing is coerced at parse time.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize bounds uploads when no limit is configured.
const DefaultMaxFileSize int64 = 20 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports a file that could not be turned into rows.
type ParseError struct {
	FileName string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.FileName, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.FileName, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one data row keyed by source column header.
type Row struct {
	Line   int               `json:"line"` // 1-based position in the source file
	Values map[string]string `json:"values"`
}

// Table is a decoded file: headers in source order plus data rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Decode reads a CSV or XLSX file, chosen by extension, into a Table.
// It fails with *ParseError when the file is too large, unreadable, of an
// unsupported type, or has no data rows.
func Decode(fileName string, r io.Reader, maxSize int64) (Table, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return Table{}, &ParseError{FileName: fileName, Reason: "read failed", Err: err}
	}
	if int64(len(data)) > maxSize {
		return Table{}, &ParseError{FileName: fileName, Reason: "file too large (max " + formatSize(maxSize) + ")"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, &ParseError{FileName: fileName, Reason: "empty file"}
	}

	var records []record
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".csv", ".txt":
		records, err = parseCSV(data)
		if err != nil {
			return Table{}, &ParseError{FileName: fileName, Reason: "invalid csv", Err: err}
		}
	case ".xlsx", ".xlsm":
		records, err = parseXLSX(data)
		if err != nil {
			return Table{}, &ParseError{FileName: fileName, Reason: "invalid xlsx", Err: err}
		}
	default:
		return Table{}, &ParseError{FileName: fileName, Reason: fmt.Sprintf("unsupported file type %q (use .csv or .xlsx)", ext)}
	}

	table := buildTable(records)
	if len(table.Rows) == 0 {
		return Table{}, &ParseError{FileName: fileName, Reason: "file has no data rows"}
	}
	return table, nil
}

// record is a raw source row with its 1-based line number.
type record struct {
	line  int
	cells []string
}

func parseCSV(data []byte) ([]record, error) {
	data = sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []record
	for {
		cells, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
}

func parseXLSX(data []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	records := make([]record, len(rows))
	for i, cells := range rows {
		records[i] = record{line: i + 1, cells: cells}
	}
	return records, nil
}

// buildTable takes the first non-empty record as the header and every later
// non-empty record as a data row. Blank or repeated headers get unique names
// so no cell is lost to a key collision.
func buildTable(records []record) Table {
	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRow(rec.cells) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return Table{}
	}

	columns := uniqueHeaders(records[headerIdx].cells)
	table := Table{Columns: columns}

	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRow(rec.cells) {
			continue
		}
		values := make(map[string]string, len(columns))
		for c, col := range columns {
			if c < len(rec.cells) {
				values[col] = rec.cells[c]
			} else {
				values[col] = ""
			}
		}
		table.Rows = append(table.Rows, Row{Line: rec.line, Values: values})
	}
	return table
}

// uniqueHeaders names blank headers by position and suffixes repeats with
// " (n)", skipping any suffix already taken by another header.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	last := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		if used[name] {
			base := name
			n := max(last[base], 1)
			for used[name] {
				n++
				name = fmt.Sprintf("%s (%d)", base, n)
			}
			last[base] = n
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + "MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid UTF-8 bytes with U+FFFD so exports from
// legacy spreadsheet tools still decode.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
