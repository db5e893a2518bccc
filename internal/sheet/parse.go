// Package sheet reads and writes the spreadsheet formats the import
// pipeline speaks: CSV and XLSX uploads in, template workbooks and error
// CSVs out.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/lindale-isd/districtops/internal/importer"
)

// MaxFileSize is the maximum accepted upload size (50MB).
var MaxFileSize int64 = 50 * 1024 * 1024

// Parse reads an uploaded file into a header row plus data rows. The
// format is chosen by file extension; anything that is not .xlsx is
// treated as CSV. Leading empty rows before the header are dropped, as
// are trailing fully empty rows.
func Parse(fileName string, data []byte) (headers []string, rows [][]string, err error) {
	if int64(len(data)) > MaxFileSize {
		return nil, nil, &importer.FileParseError{
			Reason: fmt.Sprintf("file exceeds %dMB limit", MaxFileSize/(1024*1024)),
		}
	}

	var records [][]string
	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		records, err = parseXLSX(data)
	} else {
		records, err = parseCSV(data)
	}
	if err != nil {
		return nil, nil, &importer.FileParseError{Reason: err.Error()}
	}

	records = trimEmptyEdges(records)
	if len(records) == 0 {
		return nil, nil, &importer.FileParseError{Reason: "empty file"}
	}

	headers = records[0]
	rows = records[1:]
	return headers, rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = sanitizeUTF8(data)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// parseXLSX reads the first sheet of a workbook.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character so the CSV reader never chokes on a Latin-1
// export.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// trimEmptyEdges drops fully empty rows from the start and end of the
// record set. Interior empty rows are kept so data line numbers stay
// aligned with the source file.
func trimEmptyEdges(records [][]string) [][]string {
	start := 0
	for start < len(records) && isEmptyRow(records[start]) {
		start++
	}
	end := len(records)
	for end > start && isEmptyRow(records[end-1]) {
		end--
	}
	return records[start:end]
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
