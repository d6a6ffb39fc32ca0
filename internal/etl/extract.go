// Package etl imports occupancy records from CSV and XLSX files into a
// storage backend.
package etl

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
)

// RawRow is one data row keyed by normalised column name. Line is the
// 1-based row number in the source, header included.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Source names an input file; Sheet selects an XLSX worksheet and defaults
// to the first one.
type Source struct {
	Path  string
	Sheet string
}

// Extract reads all rows of the source, choosing the reader by extension
func Extract(src Source) ([]RawRow, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeValidationInvalid, "cannot open input file %s", src.Path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".csv":
		return ExtractCSV(f)
	case ".xlsx":
		return ExtractXLSX(f, src.Sheet)
	default:
		return nil, errors.Newf(errors.ErrCodeValidationInvalid,
			"unsupported input format '%s', expected .csv or .xlsx", filepath.Ext(src.Path))
	}
}

// ExtractCSV reads a comma separated file with a header row
func ExtractCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.New(errors.ErrCodeValidationFormat, "input file is empty")
		}
		return nil, errors.Wrap(err, errors.ErrCodeValidationFormat, "cannot read csv header")
	}

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeValidationFormat, "malformed csv: %v", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}

	return buildRows(header, records, lines), nil
}

// ExtractXLSX reads a worksheet whose first row is the header. Cells are
// read raw so dates arrive as Excel serial numbers.
func ExtractXLSX(r io.Reader, sheet string) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidationFormat, "cannot read xlsx workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New(errors.ErrCodeValidationFormat, "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeValidationInvalid, "cannot read sheet '%s'", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.Newf(errors.ErrCodeValidationFormat, "sheet '%s' is empty", sheet)
	}

	lines := make([]int, len(rows)-1)
	for i := range lines {
		lines[i] = i + 2
	}
	return buildRows(rows[0], rows[1:], lines), nil
}

// buildRows keys each record by the normalised header; lines holds each
// record's source line. Blank rows are dropped and short rows leave trailing
// columns unset.
func buildRows(header []string, records [][]string, lines []int) []RawRow {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = NormalizeHeader(h)
	}

	rows := make([]RawRow, 0, len(records))
	for i, record := range records {
		fields := make(map[string]string, len(columns))
		for j, value := range record {
			if j >= len(columns) || columns[j] == "" {
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				fields[columns[j]] = value
			}
		}
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, RawRow{Line: lines[i], Fields: fields})
	}
	return rows
}

// NormalizeHeader converts a column title to snake_case:
// "Hospital ID", "hospitalId" and "HOSPITAL-ID" all become "hospital_id".
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))

	var b strings.Builder
	runes := []rune(h)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}
