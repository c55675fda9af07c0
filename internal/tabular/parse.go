package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"nexusai/internal/apperr"
)

// MaxUploadBytes bounds the size of an accepted upload.
const MaxUploadBytes = 20 << 20

// ParseUpload reads a .csv, .xls or .xlsx upload. Spreadsheets use their
// first sheet. The first row is the header.
func ParseUpload(name string, data []byte) (*Dataset, error) {
	if len(data) == 0 {
		return nil, apperr.Validation("The uploaded file is empty")
	}
	if len(data) > MaxUploadBytes {
		return nil, apperr.Validationf("The uploaded file is larger than %d MB", MaxUploadBytes>>20)
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		records, err = readCSV(data)
	case ".xls", ".xlsx":
		records, err = readSpreadsheet(data)
	default:
		return nil, apperr.Validationf("Unsupported file type %q: upload a CSV or Excel file", filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(name, records)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, apperr.Validation("Error processing file: CSV must be UTF-8 encoded")
	}
	r := csv.NewReader(bytes.NewReader(data))
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
			return nil, apperr.Validationf("Error processing file: %v", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readSpreadsheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validationf("Error processing file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("Error processing file: the workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validationf("Error processing file: %v", err)
	}
	return rows, nil
}

func fromRecords(name string, records [][]string) (*Dataset, error) {
	records = dropBlankRows(records)
	if len(records) == 0 {
		return nil, apperr.Validation("Error processing file: no header row found")
	}

	header := records[0]
	body := records[1:]
	width := len(header)
	for _, row := range body {
		width = max(width, len(row))
	}

	columns := headerNames(header, width)
	rows := make([][]string, len(body))
	for i, row := range body {
		padded := make([]string, width)
		copy(padded, row)
		rows[i] = padded
	}

	return &Dataset{
		Name:    filepath.Base(name),
		Columns: columns,
		Types:   inferTypes(width, rows),
		Rows:    rows,
	}, nil
}

// headerNames fills blank names with "Unnamed: i" and suffixes repeats with
// ".1", ".2". Names are compared case-insensitively, as SQLite does.
func headerNames(header []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for n := 1; used[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

func dropBlankRows(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		blank := true
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}
