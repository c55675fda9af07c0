// Package tabular turns uploaded CSV and spreadsheet files into typed tables
// that can be described to an LLM and queried with SQL.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQL column types assigned by inference.
const (
	TypeText      = "TEXT"
	TypeInteger   = "INTEGER"
	TypeReal      = "REAL"
	TypeTimestamp = "TIMESTAMP"
)

// PreviewRows is the number of rows included in a dataset preview.
const PreviewRows = 3

// TimestampLayout is the canonical form TIMESTAMP cells are stored in.
const TimestampLayout = "2006-01-02 15:04:05"

// Dataset is an uploaded table. Cells keep their original text; Value
// converts them according to the inferred column type.
type Dataset struct {
	Name    string
	Columns []string
	Types   []string
	Rows    [][]string
}

// Schema returns one "<column> <TYPE>" line per column.
func (d *Dataset) Schema() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = fmt.Sprintf("%s %s", c, d.Types[i])
	}
	return out
}

// Preview returns the first PreviewRows rows as column to typed value maps.
func (d *Dataset) Preview() []map[string]any {
	n := min(PreviewRows, len(d.Rows))
	out := make([]map[string]any, 0, n)
	for _, row := range d.Rows[:n] {
		rec := make(map[string]any, len(d.Columns))
		for i, c := range d.Columns {
			rec[c] = d.Value(row, i)
		}
		out = append(out, rec)
	}
	return out
}

// Value converts row[i] to the Go value matching the column type. Empty
// cells are nil.
func (d *Dataset) Value(row []string, i int) any {
	if i >= len(row) {
		return nil
	}
	cell := strings.TrimSpace(row[i])
	if cell == "" {
		return nil
	}
	switch d.Types[i] {
	case TypeInteger:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return v
		}
	case TypeReal:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return v
		}
	case TypeTimestamp:
		if t, ok := parseTime(cell); ok {
			return t.Format(TimestampLayout)
		}
	}
	return row[i]
}

// Summary is the JSON shape returned after an upload.
type Summary struct {
	Name    string           `json:"name"`
	Columns []string         `json:"columns"`
	Schema  []string         `json:"schema"`
	Preview []map[string]any `json:"preview"`
	Rows    int              `json:"rows"`
}

func (d *Dataset) Summary() Summary {
	return Summary{
		Name:    d.Name,
		Columns: append([]string(nil), d.Columns...),
		Schema:  d.Schema(),
		Preview: d.Preview(),
		Rows:    len(d.Rows),
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02-Jan-2006",
	"Jan 2, 2006",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
