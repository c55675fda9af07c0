package tabular

import (
	"strconv"
	"strings"
)

// InferType picks the SQL type of a column from its cells. Empty cells are
// ignored except that they turn an integer column into REAL, the way a
// missing value forces a float column in a dataframe.
func InferType(cells []string) string {
	seen, empty := 0, false
	allInt, allFloat, allTime := true, true, true
	for _, raw := range cells {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			empty = true
			continue
		}
		seen++
		if allInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
		}
		if allTime {
			if _, ok := parseTime(cell); !ok {
				allTime = false
			}
		}
		if !allInt && !allFloat && !allTime {
			break
		}
	}

	switch {
	case seen == 0:
		return TypeText
	case allInt && !empty:
		return TypeInteger
	case allFloat:
		return TypeReal
	case allTime:
		return TypeTimestamp
	default:
		return TypeText
	}
}

func inferTypes(columns int, rows [][]string) []string {
	types := make([]string, columns)
	cells := make([]string, len(rows))
	for c := 0; c < columns; c++ {
		for r, row := range rows {
			if c < len(row) {
				cells[r] = row[c]
			} else {
				cells[r] = ""
			}
		}
		types[c] = InferType(cells)
	}
	return types
}
