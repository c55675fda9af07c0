package tabular

import (
	"fmt"
	"strings"
)

// MaxMarkdownRows caps the rows rendered into a chat message.
const MaxMarkdownRows = 50

// Markdown renders r as a GitHub-flavoured table.
func Markdown(r *Result) string {
	if r == nil || len(r.Columns) == 0 {
		return "_The query returned no columns._"
	}

	var sb strings.Builder
	sb.WriteString("| ")
	for i, c := range r.Columns {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(escapeCell(c))
	}
	sb.WriteString(" |\n|")
	for range r.Columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	shown := min(len(r.Rows), MaxMarkdownRows)
	for _, row := range r.Rows[:shown] {
		sb.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(escapeCell(formatCell(v)))
		}
		sb.WriteString(" |\n")
	}

	switch {
	case len(r.Rows) == 0:
		sb.WriteString("\n_No rows returned._")
	case len(r.Rows) > shown:
		fmt.Fprintf(&sb, "\n_Showing %d of %d rows._", shown, len(r.Rows))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
