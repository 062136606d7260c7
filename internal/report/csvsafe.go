// Package report renders run results as CSV for spreadsheet triage.
package report

import "strings"

// EscapeCell neutralizes spreadsheet formula injection. Cells starting with a
// formula trigger or control character get a leading apostrophe.
func EscapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '|', '%':
		return "'" + value
	}
	if strings.HasPrefix(value, "\t") || strings.HasPrefix(value, "\r") || strings.HasPrefix(value, "\n") {
		return "'" + value
	}
	return value
}

// EscapeRow escapes every cell of one row.
func EscapeRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCell(cell)
	}
	return escaped
}
