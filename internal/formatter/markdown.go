// Package formatter renders and aligns markdown tables for console and file reports.
package formatter

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

const minColumnWidth = 3

// Table renders header and rows as an aligned markdown table. Columns whose
// body cells are all numeric are right-aligned.
func Table(header []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, joinRow(header))

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}

	lines = append(lines, joinRow(sep))

	for _, row := range rows {
		lines = append(lines, joinRow(row))
	}

	return strings.Join(alignTable(lines), "\n")
}

// FormatMarkdown re-aligns every table found in content and leaves other
// lines untouched.
func FormatMarkdown(content string) string {
	lines := strings.Split(content, "\n")

	var formatted, tableBuffer []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			tableBuffer = append(tableBuffer, line)
			continue
		}

		if len(tableBuffer) > 0 {
			formatted = append(formatted, alignTable(tableBuffer)...)
			tableBuffer = nil
		}

		formatted = append(formatted, line)
	}

	if len(tableBuffer) > 0 {
		formatted = append(formatted, alignTable(tableBuffer)...)
	}

	return strings.Join(formatted, "\n")
}

func joinRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func splitRow(row string) []string {
	parts := strings.Split(row, "|")

	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}

	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}

	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return len(cells) > 0
}

func isNumeric(cell string) bool {
	_, err := strconv.ParseFloat(strings.TrimSuffix(cell, "%"), 64)
	return err == nil
}

// alignTable pads every cell to its column's display width.
func alignTable(rows []string) []string {
	// Header and separator are both needed for a table.
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, len(rows))
	colCount := 0

	for i, row := range rows {
		table[i] = splitRow(row)
		colCount = max(colCount, len(table[i]))
	}

	separatorIdx := -1
	if isSeparatorRow(table[1]) {
		separatorIdx = 1
	}

	widths := make([]int, colCount)
	numeric := make([]bool, colCount)

	for i := range numeric {
		numeric[i] = separatorIdx == 1 && len(table) > 2
	}

	for r, row := range table {
		if r == separatorIdx {
			continue
		}

		for c := 0; c < colCount; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}

			widths[c] = max(widths[c], runewidth.StringWidth(cell), minColumnWidth)

			if r > separatorIdx && separatorIdx >= 0 && !isNumeric(cell) {
				numeric[c] = false
			}
		}
	}

	result := make([]string, 0, len(table))

	for r, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for c := 0; c < colCount; c++ {
			sb.WriteString(" ")

			if r == separatorIdx {
				if numeric[c] {
					sb.WriteString(strings.Repeat("-", widths[c]-1) + ":")
				} else {
					sb.WriteString(strings.Repeat("-", widths[c]))
				}

				sb.WriteString(" |")

				continue
			}

			cell := ""
			if c < len(row) {
				cell = row[c]
			}

			padding := strings.Repeat(" ", widths[c]-runewidth.StringWidth(cell))
			if numeric[c] && r > separatorIdx {
				sb.WriteString(padding + cell)
			} else {
				sb.WriteString(cell + padding)
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}
