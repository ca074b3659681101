package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"hwpf/internal/table"
)

const columnSpacing = 3

func noDataMessage(tableValues table.TableValues) string {
	if tableValues.NoDataFound != "" {
		return tableValues.NoDataFound
	}
	return NoDataFound
}

func createTextReport(allTableValues []table.TableValues) (out []byte, err error) {
	var sb strings.Builder
	for _, tableValues := range allTableValues {
		fmt.Fprintf(&sb, "%s\n%s\n", tableValues.Name, strings.Repeat("=", len(tableValues.Name)))
		if tableValues.NumRows() == 0 {
			sb.WriteString(noDataMessage(tableValues) + "\n\n")
			continue
		}
		sb.WriteString(renderTextTable(tableValues))
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}

// textColumnWidths returns, per field, the length of its name or its longest
// value, whichever is greater
func textColumnWidths(tableValues table.TableValues) []int {
	widths := make([]int, len(tableValues.Fields))
	for i, field := range tableValues.Fields {
		widths[i] = len(field.Name)
		for _, val := range field.Values {
			widths[i] = max(widths[i], len(val))
		}
	}
	return widths
}

// renderTextTable prints the field names as column headings, underlined,
// followed by one line per row
func renderTextTable(tableValues table.TableValues) string {
	widths := textColumnWidths(tableValues)
	var sb strings.Builder
	writeLine := func(cells []string) {
		var line strings.Builder
		for i, cell := range cells {
			if i > 0 {
				line.WriteString(strings.Repeat(" ", columnSpacing))
			}
			if tableValues.Fields[i].Align == table.AlignRight {
				fmt.Fprintf(&line, "%*s", widths[i], cell)
			} else {
				fmt.Fprintf(&line, "%-*s", widths[i], cell)
			}
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}
	header := make([]string, len(tableValues.Fields))
	underline := make([]string, len(tableValues.Fields))
	for i, field := range tableValues.Fields {
		header[i] = field.Name
		underline[i] = strings.Repeat("-", widths[i])
	}
	writeLine(header)
	writeLine(underline)
	for row := range tableValues.NumRows() {
		writeLine(tableValues.Row(row))
	}
	return sb.String()
}
