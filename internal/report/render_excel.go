package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"fmt"
	"strconv"

	"hwpf/internal/table"

	"github.com/xuri/excelize/v2"
)

const XlsxPrimarySheetName = "Report"

// xlsxWriter lays tables out one below the other on a single sheet
type xlsxWriter struct {
	f          *excelize.File
	sheet      string
	row        int
	widths     map[int]int
	boldStyle  int
	leftStyle  int
	rightStyle int
}

func newXlsxWriter() (*xlsxWriter, error) {
	w := &xlsxWriter{
		f:      excelize.NewFile(),
		sheet:  XlsxPrimarySheetName,
		row:    1,
		widths: make(map[int]int),
	}
	var err error
	if err = w.f.SetSheetName("Sheet1", w.sheet); err != nil {
		return nil, err
	}
	if w.boldStyle, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if w.leftStyle, err = w.f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}}); err != nil {
		return nil, err
	}
	if w.rightStyle, err = w.f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "right"}}); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *xlsxWriter) setCell(col int, value string, style int) {
	cell, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil {
		return
	}
	_ = w.f.SetCellValue(w.sheet, cell, cellValue(value))
	_ = w.f.SetCellStyle(w.sheet, cell, cell, style)
	w.widths[col] = max(w.widths[col], len(value))
}

// writeTable writes the table name, a header row and the values, followed by
// a blank row
func (w *xlsxWriter) writeTable(tableValues table.TableValues) {
	w.setCell(1, tableValues.Name, w.boldStyle)
	// the title shouldn't widen the first column
	w.widths[1] = 0
	w.row++
	if tableValues.NumRows() == 0 {
		w.setCell(1, noDataMessage(tableValues), w.leftStyle)
		w.row += 2
		return
	}
	for i, field := range tableValues.Fields {
		w.setCell(i+1, field.Name, w.boldStyle)
	}
	w.row++
	for row := range tableValues.NumRows() {
		for i, value := range tableValues.Row(row) {
			style := w.leftStyle
			if tableValues.Fields[i].Align == table.AlignRight {
				style = w.rightStyle
			}
			w.setCell(i+1, value, style)
		}
		w.row++
	}
	w.row++
}

func (w *xlsxWriter) fitColumns() {
	for col, width := range w.widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		_ = w.f.SetColWidth(w.sheet, name, name, float64(max(width, 8)+2))
	}
}

func createXlsxReport(allTableValues []table.TableValues) (out []byte, err error) {
	w, err := newXlsxWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create xlsx report: %w", err)
	}
	defer w.f.Close()
	for _, tableValues := range allTableValues {
		w.writeTable(tableValues)
	}
	w.fitColumns()
	var buf bytes.Buffer
	if _, err = w.f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx report to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue stores decimal numbers as numbers so they can be used in
// formulas. Hex strings, e.g., register values, are kept as text.
func cellValue(value string) any {
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return n
	}
	return value
}
