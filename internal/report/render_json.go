package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"hwpf/internal/table"
)

// jsonTable keeps the column order, which a map of records would lose
type jsonTable struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Message string              `json:"message,omitempty"`
}

func createJsonReport(allTableValues []table.TableValues) (out []byte, err error) {
	tables := make([]jsonTable, 0, len(allTableValues))
	for _, tableValues := range allTableValues {
		jt := jsonTable{
			Name:    tableValues.Name,
			Columns: make([]string, len(tableValues.Fields)),
			Rows:    make([]map[string]string, 0, tableValues.NumRows()),
		}
		for i, field := range tableValues.Fields {
			jt.Columns[i] = field.Name
		}
		for row := range tableValues.NumRows() {
			record := make(map[string]string, len(tableValues.Fields))
			for i, value := range tableValues.Row(row) {
				record[jt.Columns[i]] = value
			}
			jt.Rows = append(jt.Rows, record)
		}
		if len(jt.Rows) == 0 {
			jt.Message = noDataMessage(tableValues)
		}
		tables = append(tables, jt)
	}
	return json.MarshalIndent(tables, "", "  ")
}
