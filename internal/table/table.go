// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package table provides the structures that hold report data, independent of
// the format the data is rendered in.
package table

import (
	"fmt"
)

// Alignment of a field's values in fixed width renderings
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Field is one column of a table
type Field struct {
	Name   string
	Align  Alignment
	Values []string
}

// TableValues combines the table definition with the resulting fields and their values
type TableValues struct {
	TableDefinition
	Fields []Field
}

// TableDefinition defines the structure of a table in the report
type TableDefinition struct {
	Name        string
	NoDataFound string // message to display when no data is found
}

// NumRows returns the number of values held by each field
func (tv *TableValues) NumRows() int {
	if len(tv.Fields) == 0 {
		return 0
	}
	return len(tv.Fields[0].Values)
}

// Row returns the values of every field at index i
func (tv *TableValues) Row(i int) []string {
	row := make([]string, len(tv.Fields))
	for j, field := range tv.Fields {
		row[j] = field.Values[i]
	}
	return row
}

// AppendRow adds one value to each field, in field order
func (tv *TableValues) AppendRow(values ...string) error {
	if len(values) != len(tv.Fields) {
		return fmt.Errorf("table %s, expected %d values, got %d", tv.Name, len(tv.Fields), len(values))
	}
	for i := range tv.Fields {
		tv.Fields[i].Values = append(tv.Fields[i].Values, values[i])
	}
	return nil
}

// Validate checks that the table is well formed
func Validate(tableValues TableValues) error {
	if tableValues.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	// no field values is a valid state
	if len(tableValues.Fields) == 0 {
		return nil
	}
	// field names cannot be empty
	for i, field := range tableValues.Fields {
		if field.Name == "" {
			return fmt.Errorf("table %s, field %d, name cannot be empty", tableValues.Name, i)
		}
	}
	// the number of entries in each field must be the same
	numEntries := len(tableValues.Fields[0].Values)
	for i, field := range tableValues.Fields {
		if len(field.Values) != numEntries {
			return fmt.Errorf("table %s, field %d, %s, number of entries must be the same for all fields, expected %d, got %d", tableValues.Name, i, field.Name, numEntries, len(field.Values))
		}
	}
	return nil
}
