package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"

	"hwpf/internal/msr"
	"hwpf/internal/table"
)

const (
	PrefetchersTableName = "Prefetchers"
	TuningTableName      = "Prefetcher Tuning"
	RegistersTableName   = "Prefetcher Registers"
	FieldsTableName      = "Prefetcher Register Fields"
)

func tableName(name string, core int) string {
	return fmt.Sprintf("%s (core %d)", name, core)
}

// PrefetchersTable lists the on/off state of each prefetcher
func PrefetchersTable(core int, snap *msr.Snapshot) table.TableValues {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: tableName(PrefetchersTableName, core)},
		Fields: []table.Field{
			{Name: "Prefetcher"},
			{Name: "Description"},
			{Name: "MSR"},
			{Name: "Bit", Align: table.AlignRight},
			{Name: "Status"},
		},
	}
	for _, p := range PrefetcherDefs {
		_ = tv.AppendRow(p.ShortName, p.LongName, p.Field.Slot.String(), p.Field.Bits(), PrefetcherStatus(snap.Get(p.Field)))
	}
	return tv
}

// TuningTable lists the numeric thresholds and their limits
func TuningTable(core int, snap *msr.Snapshot) table.TableValues {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: tableName(TuningTableName, core)},
		Fields: []table.Field{
			{Name: "Setting"},
			{Name: "MSR"},
			{Name: "Bits"},
			{Name: "Value", Align: table.AlignRight},
			{Name: "Max", Align: table.AlignRight},
		},
	}
	for _, d := range TuningDefs {
		_ = tv.AppendRow(d.LongName, d.Field.Slot.String(), d.Field.Bits(), strconv.FormatUint(snap.Get(d.Field), 10), strconv.FormatUint(d.Field.Max(), 10))
	}
	return tv
}

// RegistersTable lists the raw value of each tracked register
func RegistersTable(core int, snap *msr.Snapshot) table.TableValues {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: tableName(RegistersTableName, core)},
		Fields: []table.Field{
			{Name: "Register"},
			{Name: "MSR"},
			{Name: "Value"},
		},
	}
	for _, r := range msr.Registers() {
		_ = tv.AppendRow(r.Name, r.Slot.String(), fmt.Sprintf("0x%016X", snap[r.Slot]))
	}
	return tv
}

// FieldsTable lists every named field of every tracked register
func FieldsTable(core int, snap *msr.Snapshot) table.TableValues {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: tableName(FieldsTableName, core)},
		Fields: []table.Field{
			{Name: "Register"},
			{Name: "Field"},
			{Name: "Bits"},
			{Name: "Value", Align: table.AlignRight},
			{Name: "Max", Align: table.AlignRight},
		},
	}
	for _, r := range msr.Registers() {
		for _, f := range r.Fields {
			if f.Reserved {
				continue
			}
			_ = tv.AppendRow(r.Name, f.Name, f.Bits(), strconv.FormatUint(snap.Get(f), 10), strconv.FormatUint(f.Max(), 10))
		}
	}
	return tv
}

// SnapshotTables returns the summary tables of one core. The register and
// field tables are only included when verbose is set.
func SnapshotTables(core int, snap *msr.Snapshot, verbose bool) []table.TableValues {
	tables := []table.TableValues{
		PrefetchersTable(core, snap),
		TuningTable(core, snap),
	}
	if verbose {
		tables = append(tables, RegistersTable(core, snap), FieldsTable(core, snap))
	}
	return tables
}
