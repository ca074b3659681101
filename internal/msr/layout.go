// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package msr models the prefetcher tuning MSRs of Atom cores and moves them
// between hardware and an in-memory snapshot.
package msr

import (
	"fmt"
	"strings"
)

// Slot identifies one tracked register. The slot value is the index of the
// register in a Snapshot.
type Slot int

const (
	Slot1320 Slot = iota
	Slot1321
	Slot1322
	Slot1323
	Slot1324
	Slot1A4
	SlotCount
)

// MSR addresses
const (
	MsrAtomPrefTuning1 = 0x1320
	MsrAtomPrefTuning2 = 0x1321
	MsrAtomPrefTuning3 = 0x1322
	MsrAtomPrefTuning4 = 0x1323
	MsrAtomPrefTuning5 = 0x1324
	MsrPrefetchControl = 0x1a4
)

// slotAddresses must stay in Slot order.
var slotAddresses = [SlotCount]uint32{
	Slot1320: MsrAtomPrefTuning1,
	Slot1321: MsrAtomPrefTuning2,
	Slot1322: MsrAtomPrefTuning3,
	Slot1323: MsrAtomPrefTuning4,
	Slot1324: MsrAtomPrefTuning5,
	Slot1A4:  MsrPrefetchControl,
}

// Address returns the MSR address of the slot.
func (s Slot) Address() uint32 {
	return slotAddresses[s]
}

func (s Slot) String() string {
	if s < 0 || s >= SlotCount {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return fmt.Sprintf("0x%X", s.Address())
}

// Maximum legal values of the numeric tuning fields. Setters do not enforce
// these, values that don't fit are truncated to the field width.
const (
	L2MaxDistMax        = 31
	L3MaxDistMax        = 63
	L2XQMax             = 31
	L3XQMax             = 31
	L2L3XQMax           = 63
	L2DemandDensityMax  = 255
	L3DemandDensityMax  = 511
	L1HomelessThreshMax = 255
)

// Field is a named bit range within one register.
type Field struct {
	Name     string
	Slot     Slot
	Offset   uint
	Width    uint
	Reserved bool // padding, never exposed as a setting
}

// mask returns the field's bits right-aligned
func (f Field) mask() uint64 {
	if f.Width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.Width) - 1
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint64 {
	return f.mask()
}

// Get extracts the field from a raw register value.
func (f Field) Get(raw uint64) uint64 {
	return (raw >> f.Offset) & f.mask()
}

// Set returns raw with the field replaced by value. Bits of value above the
// field width are dropped.
func (f Field) Set(raw uint64, value uint64) uint64 {
	m := f.mask() << f.Offset
	return (raw &^ m) | ((value << f.Offset) & m)
}

// Bits returns the bit range in the [high:low] notation used by the SDM.
func (f Field) Bits() string {
	if f.Width == 1 {
		return fmt.Sprintf("%d", f.Offset)
	}
	return fmt.Sprintf("%d:%d", f.Offset+f.Width-1, f.Offset)
}

// Register describes the layout of one tracked MSR.
type Register struct {
	Slot   Slot
	Name   string
	Fields []Field
}

// Address returns the MSR address of the register.
func (r Register) Address() uint32 {
	return r.Slot.Address()
}

// Width returns the sum of the declared field widths.
func (r Register) Width() uint {
	var w uint
	for _, f := range r.Fields {
		w += f.Width
	}
	return w
}

// layoutEntry is a (name, width) pair, offsets are assigned in declaration order
type layoutEntry struct {
	name  string
	width uint
}

const padPrefix = "pad"

func pad(width uint) layoutEntry {
	return layoutEntry{name: padPrefix, width: width}
}

func newRegister(slot Slot, name string, entries ...layoutEntry) Register {
	r := Register{Slot: slot, Name: name}
	var offset uint
	pads := 0
	for _, e := range entries {
		f := Field{Name: e.name, Slot: slot, Offset: offset, Width: e.width}
		if e.name == padPrefix {
			f.Name = fmt.Sprintf("%s%d", padPrefix, pads)
			f.Reserved = true
			pads++
		}
		r.Fields = append(r.Fields, f)
		offset += e.width
	}
	return r
}

var registers = [SlotCount]Register{
	newRegister(Slot1320, "ATOM_PREF_TUNING1",
		layoutEntry{"L2_STREAM_AMP_XQ_THRESHOLD", 5},
		pad(15),
		layoutEntry{"L2_STREAM_MAX_DISTANCE", 5},
		pad(5),
		layoutEntry{"L2_AMP_DISABLE_RECURSION", 1},
		pad(6),
		layoutEntry{"LLC_STREAM_MAX_DISTANCE", 6},
		layoutEntry{"LLC_STREAM_DISABLE", 1},
		pad(14),
		layoutEntry{"LLC_STREAM_XQ_THRESHOLD", 5},
		pad(1),
	),
	newRegister(Slot1321, "ATOM_PREF_TUNING2",
		layoutEntry{"L2_STREAM_AMP_CREATE_IL1", 1},
		pad(20),
		layoutEntry{"L2_STREAM_DEMAND_DENSITY", 8},
		layoutEntry{"L2_STREAM_DEMAND_DENSITY_OVR", 4},
		pad(7),
		layoutEntry{"L2_DISABLE_NEXT_LINE_PREFETCH", 1},
		layoutEntry{"L2_LLC_STREAM_AMP_XQ_THRESHOLD", 6},
		pad(17),
	),
	newRegister(Slot1322, "ATOM_PREF_TUNING3",
		pad(14),
		layoutEntry{"LLC_STREAM_DEMAND_DENSITY", 9},
		layoutEntry{"LLC_STREAM_DEMAND_DENSITY_OVR", 4},
		layoutEntry{"L2_AMP_CONFIDENCE_DPT0", 6},
		layoutEntry{"L2_AMP_CONFIDENCE_DPT1", 6},
		layoutEntry{"L2_AMP_CONFIDENCE_DPT2", 6},
		layoutEntry{"L2_AMP_CONFIDENCE_DPT3", 6},
		pad(8),
		layoutEntry{"L2_LLC_STREAM_DEMAND_DENSITY_XQ", 3},
		pad(2),
	),
	newRegister(Slot1323, "ATOM_PREF_TUNING4",
		pad(34),
		layoutEntry{"L2_STREAM_AMP_CREATE_SWPFRFO", 1},
		layoutEntry{"L2_STREAM_AMP_CREATE_SWPFRD", 1},
		pad(1),
		layoutEntry{"L2_STREAM_AMP_CREATE_HWPFD", 1},
		layoutEntry{"L2_STREAM_AMP_CREATE_DRFO", 1},
		layoutEntry{"STABILIZE_PREF_ON_SWPFRFO", 1},
		layoutEntry{"STABILIZE_PREF_ON_SWPFRD", 1},
		layoutEntry{"STABILIZE_PREF_ON_IL1", 1},
		pad(1),
		layoutEntry{"STABILIZE_PREF_ON_HWPFD", 1},
		layoutEntry{"STABILIZE_PREF_ON_DRFO", 1},
		layoutEntry{"L2_STREAM_AMP_CREATE_PFNPP", 1},
		layoutEntry{"L2_STREAM_AMP_CREATE_PFIPP", 1},
		layoutEntry{"STABILIZE_PREF_ON_PFNPP", 1},
		layoutEntry{"STABILIZE_PREF_ON_PFIPP", 1},
		pad(15),
	),
	newRegister(Slot1324, "ATOM_PREF_TUNING5",
		pad(54),
		layoutEntry{"L1_HOMELESS_THRESHOLD", 8},
		pad(2),
	),
	newRegister(Slot1A4, "PREFETCH_CONTROL",
		layoutEntry{"L2_STREAM_DISABLE", 1},
		pad(1),
		layoutEntry{"L1_NLP_DISABLE", 1},
		layoutEntry{"L1_IPP_DISABLE", 1},
		layoutEntry{"L1_NPP_DISABLE", 1},
		layoutEntry{"L2_AMP_DISABLE", 1},
		pad(58),
	),
}

// Registers returns the register descriptors in slot order.
func Registers() []Register {
	return registers[:]
}

// RegisterForSlot returns the descriptor of one slot.
func RegisterForSlot(s Slot) Register {
	return registers[s]
}

// FieldByName looks up a non-reserved field by its hardware name. The lookup
// is case-insensitive.
func FieldByName(name string) (Field, error) {
	for _, r := range registers {
		for _, f := range r.Fields {
			if !f.Reserved && strings.EqualFold(f.Name, name) {
				return f, nil
			}
		}
	}
	return Field{}, fmt.Errorf("field %s not found", name)
}

// mustField is used to build the package level field variables
func mustField(name string) Field {
	f, err := FieldByName(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Fields used by the typed accessors.
var (
	FieldL2XQ                = mustField("L2_STREAM_AMP_XQ_THRESHOLD")
	FieldL2MaxDist           = mustField("L2_STREAM_MAX_DISTANCE")
	FieldL3MaxDist           = mustField("LLC_STREAM_MAX_DISTANCE")
	FieldLLCStreamDisable    = mustField("LLC_STREAM_DISABLE")
	FieldL3XQ                = mustField("LLC_STREAM_XQ_THRESHOLD")
	FieldL2DemandDensity     = mustField("L2_STREAM_DEMAND_DENSITY")
	FieldL2L3XQ              = mustField("L2_LLC_STREAM_AMP_XQ_THRESHOLD")
	FieldL3DemandDensity     = mustField("LLC_STREAM_DEMAND_DENSITY")
	FieldL1HomelessThreshold = mustField("L1_HOMELESS_THRESHOLD")
	FieldL2StreamDisable     = mustField("L2_STREAM_DISABLE")
	FieldL1NLPDisable        = mustField("L1_NLP_DISABLE")
	FieldL1IPPDisable        = mustField("L1_IPP_DISABLE")
	FieldL1NPPDisable        = mustField("L1_NPP_DISABLE")
	FieldL2AMPDisable        = mustField("L2_AMP_DISABLE")
)
