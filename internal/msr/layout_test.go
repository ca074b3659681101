// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package msr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterWidths(t *testing.T) {
	require.Len(t, Registers(), int(SlotCount))
	for _, r := range Registers() {
		assert.Equal(t, uint(64), r.Width(), "register %s", r.Name)
		// fields are contiguous, so there are no gaps or overlaps
		var next uint
		for _, f := range r.Fields {
			assert.Equal(t, next, f.Offset, "field %s of %s", f.Name, r.Name)
			assert.Equal(t, r.Slot, f.Slot, "field %s of %s", f.Name, r.Name)
			next = f.Offset + f.Width
		}
	}
}

func TestSlotAddresses(t *testing.T) {
	expected := []uint32{0x1320, 0x1321, 0x1322, 0x1323, 0x1324, 0x1a4}
	for i, r := range Registers() {
		assert.Equal(t, Slot(i), r.Slot)
		assert.Equal(t, expected[i], r.Address())
		assert.Equal(t, expected[i], Slot(i).Address())
	}
	assert.Equal(t, "0x1A4", Slot1A4.String())
	assert.Equal(t, "Slot(6)", SlotCount.String())
}

func TestFieldPositions(t *testing.T) {
	tests := []struct {
		field  Field
		slot   Slot
		offset uint
		width  uint
		max    uint64
	}{
		{FieldL2XQ, Slot1320, 0, 5, L2XQMax},
		{FieldL2MaxDist, Slot1320, 20, 5, L2MaxDistMax},
		{FieldL3MaxDist, Slot1320, 37, 6, L3MaxDistMax},
		{FieldLLCStreamDisable, Slot1320, 43, 1, 1},
		{FieldL3XQ, Slot1320, 58, 5, L3XQMax},
		{FieldL2DemandDensity, Slot1321, 21, 8, L2DemandDensityMax},
		{FieldL2L3XQ, Slot1321, 41, 6, L2L3XQMax},
		{FieldL3DemandDensity, Slot1322, 14, 9, L3DemandDensityMax},
		{FieldL1HomelessThreshold, Slot1324, 54, 8, L1HomelessThreshMax},
		{FieldL2StreamDisable, Slot1A4, 0, 1, 1},
		{FieldL1NLPDisable, Slot1A4, 2, 1, 1},
		{FieldL1IPPDisable, Slot1A4, 3, 1, 1},
		{FieldL1NPPDisable, Slot1A4, 4, 1, 1},
		{FieldL2AMPDisable, Slot1A4, 5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.field.Name, func(t *testing.T) {
			assert.Equal(t, tt.slot, tt.field.Slot)
			assert.Equal(t, tt.offset, tt.field.Offset)
			assert.Equal(t, tt.width, tt.field.Width)
			assert.Equal(t, tt.max, tt.field.Max())
		})
	}
}

func TestFieldByName(t *testing.T) {
	f, err := FieldByName("llc_stream_disable")
	require.NoError(t, err)
	assert.Equal(t, FieldLLCStreamDisable, f)

	_, err = FieldByName("pad0")
	assert.EqualError(t, err, "field pad0 not found")

	_, err = FieldByName("NOT_A_FIELD")
	assert.Error(t, err)
}

func TestFieldGetSet(t *testing.T) {
	f := Field{Name: "TEST", Offset: 8, Width: 4}
	raw := f.Set(0xFFFF_FFFF_FFFF_FFFF, 0x5)
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF_F5FF), raw)
	assert.Equal(t, uint64(0x5), f.Get(raw))
	// 0x15 doesn't fit in 4 bits
	assert.Equal(t, uint64(0x500), f.Set(0, 0x15))

	full := Field{Name: "FULL", Width: 64}
	assert.Equal(t, ^uint64(0), full.Max())
	assert.Equal(t, uint64(42), full.Get(full.Set(0, 42)))
}

func TestFieldBits(t *testing.T) {
	assert.Equal(t, "43", FieldLLCStreamDisable.Bits())
	assert.Equal(t, "24:20", FieldL2MaxDist.Bits())
}
