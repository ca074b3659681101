// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package msr

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("input/output error")

// fakeDevice keeps registers in a map and records the offsets it is asked
// for. A read or write at failAt fails, with a short transfer if short is set.
type fakeDevice struct {
	regs   map[int64]uint64
	failAt int64
	short  bool
	reads  []int64
	writes []int64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{regs: make(map[int64]uint64), failAt: -1}
}

func (d *fakeDevice) ReadAt(p []byte, off int64) (int, error) {
	d.reads = append(d.reads, off)
	if off == d.failAt {
		if d.short {
			return 4, nil
		}
		return 0, errInjected
	}
	binary.LittleEndian.PutUint64(p, d.regs[off])
	return len(p), nil
}

func (d *fakeDevice) WriteAt(p []byte, off int64) (int, error) {
	if off == d.failAt {
		if d.short {
			return 2, nil
		}
		return 0, errInjected
	}
	d.writes = append(d.writes, off)
	d.regs[off] = binary.LittleEndian.Uint64(p)
	return len(p), nil
}

// memDevice keeps each register in its own 8 byte cell of an in-memory file.
// The msr driver addresses registers, not bytes, so adjacent MSRs must not
// overlap.
type memDevice struct {
	f afero.File
}

func (d memDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off*8)
}

func (d memDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off*8)
}

// newMemDevice returns a zeroed device covering all tracked registers and
// PMU counters
func newMemDevice(t *testing.T) memDevice {
	fs := afero.NewMemMapFs()
	f, err := fs.Create("msr")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(0x2000*8))
	t.Cleanup(func() { _ = f.Close() })
	return memDevice{f: f}
}

func addresses() []int64 {
	var out []int64
	for s := range SlotCount {
		out = append(out, int64(s.Address()))
	}
	return out
}

func TestFieldRoundTrip(t *testing.T) {
	for _, r := range Registers() {
		for _, f := range r.Fields {
			if f.Reserved {
				continue
			}
			t.Run(f.Name, func(t *testing.T) {
				var snap Snapshot
				for _, v := range []uint64{0, 1, f.Max() / 2, f.Max()} {
					snap.Set(f, v)
					assert.Equal(t, v, snap.Get(f))
				}
				// truncation to the field width
				snap.Set(f, f.Max()+1)
				assert.Equal(t, uint64(0), snap.Get(f))
				snap.Set(f, f.Max()+2)
				assert.Equal(t, uint64(1), snap.Get(f))
			})
		}
	}
}

func TestSetLeavesOtherBits(t *testing.T) {
	var snap Snapshot
	for i := range snap {
		snap[i] = ^uint64(0)
	}
	snap.SetL2MaxDist(0)
	assert.Equal(t, uint64(0), snap.L2MaxDist())
	assert.Equal(t, ^uint64(0)&^(uint64(0x1f)<<20), snap[Slot1320])
	for s := Slot1321; s < SlotCount; s++ {
		assert.Equal(t, ^uint64(0), snap[s])
	}
}

func TestL2MaxDistTruncation(t *testing.T) {
	var snap Snapshot
	snap.SetL2MaxDist(31)
	assert.Equal(t, uint64(31), snap.L2MaxDist())
	snap.SetL2MaxDist(32)
	assert.Equal(t, uint64(0), snap.L2MaxDist())
}

func TestNumericAccessors(t *testing.T) {
	var snap Snapshot
	snap.SetL2XQ(L2XQMax)
	snap.SetL3XQ(7)
	snap.SetL3MaxDist(L3MaxDistMax)
	snap.SetL2L3XQ(40)
	snap.SetL2DemandDensity(200)
	snap.SetL3DemandDensity(300)
	snap.SetL1HomelessThreshold(17)
	assert.Equal(t, uint64(L2XQMax), snap.L2XQ())
	assert.Equal(t, uint64(7), snap.L3XQ())
	assert.Equal(t, uint64(L3MaxDistMax), snap.L3MaxDist())
	assert.Equal(t, uint64(40), snap.L2L3XQ())
	assert.Equal(t, uint64(200), snap.L2DemandDensity())
	assert.Equal(t, uint64(300), snap.L3DemandDensity())
	assert.Equal(t, uint64(17), snap.L1HomelessThreshold())
	// L2 XQ and L3 XQ share a register
	assert.Equal(t, uint64(L2XQMax)|uint64(7)<<58|uint64(L3MaxDistMax)<<37, snap[Slot1320])
}

func TestL1IPPToggleSequence(t *testing.T) {
	var snap Snapshot
	assert.Equal(t, uint64(0), snap.DisableL1IPP())
	assert.Equal(t, uint64(1), snap.EnableL1IPP())
	assert.Equal(t, uint64(0), snap.Get(FieldL1IPPDisable))

	assert.Equal(t, uint64(0), snap.EnableL1IPP())
	assert.Equal(t, uint64(0), snap.DisableL1IPP())
	assert.Equal(t, uint64(1), snap.Get(FieldL1IPPDisable))
}

func TestTogglesReturnPreviousValue(t *testing.T) {
	toggles := []struct {
		field   Field
		disable func(*Snapshot) uint64
		enable  func(*Snapshot) uint64
	}{
		{FieldL1IPPDisable, (*Snapshot).DisableL1IPP, (*Snapshot).EnableL1IPP},
		{FieldL1NPPDisable, (*Snapshot).DisableL1NPP, (*Snapshot).EnableL1NPP},
		{FieldL1NLPDisable, (*Snapshot).DisableL1NLP, (*Snapshot).EnableL1NLP},
		{FieldL2StreamDisable, (*Snapshot).DisableL2Stream, (*Snapshot).EnableL2Stream},
		{FieldL2AMPDisable, (*Snapshot).DisableL2AMP, (*Snapshot).EnableL2AMP},
		{FieldLLCStreamDisable, (*Snapshot).DisableLLCStream, (*Snapshot).EnableLLCStream},
	}
	require.Len(t, Toggles(), len(toggles))
	for _, tt := range toggles {
		t.Run(tt.field.Name, func(t *testing.T) {
			var snap Snapshot
			assert.Equal(t, uint64(0), tt.disable(&snap))
			assert.Equal(t, uint64(1), snap.Get(tt.field))
			assert.Equal(t, uint64(1), tt.disable(&snap))
			assert.Equal(t, uint64(1), tt.enable(&snap))
			assert.Equal(t, uint64(0), snap.Get(tt.field))
			assert.Equal(t, uint64(0), tt.enable(&snap))
			// only the toggled bit changes
			var expected Snapshot
			assert.Equal(t, expected, snap)
		})
	}
}

func TestWriteAllReadAllRoundTrip(t *testing.T) {
	dev := newMemDevice(t)
	snap := Snapshot{
		0x0123_4567_89AB_CDEF,
		0xFEDC_BA98_7654_3210,
		0x1,
		0x8000_0000_0000_0000,
		0x00FF_00FF_00FF_00FF,
		0x3F,
	}
	require.NoError(t, WriteAll(dev, &snap))

	var got Snapshot
	require.NoError(t, ReadAll(dev, &got))
	assert.Equal(t, snap, got)

	// registers are stored little endian at their address
	buf := make([]byte, 8)
	_, err := dev.f.ReadAt(buf, MsrPrefetchControl*8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F, 0, 0, 0, 0, 0, 0, 0}, buf)
}

func TestReadAllOrder(t *testing.T) {
	dev := newFakeDevice()
	var snap Snapshot
	snap.SetL3XQ(3)
	snap.DisableL2AMP()
	require.NoError(t, WriteAll(dev, &snap))
	require.NoError(t, ReadAll(dev, &snap))
	assert.Equal(t, addresses(), dev.writes)
	assert.Equal(t, addresses(), dev.reads)
}

func TestReadAllStopsOnFailure(t *testing.T) {
	dev := newFakeDevice()
	for i, addr := range addresses() {
		dev.regs[addr] = uint64(i + 1)
	}
	dev.failAt = MsrAtomPrefTuning3

	snap := Snapshot{}
	err := ReadAll(dev, &snap)
	require.Error(t, err)
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, uint32(MsrAtomPrefTuning3), ioErr.Address)
	assert.ErrorIs(t, err, errInjected)
	assert.EqualError(t, err, "could not read MSR 0x1322: input/output error")
	// slots before the failure keep what was read
	assert.Equal(t, Snapshot{1, 2, 0, 0, 0, 0}, snap)
	assert.Equal(t, []int64{0x1320, 0x1321, 0x1322}, dev.reads)
}

func TestReadAllShortRead(t *testing.T) {
	dev := newFakeDevice()
	dev.failAt = MsrPrefetchControl
	dev.short = true
	var snap Snapshot
	err := ReadAll(dev, &snap)
	assert.EqualError(t, err, "could not read MSR 0x1A4: got 4 bytes")
}

func TestWriteAllStopsOnFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failAt = MsrAtomPrefTuning4
	snap := Snapshot{1, 2, 3, 4, 5, 6}
	err := WriteAll(dev, &snap)
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, uint32(MsrAtomPrefTuning4), ioErr.Address)
	// earlier writes are not rolled back, later ones never happen
	assert.Equal(t, []int64{0x1320, 0x1321, 0x1322}, dev.writes)
	assert.Equal(t, uint64(3), dev.regs[0x1322])
	_, found := dev.regs[MsrPrefetchControl]
	assert.False(t, found)

	dev.short = true
	err = WriteAll(dev, &snap)
	assert.EqualError(t, err, "could not write MSR 0x1323: wrote 2 bytes")
}
