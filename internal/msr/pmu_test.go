// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package msr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupCountersMax(t *testing.T) {
	dev := newFakeDevice()
	events := []uint64{0x43003c, 0x4300c0, 0x43412e, 0x43412e}
	require.Len(t, events, MaxCounters)
	require.NoError(t, SetupCounters(dev, events))
	assert.Equal(t, []int64{0x186, 0x187, 0x188, 0x189}, dev.writes)
	for i, event := range events {
		assert.Equal(t, event, dev.regs[int64(PerfEvtSel0+i)])
	}
}

func TestSetupCountersTooMany(t *testing.T) {
	dev := newFakeDevice()
	events := make([]uint64, MaxCounters+1)
	assert.PanicsWithValue(t, ProgrammingError{Requested: MaxCounters + 1, Max: MaxCounters}, func() {
		_ = SetupCounters(dev, events)
	})
	assert.Empty(t, dev.writes)
}

func TestSetupCountersWriteFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failAt = PerfEvtSel0 + 1
	err := SetupCounters(dev, []uint64{1, 2, 3})
	assert.EqualError(t, err, "could not write MSR 0x187: input/output error")
	assert.Equal(t, []int64{0x186}, dev.writes)
}

func TestReadCounters(t *testing.T) {
	dev := newMemDevice(t)
	for i := range MaxCounters {
		_, err := dev.WriteAt([]byte{byte(i + 1), 0, 0, 0, 0, 0, 0, 0x80}, int64(PMC0+i))
		require.NoError(t, err)
	}
	out := make([]uint64, MaxCounters)
	ReadCounters(dev, out)
	for i, v := range out {
		assert.Equal(t, uint64(0x8000_0000_0000_0000)|uint64(i+1), v)
	}
}

func TestReadCountersTooMany(t *testing.T) {
	dev := newFakeDevice()
	assert.PanicsWithError(t, "too many PMU events (5), max is 4", func() {
		ReadCounters(dev, make([]uint64, MaxCounters+1))
	})
	assert.Empty(t, dev.reads)
}

func TestReadCountersFailureIsFatal(t *testing.T) {
	dev := newFakeDevice()
	dev.failAt = PMC0 + 2
	out := make([]uint64, 3)
	assert.PanicsWithError(t, "could not read MSR 0xC3: input/output error", func() {
		ReadCounters(dev, out)
	})
}

func TestResetCounters(t *testing.T) {
	dev := newFakeDevice()
	dev.regs[PMC0] = 100
	dev.regs[PMC0+1] = 200
	require.NoError(t, ResetCounters(dev, 2))
	assert.Equal(t, uint64(0), dev.regs[PMC0])
	assert.Equal(t, uint64(0), dev.regs[PMC0+1])
	assert.Panics(t, func() { _ = ResetCounters(dev, MaxCounters+1) })
}
