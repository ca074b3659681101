package msr

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
)

// Core PMU general purpose counters
const (
	MaxCounters = 4
	PerfEvtSel0 = 0x186 // IA32_PERFEVTSEL0
	PMC0        = 0xc1  // IA32_PMC0
)

func checkCounterCount(n int) {
	if n > MaxCounters {
		err := ProgrammingError{Requested: n, Max: MaxCounters}
		slog.Error(err.Error())
		panic(err)
	}
}

// SetupCounters writes one event-select value per counter, starting at
// IA32_PERFEVTSEL0. Passing more than MaxCounters events is a programming
// error and panics before anything is written.
func SetupCounters(dev Device, events []uint64) error {
	checkCounterCount(len(events))
	for i, event := range events {
		if err := writeMSR(dev, PerfEvtSel0+uint32(i), event); err != nil {
			return err
		}
	}
	return nil
}

// ReadCounters fills out with the counters starting at IA32_PMC0. Asking for
// more than MaxCounters counters panics, as does a failed read.
func ReadCounters(dev Device, out []uint64) {
	checkCounterCount(len(out))
	for i := range out {
		val, err := readMSR(dev, PMC0+uint32(i))
		if err != nil {
			panic(err)
		}
		out[i] = val
	}
}

// ResetCounters zeroes the first n counters.
func ResetCounters(dev Device, n int) error {
	checkCounterCount(n)
	for i := range n {
		if err := writeMSR(dev, PMC0+uint32(i), 0); err != nil {
			return err
		}
	}
	return nil
}
