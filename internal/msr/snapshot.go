package msr

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

// Device is an opened MSR file. Offsets are MSR addresses.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// Snapshot mirrors the tracked registers of one core. Index i holds the
// value of the register in Slot i. A Snapshot is not safe for concurrent
// use.
type Snapshot [SlotCount]uint64

// disable bit values, a prefetcher is enabled when its disable bit is clear
const (
	disable = 1
	enable  = 0
)

func readMSR(dev Device, addr uint32) (uint64, error) {
	var buf [8]byte
	n, err := dev.ReadAt(buf[:], int64(addr))
	if n != len(buf) {
		if err == nil {
			err = fmt.Errorf("got %d bytes", n)
		}
		slog.Error("could not read MSR", slog.String("msr", fmt.Sprintf("0x%X", addr)), slog.String("error", err.Error()))
		return 0, &IoError{Op: "read", Address: addr, Err: err}
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeMSR(dev Device, addr uint32, val uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	n, err := dev.WriteAt(buf[:], int64(addr))
	if n != len(buf) {
		if err == nil {
			err = fmt.Errorf("wrote %d bytes", n)
		}
		slog.Error("could not write MSR", slog.String("msr", fmt.Sprintf("0x%X", addr)), slog.String("error", err.Error()))
		return &IoError{Op: "write", Address: addr, Err: err}
	}
	return nil
}

// ReadAll reads every tracked register into snap, in slot order. It stops at
// the first failure; slots read before the failure keep their new values.
func ReadAll(dev Device, snap *Snapshot) error {
	for slot := range SlotCount {
		val, err := readMSR(dev, slot.Address())
		if err != nil {
			return err
		}
		snap[slot] = val
	}
	return nil
}

// WriteAll writes every slot of snap to hardware, in slot order. It stops at
// the first failure. Registers already written are not restored.
func WriteAll(dev Device, snap *Snapshot) error {
	for slot := range SlotCount {
		if err := writeMSR(dev, slot.Address(), snap[slot]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of a field.
func (s *Snapshot) Get(f Field) uint64 {
	return f.Get(s[f.Slot])
}

// Set replaces a field. Values wider than the field are truncated.
func (s *Snapshot) Set(f Field, value uint64) {
	s[f.Slot] = f.Set(s[f.Slot], value)
}

// Toggle sets or clears a disable bit and returns the bit as it was before
// the call.
func (s *Snapshot) Toggle(f Field, disabled bool) uint64 {
	before := s.Get(f)
	if disabled {
		s.Set(f, disable)
	} else {
		s.Set(f, enable)
	}
	return before
}

// Toggles returns the prefetcher disable bits in the order they are
// presented to users.
func Toggles() []Field {
	return []Field{
		FieldL1IPPDisable,
		FieldL1NPPDisable,
		FieldL1NLPDisable,
		FieldL2StreamDisable,
		FieldL2AMPDisable,
		FieldLLCStreamDisable,
	}
}

// Thresholds returns the numeric tuning fields in the order they are
// presented to users.
func Thresholds() []Field {
	return []Field{
		FieldL2XQ,
		FieldL3XQ,
		FieldL2MaxDist,
		FieldL3MaxDist,
		FieldL2L3XQ,
		FieldL2DemandDensity,
		FieldL3DemandDensity,
		FieldL1HomelessThreshold,
	}
}

func (s *Snapshot) SetL2XQ(value uint64) { s.Set(FieldL2XQ, value) }
func (s *Snapshot) L2XQ() uint64         { return s.Get(FieldL2XQ) }

func (s *Snapshot) SetL3XQ(value uint64) { s.Set(FieldL3XQ, value) }
func (s *Snapshot) L3XQ() uint64         { return s.Get(FieldL3XQ) }

func (s *Snapshot) SetL2MaxDist(value uint64) { s.Set(FieldL2MaxDist, value) }
func (s *Snapshot) L2MaxDist() uint64         { return s.Get(FieldL2MaxDist) }

func (s *Snapshot) SetL3MaxDist(value uint64) { s.Set(FieldL3MaxDist, value) }
func (s *Snapshot) L3MaxDist() uint64         { return s.Get(FieldL3MaxDist) }

// SetL2L3XQ sets the low demand density L2/LLC XQ threshold.
func (s *Snapshot) SetL2L3XQ(value uint64) { s.Set(FieldL2L3XQ, value) }
func (s *Snapshot) L2L3XQ() uint64         { return s.Get(FieldL2L3XQ) }

func (s *Snapshot) SetL2DemandDensity(value uint64) { s.Set(FieldL2DemandDensity, value) }
func (s *Snapshot) L2DemandDensity() uint64         { return s.Get(FieldL2DemandDensity) }

func (s *Snapshot) SetL3DemandDensity(value uint64) { s.Set(FieldL3DemandDensity, value) }
func (s *Snapshot) L3DemandDensity() uint64         { return s.Get(FieldL3DemandDensity) }

func (s *Snapshot) SetL1HomelessThreshold(value uint64) { s.Set(FieldL1HomelessThreshold, value) }
func (s *Snapshot) L1HomelessThreshold() uint64         { return s.Get(FieldL1HomelessThreshold) }

// The Enable/Disable methods return the disable bit as it was before the
// call so the original hardware state can be restored later.

func (s *Snapshot) DisableL1IPP() uint64 { return s.Toggle(FieldL1IPPDisable, true) }
func (s *Snapshot) EnableL1IPP() uint64  { return s.Toggle(FieldL1IPPDisable, false) }

func (s *Snapshot) DisableL1NPP() uint64 { return s.Toggle(FieldL1NPPDisable, true) }
func (s *Snapshot) EnableL1NPP() uint64  { return s.Toggle(FieldL1NPPDisable, false) }

func (s *Snapshot) DisableL1NLP() uint64 { return s.Toggle(FieldL1NLPDisable, true) }
func (s *Snapshot) EnableL1NLP() uint64  { return s.Toggle(FieldL1NLPDisable, false) }

func (s *Snapshot) DisableL2Stream() uint64 { return s.Toggle(FieldL2StreamDisable, true) }
func (s *Snapshot) EnableL2Stream() uint64  { return s.Toggle(FieldL2StreamDisable, false) }

func (s *Snapshot) DisableL2AMP() uint64 { return s.Toggle(FieldL2AMPDisable, true) }
func (s *Snapshot) EnableL2AMP() uint64  { return s.Toggle(FieldL2AMPDisable, false) }

func (s *Snapshot) DisableLLCStream() uint64 { return s.Toggle(FieldLLCStreamDisable, true) }
func (s *Snapshot) EnableLLCStream() uint64  { return s.Toggle(FieldLLCStreamDisable, false) }
