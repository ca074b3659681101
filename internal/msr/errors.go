package msr

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
)

// IoError reports a failed or short positioned read/write of one MSR.
type IoError struct {
	Op      string // "read" or "write"
	Address uint32
	Err     error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("could not %s MSR 0x%X: %v", e.Op, e.Address, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ResourceUnavailableError reports that the MSR device of a core could not
// be opened.
type ResourceUnavailableError struct {
	Path string
	Err  error
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("could not open MSR file %s: %v", e.Path, e.Err)
}

func (e *ResourceUnavailableError) Unwrap() error {
	return e.Err
}

// ProgrammingError is the panic value used when a caller breaks the PMU
// counter contract. It is not meant to be recovered.
type ProgrammingError struct {
	Requested int
	Max       int
}

func (e ProgrammingError) Error() string {
	return fmt.Sprintf("too many PMU events (%d), max is %d", e.Requested, e.Max)
}
