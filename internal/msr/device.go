package msr

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DevicePathTemplate is the location of the per-core MSR device exposed by
// the msr kernel module.
const DevicePathTemplate = "/dev/cpu/%d/msr"

// File is an opened MSR device. ReadAt and WriteAt pass the offset to the
// kernel with each call, so a File may be shared between goroutines.
type File struct {
	fd   int
	path string
}

// Open opens the MSR device of a core for reading and writing.
func Open(core int) (*File, error) {
	return OpenPath(fmt.Sprintf(DevicePathTemplate, core))
}

// OpenPath opens an MSR device, or a file standing in for one, for reading
// and writing.
func OpenPath(path string) (*File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(&ResourceUnavailableError{Path: path, Err: err}, "MSR device unavailable, load the msr module and run as root")
	}
	return &File{fd: fd, path: path}, nil
}

// Name returns the path the File was opened from.
func (f *File) Name() string {
	return f.path
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := unix.Pread(f.fd, p, off)
	if n < 0 {
		n = 0
	}
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	n, err := unix.Pwrite(f.fd, p, off)
	if n < 0 {
		n = 0
	}
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Close releases the device.
func (f *File) Close() error {
	return unix.Close(f.fd)
}

func validate(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, fmt.Sprintf("MSR modules aren't loaded at %s, please load them using modprobe msr command", path))
	}
	return nil
}

// ValidateModule checks that the MSR device of a core exists.
func ValidateModule(core int) error {
	return validate(fmt.Sprintf(DevicePathTemplate, core))
}
