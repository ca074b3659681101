// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package msr

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msr")
	require.NoError(t, os.WriteFile(path, make([]byte, 0x2000), 0600))

	dev, err := OpenPath(path)
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, path, dev.Name())

	// a regular file is byte addressed, so only use registers that are far
	// enough apart not to overlap
	require.NoError(t, writeMSR(dev, MsrPrefetchControl, 0x2f))
	require.NoError(t, writeMSR(dev, MsrAtomPrefTuning1, 0x8000_0000_0000_0001))
	val, err := readMSR(dev, MsrPrefetchControl)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2f), val)
	val, err = readMSR(dev, MsrAtomPrefTuning1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000_0000_0000_0001), val)
}

func TestReadPastEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msr")
	require.NoError(t, os.WriteFile(path, make([]byte, 0x1000), 0600))
	dev, err := OpenPath(path)
	require.NoError(t, err)
	defer dev.Close()

	var snap Snapshot
	err = ReadAll(dev, &snap)
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, uint32(0x1320), ioErr.Address)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenPathMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu", "2", "msr")
	_, err := OpenPath(path)
	require.Error(t, err)
	var resErr *ResourceUnavailableError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, path, resErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "load the msr module")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	msrExists := filepath.Join(dir, "msr")
	require.NoError(t, os.WriteFile(msrExists, nil, 0600))
	require.NoError(t, validate(msrExists))

	noExistingMSR := filepath.Join(dir, "missing")
	err := validate(noExistingMSR)
	require.EqualError(t, err, "MSR modules aren't loaded at "+noExistingMSR+", please load them using modprobe msr command: stat "+noExistingMSR+": no such file or directory")
}
