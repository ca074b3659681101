// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package prefetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"hwpf/internal/common"
	"hwpf/internal/msr"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testTimestamp = "2026-01-02_03-04-05"

// memDevice keeps each register in its own 8 byte cell of an in-memory file
type memDevice struct {
	f afero.File
}

func (d memDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off*8)
}

func (d memDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off*8)
}

func (d memDevice) Close() error {
	return nil
}

func (d memDevice) snapshot(t *testing.T) msr.Snapshot {
	var snap msr.Snapshot
	require.NoError(t, msr.ReadAll(d, &snap))
	return snap
}

// setupDevices replaces the MSR devices with in-memory ones holding the given
// register values. Cores without an entry fail to open.
func setupDevices(t *testing.T, initial map[int]msr.Snapshot) map[int]memDevice {
	memFs := afero.NewMemMapFs()
	devices := make(map[int]memDevice)
	for core, snap := range initial {
		f, err := memFs.Create(fmt.Sprintf(msr.DevicePathTemplate, core))
		require.NoError(t, err)
		require.NoError(t, f.Truncate(0x2000*8))
		dev := memDevice{f: f}
		require.NoError(t, msr.WriteAll(dev, &snap))
		devices[core] = dev
	}
	origOpen, origSysfs, origCPUInfo, origNumCPU := openDevice, sysfsRoot, cpuInfoPath, numCPU
	openDevice = func(core int) (coreDevice, error) {
		dev, ok := devices[core]
		if !ok {
			return nil, &msr.ResourceUnavailableError{Path: fmt.Sprintf(msr.DevicePathTemplate, core), Err: os.ErrNotExist}
		}
		return dev, nil
	}
	sysfsRoot = t.TempDir()
	cpuInfoPath = filepath.Join(t.TempDir(), "cpuinfo")
	numCPU = func() int { return 16 }
	t.Cleanup(func() {
		openDevice, sysfsRoot, cpuInfoPath, numCPU = origOpen, origSysfs, origCPUInfo, origNumCPU
	})
	return devices
}

// execute runs cmd as a subcommand of a fresh root command
func execute(outputDir string, cmd *cobra.Command, args ...string) (string, error) {
	root := &cobra.Command{Use: "hwpf", SilenceErrors: true}
	root.AddCommand(cmd)
	root.SetContext(context.WithValue(context.Background(), common.AppContext{}, common.AppContext{
		Timestamp: testTimestamp,
		OutputDir: outputDir,
		Version:   "1.2.3",
	}))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.Execute()
	return out.String(), err
}

func runPrefetch(outputDir string, args ...string) (string, error) {
	cmd := &cobra.Command{
		Use:           cmdName,
		RunE:          runCmd,
		PreRunE:       validateFlags,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
	}
	initializeFlags(cmd)
	return execute(outputDir, cmd, args...)
}

func runRestore(outputDir string, args ...string) (string, error) {
	cmd := &cobra.Command{
		Use:           restoreCmdName + " <file>",
		RunE:          runRestoreCmd,
		PreRunE:       validateRestoreFlags,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}
	initializeRestoreFlags(cmd)
	return execute(outputDir, cmd, args...)
}
