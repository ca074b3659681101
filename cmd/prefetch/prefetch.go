// Package prefetch is a subcommand of the root command. It views and modifies
// the hardware prefetcher settings of Atom cores.
package prefetch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hwpf/internal/common"
	"hwpf/internal/cpus"
	"hwpf/internal/msr"
	"hwpf/internal/report"
	"hwpf/internal/util"

	"github.com/spf13/cobra"
)

const cmdName = "prefetch"

var examples = []string{
	fmt.Sprintf("  View prefetcher settings of core 0:           $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Disable the L2 AMP on cores 8-15:             $ %s %s --cores 8-15 --l2-amp disable", common.AppName, cmdName),
	fmt.Sprintf("  Set thresholds and record the prior values:   $ %s %s --l2-max-dist 16 --llc-xq 8 --record", common.AppName, cmdName),
	fmt.Sprintf("  Write every register field to a spreadsheet:  $ %s %s --cores 0-3 --verbose --format xlsx", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:   cmdName,
	Short: "View and modify Atom core prefetcher settings",
	Long: `Reads the prefetcher control and tuning MSRs of the selected cores, applies the requested changes, and writes them back.

USE CAUTION! Changing prefetcher settings affects performance of everything running on the selected cores. Use --record to save the current settings so they can be restored later.`,
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

func init() {
	initializeFlags(Cmd)
}

// coreDevice is an opened per-core MSR device
type coreDevice interface {
	msr.Device
	Close() error
}

var openDevice = func(core int) (coreDevice, error) {
	if err := msr.ValidateModule(core); err != nil {
		return nil, err
	}
	f, err := msr.Open(core)
	if err != nil {
		return nil, err
	}
	slog.Debug("opened MSR device", slog.String("path", f.Name()))
	return f, nil
}

// locations used to identify the core type
var (
	sysfsRoot   = cpus.SysfsRoot
	cpuInfoPath = cpus.CPUInfoPath
)

var numCPU = common.NumCPU

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	coresArg, _ := cmd.Flags().GetString(flagCoresName)
	cores, err := common.ParseCores(coresArg, numCPU())
	if err != nil {
		return common.RuntimeError(cmd, err)
	}
	if !common.IsRoot() {
		slog.Warn("not running as root, MSR access will likely fail")
	}
	changes := changeRequested(cmd)
	slog.Info("processing cores", slog.String("cores", strings.Join(util.IntSliceToStringSlice(cores), ",")), slog.Bool("changes", changes))
	var recorded []recordedCore
	var failedCores []int
	for _, core := range cores {
		before, err := processCore(cmd, appContext, core, changes)
		if before != nil {
			recorded = append(recorded, newRecordedCore(core, before))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: core %d: %v\n", core, err)
			slog.Error(err.Error(), slog.Int("core", core))
			failedCores = append(failedCores, core)
		}
	}
	if record, _ := cmd.Flags().GetBool(flagRecordName); record && len(recorded) > 0 {
		path, err := writeRecording(appContext, recorded)
		if err != nil {
			return common.RuntimeError(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration recorded to: %s\n", path)
	}
	if !changes {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes requested.")
	}
	if len(failedCores) > 0 {
		err := fmt.Errorf("failed on %d of %d core(s)", len(failedCores), len(cores))
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	return nil
}

// processCore reads the registers of one core, prints them, applies the
// requested changes and prints the result. It returns the register values
// read before any change, or nil if they could not be read.
func processCore(cmd *cobra.Command, appContext common.AppContext, core int, changes bool) (*msr.Snapshot, error) {
	if coreType := cpus.Identify(sysfsRoot, cpuInfoPath, core); coreType == cpus.CoreTypeCore {
		fmt.Fprintf(os.Stderr, "Warning: core %d is not an Atom core, its prefetcher registers may have a different layout\n", core)
		slog.Warn("core is not an Atom core", slog.Int("core", core))
	}
	dev, err := openDevice(core)
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	var snap msr.Snapshot
	if err := msr.ReadAll(dev, &snap); err != nil {
		return nil, fmt.Errorf("failed to read prefetcher registers, is core %d an Atom core?: %w", core, err)
	}
	before := snap
	noSummary, _ := cmd.Flags().GetBool(flagNoSummaryName)
	if !noSummary {
		if err := printSummary(cmd, appContext, core, &snap, "before"); err != nil {
			return &before, err
		}
	}
	if !changes {
		return &before, nil
	}
	applied, err := applyFlags(cmd, &snap)
	if err != nil {
		return &before, err
	}
	if err := msr.WriteAll(dev, &snap); err != nil {
		return &before, fmt.Errorf("failed to write prefetcher registers: %w", err)
	}
	fmt.Fprintf(os.Stderr, "core %d configuration update complete: %s\n", core, strings.Join(applied, ", "))
	slog.Info("configuration update complete", slog.Int("core", core), slog.String("changes", strings.Join(applied, ", ")))
	// read back, the hardware may ignore some bits
	if err := msr.ReadAll(dev, &snap); err != nil {
		return &before, fmt.Errorf("failed to read back prefetcher registers: %w", err)
	}
	if !noSummary {
		if err := printSummary(cmd, appContext, core, &snap, "after"); err != nil {
			return &before, err
		}
	}
	return &before, nil
}

// printSummary renders the summary tables of a core. Spreadsheets are written
// to the output directory, other formats to stdout.
func printSummary(cmd *cobra.Command, appContext common.AppContext, core int, snap *msr.Snapshot, stage string) error {
	format, _ := cmd.Flags().GetString(flagFormatName)
	verbose, _ := cmd.Flags().GetBool(flagVerboseName)
	out, err := report.Create(format, report.SnapshotTables(core, snap, verbose))
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	if format == report.FormatXlsx {
		fileName := fmt.Sprintf("%s_%s_core%d_%s.%s", common.AppName, cmdName, core, stage, report.FormatXlsx)
		path, err := common.WriteOutputFile(appContext.OutputDir, fileName, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Core %d summary (%s changes): %s\n", core, stage, path)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// setPrefetcher sets the disable bit of a prefetcher, note: 0 is enable, 1 is disable
func setPrefetcher(enableDisable string, snap *msr.Snapshot, pref report.Prefetcher) error {
	var previous uint64
	switch enableDisable {
	case prefetcherOptions[0]:
		previous = snap.Toggle(pref.Field, false)
	case prefetcherOptions[1]:
		previous = snap.Toggle(pref.Field, true)
	default:
		return fmt.Errorf("invalid prefetcher setting: %s", enableDisable)
	}
	slog.Debug("prefetcher set", slog.String("prefetcher", pref.ShortName), slog.String("was", report.PrefetcherStatus(previous)), slog.String("now", enableDisable))
	return nil
}
