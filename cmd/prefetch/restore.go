package prefetch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"hwpf/internal/common"
	"hwpf/internal/msr"
	"hwpf/internal/util"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const restoreCmdName = "restore"

var restoreExamples = []string{
	fmt.Sprintf("  Restore recorded prefetcher settings:          $ %s %s %s %s_%s_2025-01-02_15-04-05.yaml", common.AppName, cmdName, restoreCmdName, common.AppName, cmdName),
	fmt.Sprintf("  Restore without confirmation:                  $ %s %s %s recorded.yaml --yes", common.AppName, cmdName, restoreCmdName),
}

var RestoreCmd = &cobra.Command{
	Use:   restoreCmdName + " <file>",
	Short: "Restore prefetcher settings from a previously recorded file",
	Long: `Restores prefetcher registers from a file that was previously recorded using the --record flag.

Every recorded register of every recorded core is written back. By default, you will be prompted to confirm before applying changes.`,
	Example:       strings.Join(restoreExamples, "\n"),
	RunE:          runRestoreCmd,
	PreRunE:       validateRestoreFlags,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
}

const (
	flagRestoreYesName = "yes"
)

func init() {
	Cmd.AddCommand(RestoreCmd)
	initializeRestoreFlags(RestoreCmd)
}

func initializeRestoreFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(flagRestoreYesName, false, "skip confirmation prompt")
	cmd.SetUsageFunc(restoreUsageFunc)
}

// stdin is read for the confirmation prompt
var (
	stdin      io.Reader = os.Stdin
	isTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

func restoreUsageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s <file> [flags]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Arguments:")
	cmd.Printf("  file: path to the file written by --record\n\n")
	cmd.Println("Flags:")
	cmd.Print("  General Options:\n")
	cmd.Printf("    --%-20s %s\n", flagRestoreYesName, "skip confirmation prompt")

	cmd.Println("\nGlobal Flags:")
	cmd.Root().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if pf.DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

func validateRestoreFlags(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return common.FlagValidationError(cmd, "restore requires exactly one argument: the path to the recorded file")
	}
	filePath := args[0]
	if !util.FileOrDirectoryExists(filePath) {
		return common.FlagValidationError(cmd, fmt.Sprintf("recorded file does not exist: %s", filePath))
	}
	yes, _ := cmd.Flags().GetBool(flagRestoreYesName)
	if !yes && !isTerminal() {
		return common.FlagValidationError(cmd, fmt.Sprintf("stdin is not a terminal, use --%s to restore without confirmation", flagRestoreYesName))
	}
	return nil
}

func runRestoreCmd(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	rec, err := readRecording(filePath)
	if err != nil {
		return common.RuntimeError(cmd, fmt.Errorf("failed to parse recorded file: %v", err))
	}
	if len(rec.Cores) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded cores found in file.")
		return nil
	}
	// convert everything before writing anything
	snapshots := make([]msr.Snapshot, len(rec.Cores))
	for i, rc := range rec.Cores {
		if snapshots[i], err = rc.snapshot(); err != nil {
			return common.RuntimeError(cmd, err)
		}
	}
	// show what will be restored
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Prefetcher settings to restore from %s (recorded %s):\n", filePath, rec.Timestamp)
	for _, rc := range rec.Cores {
		fmt.Fprintf(out, "  core %d:\n", rc.Core)
		for _, reg := range rc.Registers {
			fmt.Fprintf(out, "    %-18s %-7s %s\n", reg.Name, reg.Address, reg.Value)
		}
	}
	fmt.Fprintln(out)
	// prompt for confirmation unless --yes was specified
	if yes, _ := cmd.Flags().GetBool(flagRestoreYesName); !yes {
		fmt.Fprint(out, "Apply these prefetcher settings? [y/N]: ")
		reader := bufio.NewReader(stdin)
		response, err := reader.ReadString('\n')
		if err != nil && response == "" {
			return common.RuntimeError(cmd, fmt.Errorf("failed to read user input: %v", err))
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Restore cancelled.")
			return nil
		}
	}
	var failedCores []int
	for i, rc := range rec.Cores {
		if err := restoreCore(rc.Core, &snapshots[i]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: core %d: %v\n", rc.Core, err)
			slog.Error(err.Error(), slog.Int("core", rc.Core))
			failedCores = append(failedCores, rc.Core)
			continue
		}
		fmt.Fprintf(out, "  ✓ Restored core %d\n", rc.Core)
	}
	if len(failedCores) > 0 {
		err := fmt.Errorf("failed to restore %d of %d core(s)", len(failedCores), len(rec.Cores))
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	return nil
}

// restoreCore writes a recorded snapshot to a core and reads it back
func restoreCore(core int, snap *msr.Snapshot) error {
	dev, err := openDevice(core)
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := msr.WriteAll(dev, snap); err != nil {
		return fmt.Errorf("failed to write prefetcher registers: %w", err)
	}
	var readBack msr.Snapshot
	if err := msr.ReadAll(dev, &readBack); err != nil {
		return fmt.Errorf("failed to read back prefetcher registers: %w", err)
	}
	for s := range msr.SlotCount {
		if readBack[s] != snap[s] {
			slog.Warn("register differs after restore", slog.Int("core", core), slog.String("msr", s.String()),
				slog.String("wrote", fmt.Sprintf("0x%X", snap[s])), slog.String("read", fmt.Sprintf("0x%X", readBack[s])))
		}
	}
	slog.Info("restored prefetcher registers", slog.Int("core", core))
	return nil
}
