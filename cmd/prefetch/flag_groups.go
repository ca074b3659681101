package prefetch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"

	"hwpf/internal/common"
	"hwpf/internal/msr"
	"hwpf/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagGroup - structure to hold a group of flags
// groups are used to organize the flags for display in the help message
type flagGroup struct {
	name  string
	flags []flagDefinition
}

// flagGroups - list of flag groups
// initialized by initializeFlags
// and used by the prefetch command
var flagGroups = []flagGroup{}

// flag group names
const (
	flagGroupGeneralName    = "General Options"
	flagGroupPrefetcherName = "Prefetcher Options"
	flagGroupTuningName     = "Prefetcher Tuning Options"
	flagGroupOtherName      = "Other Options"
)

// general flag names
const (
	flagCoresName   = common.FlagCoresName
	flagFormatName  = "format"
	flagVerboseName = "verbose"
)

// other flag names
const (
	flagNoSummaryName = "no-summary"
	flagRecordName    = "record"
)

// prefetcherOptions - list of valid prefetcher options
var prefetcherOptions = []string{"enable", "disable"}

// initializeFlags initializes the command line flags for the prefetch command
// the global flagGroups variable is used to store the flags
func initializeFlags(cmd *cobra.Command) {
	flagGroups = []flagGroup{}
	// general options
	group := flagGroup{name: flagGroupGeneralName, flags: []flagDefinition{}}
	group.flags = append(group.flags,
		newStringFlag(cmd, flagCoresName, "0", nil, "logical CPU(s) to operate on, e.g., 0-3,8", "a list of existing logical CPUs",
			func(cmd *cobra.Command) bool {
				value, _ := cmd.Flags().GetString(flagCoresName)
				_, err := common.ParseCores(value, numCPU())
				return err == nil
			}),
		newStringFlag(cmd, flagFormatName, report.FormatTxt, nil, "summary format ("+strings.Join(report.FormatOptions, ", ")+")", strings.Join(report.FormatOptions, ", "),
			func(cmd *cobra.Command) bool {
				value, _ := cmd.Flags().GetString(flagFormatName)
				return slices.Contains(report.FormatOptions, value)
			}),
		newBoolFlag(cmd, flagVerboseName, false, "include raw register values and every register field in the summary"),
	)
	flagGroups = append(flagGroups, group)
	// prefetcher options, one per disable bit
	group = flagGroup{name: flagGroupPrefetcherName, flags: []flagDefinition{}}
	for _, pref := range report.PrefetcherDefs {
		group.flags = append(group.flags,
			newStringFlag(cmd,
				pref.FlagName,
				"",
				func(value string, snap *msr.Snapshot) error {
					return setPrefetcher(value, snap, pref)
				},
				fmt.Sprintf("%s [MSR %s bit %s] (%s)", pref.LongName, pref.Field.Slot, pref.Field.Bits(), strings.Join(prefetcherOptions, ", ")),
				strings.Join(prefetcherOptions, ", "),
				func(cmd *cobra.Command) bool {
					value, _ := cmd.Flags().GetString(pref.FlagName)
					return slices.Contains(prefetcherOptions, value)
				},
			),
		)
	}
	flagGroups = append(flagGroups, group)
	// tuning options, one per numeric threshold
	group = flagGroup{name: flagGroupTuningName, flags: []flagDefinition{}}
	for _, tuning := range report.TuningDefs {
		group.flags = append(group.flags,
			newUintFlag(cmd,
				tuning.FlagName,
				0,
				func(value uint64, snap *msr.Snapshot) {
					snap.Set(tuning.Field, value)
				},
				fmt.Sprintf("%s, 0-%d [MSR %s bits %s]", tuning.LongName, tuning.Field.Max(), tuning.Field.Slot, tuning.Field.Bits()),
				fmt.Sprintf("0-%d", tuning.Field.Max()),
				func(cmd *cobra.Command) bool {
					value, _ := cmd.Flags().GetUint64(tuning.FlagName)
					return value <= tuning.Field.Max()
				},
			),
		)
	}
	flagGroups = append(flagGroups, group)
	// other options
	group = flagGroup{name: flagGroupOtherName, flags: []flagDefinition{}}
	group.flags = append(group.flags,
		newBoolFlag(cmd, flagNoSummaryName, false, "do not print configuration summary"),
		newBoolFlag(cmd, flagRecordName, false, "record the current configuration to a file to be restored later"),
	)
	flagGroups = append(flagGroups, group)

	cmd.SetUsageFunc(usageFunc)
}

// usageFunc prints the usage information for the command
func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Flags:")
	for _, group := range flagGroups {
		cmd.Printf("  %s:\n", group.name)
		for _, flag := range group.flags {
			cmd.Printf("    --%-24s %s\n", flag.GetName(), flag.pflag.Usage)
		}
	}

	cmd.Printf("\nSubcommands:\n")
	for _, subCmd := range cmd.Commands() {
		cmd.Printf("  %s: %s\n", subCmd.Name(), subCmd.Short)
	}

	cmd.Println("\nGlobal Flags:")
	cmd.Root().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if pf.DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
		}
		cmd.Printf("  --%-24s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

// validateFlags validates the command line flags for the prefetch command
// operates on the global flagGroups variable
func validateFlags(cmd *cobra.Command, args []string) error {
	for _, group := range flagGroups {
		for _, flag := range group.flags {
			if flag.changed(cmd) && flag.validationFunc != nil && !flag.validationFunc(cmd) {
				return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s %s, valid values are %s", flag.GetName(), flag.GetValueAsString(), flag.validationDescription))
			}
		}
	}
	return nil
}

// changeRequested reports whether any flag that modifies a register was set
func changeRequested(cmd *cobra.Command) bool {
	for _, group := range flagGroups {
		for _, flag := range group.flags {
			if flag.HasSetFunc() && flag.changed(cmd) {
				return true
			}
		}
	}
	return false
}

// applyFlags applies the requested changes to the snapshot, in flag order, and
// returns a description of each change
func applyFlags(cmd *cobra.Command, snap *msr.Snapshot) ([]string, error) {
	var applied []string
	for _, group := range flagGroups {
		for _, flag := range group.flags {
			if !flag.HasSetFunc() || !flag.changed(cmd) {
				continue
			}
			if err := flag.apply(cmd, snap); err != nil {
				return applied, err
			}
			applied = append(applied, fmt.Sprintf("set %s to %s", flag.GetName(), flag.GetValueAsString()))
		}
	}
	return applied, nil
}
