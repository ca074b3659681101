package prefetch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"hwpf/internal/msr"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type UintSetFunc func(uint64, *msr.Snapshot)
type StringSetFunc func(string, *msr.Snapshot) error
type ValidationFunc func(cmd *cobra.Command) bool

// flagDefinition ties a command line flag to the snapshot change it requests.
// Flags without an apply function only affect how the command runs.
type flagDefinition struct {
	pflag                 *pflag.Flag
	apply                 func(cmd *cobra.Command, snap *msr.Snapshot) error
	validationFunc        ValidationFunc
	validationDescription string
}

// HasSetFunc reports whether setting the flag modifies a register
func (f *flagDefinition) HasSetFunc() bool {
	return f.apply != nil
}

func (f *flagDefinition) GetName() string {
	return f.pflag.Name
}

func (f *flagDefinition) GetValueAsString() string {
	return f.pflag.Value.String()
}

// changed reports whether the flag was given on the command line
func (f *flagDefinition) changed(cmd *cobra.Command) bool {
	return cmd.Flags().Lookup(f.GetName()).Changed
}

// newUintFlag adds a uint64 flag whose value is written to the snapshot
func newUintFlag(cmd *cobra.Command, name string, defaultValue uint64, setFunc UintSetFunc, help string, validationDescription string, validationFunc ValidationFunc) flagDefinition {
	cmd.Flags().Uint64(name, defaultValue, help)
	return flagDefinition{
		pflag: cmd.Flags().Lookup(name),
		apply: func(cmd *cobra.Command, snap *msr.Snapshot) error {
			value, err := cmd.Flags().GetUint64(name)
			if err != nil {
				return err
			}
			setFunc(value, snap)
			return nil
		},
		validationFunc:        validationFunc,
		validationDescription: validationDescription,
	}
}

// newStringFlag adds a string flag. When setFunc is nil the flag doesn't
// request a register change.
func newStringFlag(cmd *cobra.Command, name string, defaultValue string, setFunc StringSetFunc, help string, validationDescription string, validationFunc ValidationFunc) flagDefinition {
	cmd.Flags().String(name, defaultValue, help)
	f := flagDefinition{
		pflag:                 cmd.Flags().Lookup(name),
		validationFunc:        validationFunc,
		validationDescription: validationDescription,
	}
	if setFunc != nil {
		f.apply = func(cmd *cobra.Command, snap *msr.Snapshot) error {
			value, err := cmd.Flags().GetString(name)
			if err != nil {
				return err
			}
			if err := setFunc(value, snap); err != nil {
				return fmt.Errorf("failed to set %s to %s: %w", name, value, err)
			}
			return nil
		}
	}
	return f
}

func newBoolFlag(cmd *cobra.Command, name string, defaultValue bool, help string) flagDefinition {
	cmd.Flags().Bool(name, defaultValue, help)
	return flagDefinition{
		pflag: cmd.Flags().Lookup(name),
	}
}
