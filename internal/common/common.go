// Package common defines data structures and functions that are used by multiple
// application commands, e.g., prefetch, pmu.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hwpf/internal/util"

	"github.com/spf13/cobra"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp string // Timestamp is the time the application started, used in output file names.
	OutputDir string // OutputDir is the directory where the application will write output files.
	Version   string // Version is the version of the application.
}

// GetAppContext returns the AppContext stored on the root command's context
func GetAppContext(cmd *cobra.Command) AppContext {
	return cmd.Root().Context().Value(AppContext{}).(AppContext)
}

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	err := util.CreateDirectoryIfNotExists(outputDir, 0755) // #nosec G301
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteOutputFile writes bytes to a file in the output directory, creating the
// directory if needed, and returns the file's path.
func WriteOutputFile(outputDir string, fileName string, data []byte) (string, error) {
	if err := CreateOutputDir(outputDir); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, fileName)
	err := os.WriteFile(path, data, 0644) // #nosec G306
	if err != nil {
		err = fmt.Errorf("failed to write output file: %v", err)
		slog.Error(err.Error())
		return "", err
	}
	return path, nil
}

// IsRoot reports whether the process can access MSR devices without sudo
func IsRoot() bool {
	return os.Geteuid() == 0
}

func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}

// RuntimeError reports an error that occurred after flags were validated
func RuntimeError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	cmd.SilenceUsage = true
	return err
}
