package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"runtime"
	"slices"

	"hwpf/internal/util"
)

const FlagCoresName = "cores"

// ParseCores expands a core list, e.g., "0-3,8", into sorted, unique core
// numbers. Each core must be lower than numCPU, when numCPU is positive.
func ParseCores(input string, numCPU int) ([]int, error) {
	if input == "" {
		return nil, fmt.Errorf("core list is empty")
	}
	list, err := util.SelectiveIntRangeToIntList(input)
	if err != nil {
		return nil, fmt.Errorf("invalid core list %q: %w", input, err)
	}
	var cores []int
	for _, core := range list {
		if numCPU > 0 && core >= numCPU {
			return nil, fmt.Errorf("core %d does not exist, this system has %d logical CPUs", core, numCPU)
		}
		cores = util.UniqueAppend(cores, core)
	}
	slices.Sort(cores)
	return cores, nil
}

// NumCPU returns the number of logical CPUs on the local system
func NumCPU() int {
	return runtime.NumCPU()
}
