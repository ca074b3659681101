// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"hwpf/cmd"
)

// startProfiling writes cpu.prof and, when the returned function is called,
// mem.prof to the working directory
func startProfiling() func() {
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		panic(err)
	}
	return func() {
		pprof.StopCPUProfile()
		cpuFile.Close()
		memFile, err := os.Create("mem.prof")
		if err != nil {
			panic(err)
		}
		defer memFile.Close()
		if err := pprof.WriteHeapProfile(memFile); err != nil {
			panic(err)
		}
		fmt.Fprintln(os.Stderr, "Profiling data written to cpu.prof and mem.prof, analyze with: go tool pprof -http=:8080 cpu.prof")
	}
}

func main() {
	// profile only if the environment variable is set
	if os.Getenv("HWPF_PROFILE") != "" {
		stop := startProfiling()
		defer stop()
	}
	cmd.Execute()
}
