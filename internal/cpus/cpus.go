// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package cpus identifies whether a logical CPU is an Atom (E-core) or a Core
// (P-core) using sysfs and /proc/cpuinfo. The result is a hint, the prefetch
// registers are accessed regardless.
package cpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"hwpf/internal/util"
)

const IntelVendor = "GenuineIntel"

var IntelFamilies = []int{6, 19}

// Core types
const (
	CoreTypeAtom    = "atom"
	CoreTypeCore    = "core"
	CoreTypeUnknown = "unknown"
)

// SysfsRoot holds the per-PMU directories of hybrid parts, e.g.,
// /sys/devices/cpu_atom/cpus
const SysfsRoot = "/sys/devices"

// CPUInfoPath is read when sysfs has no hybrid topology
const CPUInfoPath = "/proc/cpuinfo"

// atomModels are family 6 models whose cores are all Atom cores
var atomModels = map[int]string{
	0x86: "SNR", // Snow Ridge
	0x96: "EHL", // Elkhart Lake
	0x9c: "JSL", // Jasper Lake
	0xaf: "SRF", // Sierra Forest
	0xb6: "GRR", // Grand Ridge
	0xbe: "ADL-N",
	0xdd: "CWF", // Clearwater Forest
}

// IsIntelCPUFamily checks if the CPU family corresponds to Intel CPUs.
func IsIntelCPUFamily(family int) bool {
	return slices.Contains(IntelFamilies, family)
}

// IsAtomModel reports whether every core of the given family 6 model is an
// Atom core.
func IsAtomModel(family, model int) bool {
	if family != 6 {
		return false
	}
	_, ok := atomModels[model]
	return ok
}

// CoreType returns CoreTypeAtom or CoreTypeCore when the sysfs hybrid PMU
// directories under root list the core, CoreTypeUnknown otherwise.
func CoreType(root string, core int) string {
	for _, coreType := range []string{CoreTypeAtom, CoreTypeCore} {
		path := filepath.Join(root, "cpu_"+coreType, "cpus")
		list, err := readCPUList(path)
		if err != nil {
			slog.Debug("no hybrid cpu list", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if slices.Contains(list, core) {
			return coreType
		}
	}
	return CoreTypeUnknown
}

func readCPUList(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list := strings.TrimSpace(string(data))
	if list == "" {
		return nil, nil
	}
	return util.SelectiveIntRangeToIntList(list)
}

// ParseCPUInfo returns the vendor, family and model of the first processor
// listed in /proc/cpuinfo formatted input.
func ParseCPUInfo(r io.Reader) (vendor string, family int, model int, err error) {
	familyFound, modelFound := false, false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "vendor_id":
			if vendor == "" {
				vendor = value
			}
		case "cpu family":
			if !familyFound {
				if family, err = strconv.Atoi(value); err != nil {
					return
				}
				familyFound = true
			}
		case "model":
			if !modelFound {
				if model, err = strconv.Atoi(value); err != nil {
					return
				}
				modelFound = true
			}
		}
		if vendor != "" && familyFound && modelFound {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	err = fmt.Errorf("cpu family and model not found")
	return
}

// Identify returns the core type of a core, using the sysfs hybrid topology
// when available and the CPU model otherwise.
func Identify(sysfsRoot string, cpuInfoPath string, core int) string {
	if coreType := CoreType(sysfsRoot, core); coreType != CoreTypeUnknown {
		return coreType
	}
	f, err := os.Open(cpuInfoPath)
	if err != nil {
		slog.Debug("failed to open cpuinfo", slog.String("path", cpuInfoPath), slog.String("error", err.Error()))
		return CoreTypeUnknown
	}
	defer f.Close()
	vendor, family, model, err := ParseCPUInfo(f)
	if err != nil {
		slog.Debug("failed to parse cpuinfo", slog.String("error", err.Error()))
		return CoreTypeUnknown
	}
	if vendor != IntelVendor || !IsIntelCPUFamily(family) {
		return CoreTypeUnknown
	}
	if IsAtomModel(family, model) {
		return CoreTypeAtom
	}
	return CoreTypeUnknown
}
