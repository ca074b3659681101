package prefetch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"hwpf/internal/common"
	"hwpf/internal/msr"
	"hwpf/internal/util"

	"gopkg.in/yaml.v2"
)

// recording is the content of a file written by --record
type recording struct {
	Version   string         `yaml:"version"`
	Timestamp string         `yaml:"timestamp"`
	Cores     []recordedCore `yaml:"cores"`
}

type recordedCore struct {
	Core      int                `yaml:"core"`
	Registers []recordedRegister `yaml:"registers"`
}

// register values are kept as hex strings so the file is readable
type recordedRegister struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Value   string `yaml:"value"`
}

func newRecordedCore(core int, snap *msr.Snapshot) recordedCore {
	rc := recordedCore{Core: core}
	for _, r := range msr.Registers() {
		rc.Registers = append(rc.Registers, recordedRegister{
			Name:    r.Name,
			Address: r.Slot.String(),
			Value:   fmt.Sprintf("0x%016X", snap[r.Slot]),
		})
	}
	return rc
}

// snapshot converts the recorded registers back to a snapshot. Every tracked
// register must be present exactly once.
func (rc recordedCore) snapshot() (msr.Snapshot, error) {
	var snap msr.Snapshot
	var found [msr.SlotCount]bool
	for _, reg := range rc.Registers {
		address, err := util.ParseHexUint64(reg.Address)
		if err != nil {
			return snap, fmt.Errorf("core %d: %w", rc.Core, err)
		}
		slot := msr.SlotCount
		for s := range msr.SlotCount {
			if uint64(s.Address()) == address {
				slot = s
				break
			}
		}
		if slot == msr.SlotCount {
			return snap, fmt.Errorf("core %d: unknown register address %s", rc.Core, reg.Address)
		}
		if found[slot] {
			return snap, fmt.Errorf("core %d: register %s recorded more than once", rc.Core, reg.Address)
		}
		value, err := util.ParseHexUint64(reg.Value)
		if err != nil {
			return snap, fmt.Errorf("core %d, register %s: %w", rc.Core, reg.Address, err)
		}
		snap[slot] = value
		found[slot] = true
	}
	var missing []string
	for s := range msr.SlotCount {
		if !found[s] {
			missing = append(missing, s.String())
		}
	}
	if len(missing) > 0 {
		return snap, fmt.Errorf("core %d: missing register(s) %s", rc.Core, strings.Join(missing, ", "))
	}
	return snap, nil
}

func writeRecording(appContext common.AppContext, cores []recordedCore) (string, error) {
	rec := recording{
		Version:   appContext.Version,
		Timestamp: appContext.Timestamp,
		Cores:     cores,
	}
	out, err := yaml.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recording: %w", err)
	}
	fileName := fmt.Sprintf("%s_%s_%s.yaml", common.AppName, cmdName, appContext.Timestamp)
	return common.WriteOutputFile(appContext.OutputDir, fileName, out)
}

func readRecording(path string) (recording, error) {
	var rec recording
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse file: %w", err)
	}
	seen := make(map[int]bool)
	for _, rc := range rec.Cores {
		if seen[rc.Core] {
			return rec, fmt.Errorf("core %d recorded more than once", rc.Core)
		}
		seen[rc.Core] = true
	}
	return rec, nil
}
