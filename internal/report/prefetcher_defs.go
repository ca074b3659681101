package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"hwpf/internal/msr"
)

// prefetcher_defs.go
// prefetchers are enabled when their disable bit is 0

type Prefetcher struct {
	ShortName string
	LongName  string
	FlagName  string
	Field     msr.Field
}

// PrefetcherDefs must stay in msr.Toggles() order
var PrefetcherDefs = []Prefetcher{
	{
		ShortName: "L1 IPP",
		LongName:  "L1 Instruction Pointer Prefetcher",
		FlagName:  "l1-ipp",
		Field:     msr.FieldL1IPPDisable,
	},
	{
		ShortName: "L1 NPP",
		LongName:  "L1 Next Page Prefetcher",
		FlagName:  "l1-npp",
		Field:     msr.FieldL1NPPDisable,
	},
	{
		ShortName: "L1 NLP",
		LongName:  "L1 Next Line Prefetcher",
		FlagName:  "l1-nlp",
		Field:     msr.FieldL1NLPDisable,
	},
	{
		ShortName: "L2 Stream",
		LongName:  "L2 Streaming Prefetcher",
		FlagName:  "l2-stream",
		Field:     msr.FieldL2StreamDisable,
	},
	{
		ShortName: "L2 AMP",
		LongName:  "L2 Adaptive Multipath Prefetcher",
		FlagName:  "l2-amp",
		Field:     msr.FieldL2AMPDisable,
	},
	{
		ShortName: "LLC Stream",
		LongName:  "LLC Streaming Prefetcher",
		FlagName:  "llc-stream",
		Field:     msr.FieldLLCStreamDisable,
	},
}

// Tuning is a numeric prefetcher threshold that can be set from the command line
type Tuning struct {
	LongName string
	FlagName string
	Field    msr.Field
}

// TuningDefs must stay in msr.Thresholds() order
var TuningDefs = []Tuning{
	{LongName: "L2 stream/AMP XQ threshold", FlagName: "l2-xq", Field: msr.FieldL2XQ},
	{LongName: "LLC stream XQ threshold", FlagName: "llc-xq", Field: msr.FieldL3XQ},
	{LongName: "L2 stream max distance", FlagName: "l2-max-dist", Field: msr.FieldL2MaxDist},
	{LongName: "LLC stream max distance", FlagName: "llc-max-dist", Field: msr.FieldL3MaxDist},
	{LongName: "low demand density L2/LLC XQ threshold", FlagName: "l2-llc-xq", Field: msr.FieldL2L3XQ},
	{LongName: "L2 stream demand density", FlagName: "l2-demand-density", Field: msr.FieldL2DemandDensity},
	{LongName: "LLC stream demand density", FlagName: "llc-demand-density", Field: msr.FieldL3DemandDensity},
	{LongName: "L1 homeless threshold", FlagName: "l1-homeless-threshold", Field: msr.FieldL1HomelessThreshold},
}

// PrefetcherStatus returns "Enabled" or "Disabled" for a disable bit value
func PrefetcherStatus(disableBit uint64) string {
	if disableBit == 0 {
		return "Enabled"
	}
	return "Disabled"
}
