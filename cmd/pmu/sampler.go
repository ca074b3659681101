package pmu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"time"

	"hwpf/internal/msr"
)

// general purpose counters are 48 bits wide and wrap
const counterMask = uint64(1)<<48 - 1

// sample holds the counter increments of one interval
type sample struct {
	Core         int
	Index        int
	Events       []uint64
	Deltas       []uint64
	Interval     time.Duration
	MetricNames  []string
	MetricValues []float64
}

type sampler struct {
	dev      msr.Device
	core     int
	events   []uint64
	metrics  []metricDefinition
	previous []uint64
	last     time.Time
	count    int
	now      func() time.Time
}

func newSampler(dev msr.Device, core int, events []uint64, metrics []metricDefinition, now func() time.Time) *sampler {
	return &sampler{
		dev:     dev,
		core:    core,
		events:  events,
		metrics: metrics,
		now:     now,
	}
}

// start programs the counters, optionally zeroes them, and takes the baseline
// reading that the first sample is measured against
func (s *sampler) start(reset bool) error {
	if err := msr.SetupCounters(s.dev, s.events); err != nil {
		return fmt.Errorf("failed to program counters: %w", err)
	}
	if reset {
		if err := msr.ResetCounters(s.dev, len(s.events)); err != nil {
			return fmt.Errorf("failed to reset counters: %w", err)
		}
	}
	s.previous = make([]uint64, len(s.events))
	if err := readCounters(s.dev, s.previous); err != nil {
		return err
	}
	s.last = s.now()
	return nil
}

// next reads the counters and returns the increments since the previous read
func (s *sampler) next() (*sample, error) {
	current := make([]uint64, len(s.events))
	if err := readCounters(s.dev, current); err != nil {
		return nil, err
	}
	now := s.now()
	s.count++
	smp := &sample{
		Core:     s.core,
		Index:    s.count,
		Events:   s.events,
		Deltas:   make([]uint64, len(current)),
		Interval: now.Sub(s.last),
	}
	parameters := map[string]any{intervalVariable: smp.Interval.Seconds()}
	for i := range current {
		smp.Deltas[i] = (current[i] - s.previous[i]) & counterMask
		parameters[counterVariable(i)] = float64(smp.Deltas[i])
	}
	for _, metric := range s.metrics {
		smp.MetricNames = append(smp.MetricNames, metric.Name)
		smp.MetricValues = append(smp.MetricValues, metric.evaluate(parameters))
	}
	s.previous = current
	s.last = now
	return smp, nil
}

// readCounters turns a failed counter read into an error so the command can
// report it and exit cleanly
func readCounters(dev msr.Device, out []uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ioErr, ok := r.(*msr.IoError)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("failed to read counters: %w", ioErr)
		}
	}()
	msr.ReadCounters(dev, out)
	return nil
}
