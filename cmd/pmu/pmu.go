// Package pmu is a subcommand of the root command. It programs the general
// purpose PMU counters of one core and samples them periodically.
package pmu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hwpf/internal/common"
	"hwpf/internal/msr"
	"hwpf/internal/util"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const cmdName = "pmu"

var examples = []string{
	fmt.Sprintf("  Count instructions and cycles on core 2:      $ %s %s --core 2 --events 0x4300c0,0x43003c", common.AppName, cmdName),
	fmt.Sprintf("  Derive IPC every 5 seconds, 12 times:         $ %s %s --events 0x4300c0,0x43003c --metric ipc=c0/c1 --interval 5 --count 12", common.AppName, cmdName),
	fmt.Sprintf("  Publish counters to Prometheus:               $ %s %s --events 0x4300c0 --prometheus-server :9090", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:   cmdName,
	Short: "Sample the general purpose PMU counters of a core",
	Long: fmt.Sprintf(`Programs up to %d general purpose PMU counters with raw event-select values and prints the
counter increments of each sample interval. Derived metrics may be defined over the increments.`, msr.MaxCounters),
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

const (
	flagCoreName             = "core"
	flagEventsName           = "events"
	flagIntervalName         = "interval"
	flagCountName            = "count"
	flagMetricName           = "metric"
	flagNoResetName          = "no-reset"
	flagPrometheusServerName = "prometheus-server"
)

func init() {
	initializeFlags(Cmd)
}

func initializeFlags(cmd *cobra.Command) {
	cmd.Flags().Int(flagCoreName, 0, "logical CPU to sample")
	cmd.Flags().String(flagEventsName, "", fmt.Sprintf("comma separated raw IA32_PERFEVTSEL values, at most %d, e.g., 0x4300c0,0x43003c", msr.MaxCounters))
	cmd.Flags().Int(flagIntervalName, 1, "number of seconds between samples")
	cmd.Flags().Int(flagCountName, 0, "number of samples to take, 0 samples until interrupted")
	cmd.Flags().StringArray(flagMetricName, nil, "derived metric, name=expression, using c0-c3 for counter increments and interval for seconds (repeatable)")
	cmd.Flags().Bool(flagNoResetName, false, "do not zero the counters before sampling")
	cmd.Flags().String(flagPrometheusServerName, "", "address (e.g., :9090) to serve the latest sample as Prometheus metrics")
	_ = cmd.MarkFlagRequired(flagEventsName)
}

// parseEvents parses the event list, rejecting duplicates and lists longer
// than the number of counters
func parseEvents(input string) ([]uint64, error) {
	events, err := util.HexListToUint64List(input)
	if err != nil {
		return nil, err
	}
	seen := mapset.NewSet[uint64]()
	for _, event := range events {
		if !seen.Add(event) {
			return nil, fmt.Errorf("event %s specified more than once", formatEvent(event))
		}
	}
	if len(events) > msr.MaxCounters {
		return nil, fmt.Errorf("too many events (%d), max is %d", len(events), msr.MaxCounters)
	}
	return events, nil
}

func formatEvent(event uint64) string {
	return fmt.Sprintf("0x%x", event)
}

func validateFlags(cmd *cobra.Command, args []string) error {
	core, _ := cmd.Flags().GetInt(flagCoreName)
	if core < 0 || core >= numCPU() {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s %d, valid values are 0-%d", flagCoreName, core, numCPU()-1))
	}
	eventsArg, _ := cmd.Flags().GetString(flagEventsName)
	events, err := parseEvents(eventsArg)
	if err != nil {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s %s: %v", flagEventsName, eventsArg, err))
	}
	if interval, _ := cmd.Flags().GetInt(flagIntervalName); interval < 1 {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s %d, valid values are 1 or greater", flagIntervalName, interval))
	}
	if count, _ := cmd.Flags().GetInt(flagCountName); count < 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s %d, valid values are 0 or greater", flagCountName, count))
	}
	definitions, _ := cmd.Flags().GetStringArray(flagMetricName)
	if _, err := parseMetrics(definitions, len(events)); err != nil {
		return common.FlagValidationError(cmd, fmt.Sprintf("invalid flag value, --%s: %v", flagMetricName, err))
	}
	return nil
}

var numCPU = common.NumCPU

// coreDevice is an opened per-core MSR device
type coreDevice interface {
	msr.Device
	Close() error
}

var openDevice = func(core int) (coreDevice, error) {
	if err := msr.ValidateModule(core); err != nil {
		return nil, err
	}
	f, err := msr.Open(core)
	if err != nil {
		return nil, err
	}
	slog.Debug("opened MSR device", slog.String("path", f.Name()))
	return f, nil
}

// wait blocks for one interval, returning false if the context ends first
var wait = func(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var now = time.Now

func runCmd(cmd *cobra.Command, args []string) error {
	core, _ := cmd.Flags().GetInt(flagCoreName)
	eventsArg, _ := cmd.Flags().GetString(flagEventsName)
	interval, _ := cmd.Flags().GetInt(flagIntervalName)
	count, _ := cmd.Flags().GetInt(flagCountName)
	noReset, _ := cmd.Flags().GetBool(flagNoResetName)
	promAddr, _ := cmd.Flags().GetString(flagPrometheusServerName)
	definitions, _ := cmd.Flags().GetStringArray(flagMetricName)
	// already validated
	events, _ := parseEvents(eventsArg)
	metrics, _ := parseMetrics(definitions, len(events))

	if !common.IsRoot() {
		slog.Warn("not running as root, MSR access will likely fail")
	}
	dev, err := openDevice(core)
	if err != nil {
		return common.RuntimeError(cmd, err)
	}
	defer dev.Close()

	smp := newSampler(dev, core, events, metrics, now)
	if err := smp.start(!noReset); err != nil {
		return common.RuntimeError(cmd, err)
	}
	slog.Info("sampling PMU counters", slog.Int("core", core), slog.Any("events", events), slog.Int("interval", interval))

	var exp *exporter
	if promAddr != "" {
		exp = newExporter()
		exp.start(promAddr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printHeader(out, events, metrics)
	for i := 0; count == 0 || i < count; i++ {
		if !wait(ctx, time.Duration(interval)*time.Second) {
			slog.Info("sampling interrupted")
			break
		}
		s, err := smp.next()
		if err != nil {
			return common.RuntimeError(cmd, err)
		}
		printSample(out, s)
		if exp != nil {
			exp.update(s)
		}
	}
	return nil
}

// use printer to get commas at thousands
var printer = message.NewPrinter(language.English)

func printHeader(out io.Writer, events []uint64, metrics []metricDefinition) {
	printer.Fprintf(out, "%-8s", "sample")
	for i, event := range events {
		printer.Fprintf(out, " %16s", fmt.Sprintf("%s(%s)", counterVariable(i), formatEvent(event)))
	}
	for _, metric := range metrics {
		printer.Fprintf(out, " %16s", metric.Name)
	}
	printer.Fprintln(out)
}

func printSample(out io.Writer, s *sample) {
	printer.Fprintf(out, "%-8d", s.Index)
	for _, delta := range s.Deltas {
		printer.Fprintf(out, " %16d", delta)
	}
	for _, value := range s.MetricValues {
		if math.IsNaN(value) {
			printer.Fprintf(out, " %16s", "NaN")
			continue
		}
		printer.Fprintf(out, " %16.2f", value)
	}
	printer.Fprintln(out)
}
