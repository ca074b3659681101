package pmu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promMetricPrefix = "hwpf_pmu_"

// exporter publishes the latest sample as prometheus gauges
type exporter struct {
	registry *prometheus.Registry
	counters *prometheus.GaugeVec
	metrics  *prometheus.GaugeVec
}

func newExporter() *exporter {
	e := &exporter{
		registry: prometheus.NewRegistry(),
		counters: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "counter_delta",
				Help: "PMU counter increment during the last sample interval",
			},
			[]string{"core", "counter", "event"},
		),
		metrics: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "metric",
				Help: "Derived metric evaluated over the last sample interval",
			},
			[]string{"core", "metric"},
		),
	}
	e.registry.MustRegister(e.counters, e.metrics)
	return e
}

// start serves the registry in its own goroutine
func (e *exporter) start(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
}

func (e *exporter) update(s *sample) {
	core := strconv.Itoa(s.Core)
	for i, delta := range s.Deltas {
		e.counters.WithLabelValues(core, counterVariable(i), formatEvent(s.Events[i])).Set(float64(delta))
	}
	for i, value := range s.MetricValues {
		if !math.IsNaN(value) {
			e.metrics.WithLabelValues(core, s.MetricNames[i]).Set(value)
		}
	}
}
