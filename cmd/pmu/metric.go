package pmu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
)

// variable holding the length of the sample interval, in seconds
const intervalVariable = "interval"

var rxMetricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// metricDefinition is a derived metric given on the command line as name=expr
type metricDefinition struct {
	Name       string
	Expression string
	Evaluable  *govaluate.EvaluableExpression // parse expression once, store here for use in metric evaluation
}

// counterVariable returns the name used for counter i in metric expressions
func counterVariable(i int) string {
	return fmt.Sprintf("c%d", i)
}

// parseMetric parses a name=expr definition. The expression may only use the
// variables of the numCounters programmed counters and the interval.
func parseMetric(definition string, numCounters int) (metricDefinition, error) {
	name, expression, found := strings.Cut(definition, "=")
	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	if !found || expression == "" {
		return metricDefinition{}, fmt.Errorf("metric must be in the form name=expression: %s", definition)
	}
	if !rxMetricName.MatchString(name) {
		return metricDefinition{}, fmt.Errorf("invalid metric name: %s", name)
	}
	evaluable, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return metricDefinition{}, fmt.Errorf("failed to parse metric %s: %w", name, err)
	}
	allowed := mapset.NewSet(intervalVariable)
	for i := range numCounters {
		allowed.Add(counterVariable(i))
	}
	unknown := mapset.NewSet(evaluable.Vars()...).Difference(allowed).ToSlice()
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return metricDefinition{}, fmt.Errorf("metric %s uses unknown variable(s): %s", name, strings.Join(unknown, ", "))
	}
	return metricDefinition{Name: name, Expression: expression, Evaluable: evaluable}, nil
}

// parseMetrics parses every definition, rejecting duplicate names
func parseMetrics(definitions []string, numCounters int) ([]metricDefinition, error) {
	var metrics []metricDefinition
	names := mapset.NewSet[string]()
	for _, definition := range definitions {
		metric, err := parseMetric(definition, numCounters)
		if err != nil {
			return nil, err
		}
		if !names.Add(metric.Name) {
			return nil, fmt.Errorf("metric %s defined more than once", metric.Name)
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

// evaluate returns NaN when the expression can't be evaluated to a number
func (m metricDefinition) evaluate(parameters map[string]any) float64 {
	result, err := m.Evaluable.Evaluate(parameters)
	if err != nil {
		return math.NaN()
	}
	switch v := result.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}
