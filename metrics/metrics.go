/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package metrics contains the runtime metrics of EliasDB GDS.

A Collector holds prometheus vectors for the catalog, projection builds and
algorithm runs. Durations are also recorded through an OpenTelemetry meter.
Without an installed OpenTelemetry SDK the meter is a no-op.
*/
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

/*
Namespace of all prometheus metrics
*/
const Namespace = "eliasgds"

/*
Result labels
*/
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultCancelled = "cancelled"
)

/*
Collector holds all prometheus metrics of a catalog and its executors.
*/
type Collector struct {
	CatalogGraphs    *prometheus.GaugeVec     // Number of graphs per owner
	CatalogMemory    prometheus.Gauge         // Memory of all cataloged graphs
	BuildsTotal      *prometheus.CounterVec   // Projection builds by result
	BuildSeconds     prometheus.Histogram     // Projection build duration
	AlgorithmRuns    *prometheus.CounterVec   // Algorithm runs by algorithm, mode and result
	AlgorithmSeconds *prometheus.HistogramVec // Algorithm compute duration by algorithm
}

/*
NewCollector creates a new collector and registers its metrics with a given
registerer.
*/
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		CatalogGraphs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "graphs",
			Help:      "Number of cataloged graphs per owner",
		}, []string{"owner"}),

		CatalogMemory: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "memory_bytes",
			Help:      "Memory footprint of all cataloged graphs in bytes",
		}),

		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "projection",
			Name:      "builds_total",
			Help:      "Total number of projection builds",
		}, []string{"result"}),

		BuildSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "projection",
			Name:      "build_seconds",
			Help:      "Duration of projection builds in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		AlgorithmRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "algorithm",
			Name:      "runs_total",
			Help:      "Total number of algorithm runs",
		}, []string{"algorithm", "mode", "result"}),

		AlgorithmSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "algorithm",
			Name:      "compute_seconds",
			Help:      "Duration of the compute phase of algorithm runs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"algorithm"}),
	}
}

var (
	defaultCollector     *Collector
	defaultCollectorOnce sync.Once
	defaultRegistry      = prometheus.NewRegistry()
)

/*
Default returns the process wide collector. Its metrics are registered with
the registry returned by Registry.
*/
func Default() *Collector {
	defaultCollectorOnce.Do(func() {
		defaultCollector = NewCollector(defaultRegistry)
	})
	return defaultCollector
}

/*
Registry returns the registry of the process wide collector.
*/
func Registry() *prometheus.Registry {
	return defaultRegistry
}

/*
SetGraphs sets the number of graphs of an owner.
*/
func (c *Collector) SetGraphs(owner string, count int) {
	if c == nil {
		return
	}
	if count == 0 {
		c.CatalogGraphs.DeleteLabelValues(owner)
		return
	}
	c.CatalogGraphs.WithLabelValues(owner).Set(float64(count))
}

/*
SetMemory sets the memory footprint of all cataloged graphs.
*/
func (c *Collector) SetMemory(bytes uint64) {
	if c == nil {
		return
	}
	c.CatalogMemory.Set(float64(bytes))
}

/*
BuildFinished records a finished projection build.
*/
func (c *Collector) BuildFinished(ctx context.Context, duration time.Duration, err error) {
	if c == nil {
		return
	}

	result := Result(ctx, err)

	c.BuildsTotal.WithLabelValues(result).Inc()
	if err == nil {
		c.BuildSeconds.Observe(duration.Seconds())
	}

	recordBuild(ctx, duration, result)
}

/*
AlgorithmFinished records a finished algorithm run. The compute duration is
only recorded for successful runs.
*/
func (c *Collector) AlgorithmFinished(ctx context.Context, algorithm, mode string,
	compute time.Duration, err error) {

	if c == nil {
		return
	}

	result := Result(ctx, err)

	c.AlgorithmRuns.WithLabelValues(algorithm, mode, result).Inc()
	if err == nil {
		c.AlgorithmSeconds.WithLabelValues(algorithm).Observe(compute.Seconds())
	}

	recordCompute(ctx, algorithm, mode, compute, result)
}

/*
Result returns the result label for an error.
*/
func Result(ctx context.Context, err error) string {
	if err == nil {
		return ResultSuccess
	} else if ctx.Err() != nil {
		return ResultCancelled
	}
	return ResultError
}

// OpenTelemetry instruments
// =========================

var meter = otel.Meter("eliasgds")

var (
	buildLatency   metric.Float64Histogram
	computeLatency metric.Float64Histogram

	instrumentsOnce sync.Once
	instrumentsErr  error
)

/*
initInstruments creates the OpenTelemetry instruments. Safe to call multiple times.
*/
func initInstruments() error {
	instrumentsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"eliasgds.projection.build.duration",
			metric.WithDescription("Duration of projection builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			instrumentsErr = err
			return
		}

		computeLatency, err = meter.Float64Histogram(
			"eliasgds.algorithm.compute.duration",
			metric.WithDescription("Duration of the compute phase of algorithm runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			instrumentsErr = err
		}
	})
	return instrumentsErr
}

func recordBuild(ctx context.Context, duration time.Duration, result string) {
	if err := initInstruments(); err != nil {
		return
	}

	buildLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("result", result)))
}

func recordCompute(ctx context.Context, algorithm, mode string, duration time.Duration, result string) {
	if err := initInstruments(); err != nil {
		return
	}

	computeLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("mode", mode),
		attribute.String("result", result)))
}
