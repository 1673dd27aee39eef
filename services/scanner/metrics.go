// Copyright (C) 2025 Tidewater Labs (oss@tidewater-labs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scanner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("bughound.scanner")
	meter  = otel.Meter("bughound.scanner")

	metricsOnce sync.Once

	scanLatency    metric.Float64Histogram
	scanTotal      metric.Int64Counter
	targetsScanned metric.Int64Counter
	targetErrors   metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		scanLatency, err = meter.Float64Histogram(
			"bughound.scan.duration",
			metric.WithDescription("End-to-end scan duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			scanLatency = nil
		}
		scanTotal, err = meter.Int64Counter(
			"bughound.scan.total",
			metric.WithDescription("Scans started, by tier"),
		)
		if err != nil {
			scanTotal = nil
		}
		targetsScanned, err = meter.Int64Counter(
			"bughound.scan.targets",
			metric.WithDescription("Targets processed across scans"),
		)
		if err != nil {
			targetsScanned = nil
		}
		targetErrors, err = meter.Int64Counter(
			"bughound.scan.target_errors",
			metric.WithDescription("Per-target pipeline failures"),
		)
		if err != nil {
			targetErrors = nil
		}
	})
}

func recordScanMetrics(ctx context.Context, tier string, duration time.Duration, targets, failures int) {
	initMetrics()
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	if scanLatency != nil {
		scanLatency.Record(ctx, duration.Seconds(), attrs)
	}
	if scanTotal != nil {
		scanTotal.Add(ctx, 1, attrs)
	}
	if targetsScanned != nil {
		targetsScanned.Add(ctx, int64(targets), attrs)
	}
	if targetErrors != nil && failures > 0 {
		targetErrors.Add(ctx, int64(failures), attrs)
	}
}

func startScanSpan(ctx context.Context, tier string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "scanner.Scan",
		trace.WithAttributes(attribute.String("tier", tier)))
}
