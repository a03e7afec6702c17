//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names reported for graph execution.
const (
	MetricNameRunCnt      = "trpc_flow_go.run.cnt"
	MetricNameStepCnt     = "trpc_flow_go.step.cnt"
	MetricNameRunDuration = "trpc_flow_go.run.duration"
)

// InitMeterProvider initializes the meter provider and the default instruments.
func InitMeterProvider(mp metric.MeterProvider) error {
	MeterProvider = mp
	Meter = mp.Meter(InstrumentName)

	var err error
	if MetricRunCnt, err = Meter.Int64Counter(
		MetricNameRunCnt,
		metric.WithDescription("Total number of graph runs"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricNameRunCnt, err)
	}
	if MetricStepCnt, err = Meter.Int64Counter(
		MetricNameStepCnt,
		metric.WithDescription("Total number of executed steps"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricNameStepCnt, err)
	}
	if MetricRunDuration, err = Meter.Float64Histogram(
		MetricNameRunDuration,
		metric.WithDescription("Duration of graph runs"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricNameRunDuration, err)
	}
	return nil
}

// GetMeterProvider returns the meter provider.
func GetMeterProvider() metric.MeterProvider {
	return MeterProvider
}

// NewMeterProvider creates a new meter provider with optional configuration.
// The environment variables described below can be used for endpoint configuration.
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default: "localhost:4317")
// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc
func NewMeterProvider(ctx context.Context, opts ...Option) (*sdkmetric.MeterProvider, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	// Set endpoint based on protocol if not explicitly set
	if options.endpoint == "" {
		options.endpoint = metricsEndpoint(options.protocol)
	}

	res, err := buildResource(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var meterProvider *sdkmetric.MeterProvider
	switch options.protocol {
	case ProtocolHTTP:
		meterProvider, err = newHTTPMeterProvider(ctx, res, options.endpoint)
	default:
		meterProvider, err = newGRPCMeterProvider(ctx, res, options.endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	return meterProvider, nil
}

func metricsEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}

	// Return different default endpoints based on protocol
	switch protocol {
	case ProtocolHTTP:
		return "localhost:4318" // HTTP endpoint base URL (otlpmetrichttp will add /v1/metrics automatically)
	default:
		return "localhost:4317" // gRPC endpoint (host:port)
	}
}

// Initializes an OTLP HTTP exporter, and configures the corresponding meter provider.
func newHTTPMeterProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdkmetric.MeterProvider, error) {
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	return meterProvider, nil
}

// Initializes an OTLP gRPC exporter, and configures the corresponding meter provider.
func newGRPCMeterProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdkmetric.MeterProvider, error) {
	metricsConn, err := NewGRPCConn(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics connection: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(metricsConn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	return meterProvider, nil
}
