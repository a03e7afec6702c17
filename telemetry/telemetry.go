//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry provides tracing and metrics for graph execution.
// All globals default to no-op implementations; nothing is reported until a
// real provider is installed with InitTracerProvider or InitMeterProvider.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcDial is a package-level variable to allow test injection of a custom dialer.
// In production, this points to grpc.Dial.
var grpcDial = grpc.Dial

// telemetry service constants.
const (
	ServiceName      = "trpc-flow-go"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go"
	InstrumentName   = "trpc.go.flow"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

const (
	// Span names for graph execution.
	SpanRunGraph    = "run_graph"
	SpanExecuteNode = "execute_node"

	// Common attribute keys used in spans and metrics.
	AttrGraphID   = "graph_id"
	AttrGraphName = "graph_name"
	AttrRunID     = "run_id"
	AttrRunStatus = "status"
	AttrNodeID    = "node_id"
	AttrStepIndex = "step_index"
	AttrToolName  = "tool_name"
)

// Tracing globals. InitTracerProvider swaps in a real provider.
var (
	TracerProvider trace.TracerProvider = tracenoop.NewTracerProvider()
	Tracer         trace.Tracer         = TracerProvider.Tracer(InstrumentName)
)

// Metric globals. InitMeterProvider swaps in real instruments.
var (
	MeterProvider metric.MeterProvider = metricnoop.NewMeterProvider()
	Meter         metric.Meter         = MeterProvider.Meter(InstrumentName)

	MetricRunCnt      metric.Int64Counter     = metricnoop.Int64Counter{}
	MetricStepCnt     metric.Int64Counter     = metricnoop.Int64Counter{}
	MetricRunDuration metric.Float64Histogram = metricnoop.Float64Histogram{}
)

// IncRunCnt counts one finished run.
func IncRunCnt(ctx context.Context, graphID, status string) {
	MetricRunCnt.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrGraphID, graphID),
			attribute.String(AttrRunStatus, status),
		))
}

// IncStepCnt counts one executed step.
func IncStepCnt(ctx context.Context, graphID, nodeID string) {
	MetricStepCnt.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrGraphID, graphID),
			attribute.String(AttrNodeID, nodeID),
		))
}

// RecordRunDuration records the wall time of one finished run.
func RecordRunDuration(ctx context.Context, graphID, status string, duration time.Duration) {
	MetricRunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String(AttrGraphID, graphID),
			attribute.String(AttrRunStatus, status),
		))
}

// Option is a function that configures provider options.
type Option func(*options)

// options holds the configuration options shared by both providers.
type options struct {
	endpoint           string
	protocol           string // Protocol to use (grpc or http)
	serviceName        string
	serviceVersion     string
	serviceNamespace   string
	resourceAttributes []attribute.KeyValue
}

func defaultOptions() *options {
	return &options{
		serviceName:      ServiceName,
		serviceVersion:   ServiceVersion,
		serviceNamespace: ServiceNamespace,
		protocol:         ProtocolGRPC, // Default to gRPC
	}
}

// WithEndpoint sets the endpoint (host and port) the exporter will connect to.
// The provided endpoint should resemble "example.com:4317" (no scheme or path).
// If not passed, the OTEL_EXPORTER_OTLP_{TRACES,METRICS}_ENDPOINT and
// OTEL_EXPORTER_OTLP_ENDPOINT environment variables are consulted in that
// order before falling back to localhost.
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		opts.endpoint = endpoint
	}
}

// WithProtocol sets the protocol to use for export.
// Supported protocols are "grpc" (default) and "http".
func WithProtocol(protocol string) Option {
	return func(opts *options) {
		opts.protocol = protocol
	}
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(serviceName string) Option {
	return func(opts *options) {
		opts.serviceName = serviceName
	}
}

// WithServiceNamespace overrides the service.namespace resource attribute.
func WithServiceNamespace(serviceNamespace string) Option {
	return func(opts *options) {
		opts.serviceNamespace = serviceNamespace
	}
}

// WithServiceVersion overrides the service.version resource attribute.
func WithServiceVersion(serviceVersion string) Option {
	return func(opts *options) {
		opts.serviceVersion = serviceVersion
	}
}

// WithResourceAttributes appends custom resource attributes.
func WithResourceAttributes(attrs ...attribute.KeyValue) Option {
	return func(opts *options) {
		opts.resourceAttributes = append(opts.resourceAttributes, attrs...)
	}
}

func buildResource(ctx context.Context, options *options) (*resource.Resource, error) {
	resourceOpts := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNamespace(options.serviceNamespace),
			semconv.ServiceName(options.serviceName),
			semconv.ServiceVersion(options.serviceVersion),
		),
		resource.WithFromEnv(),
		resource.WithHost(),         // Adds host.name
		resource.WithTelemetrySDK(), // Adds telemetry.sdk.{name,language,version}
	}
	if len(options.resourceAttributes) > 0 {
		resourceOpts = append(resourceOpts, resource.WithAttributes(options.resourceAttributes...))
	}
	return resource.New(ctx, resourceOpts...)
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpcDial(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, err
}
