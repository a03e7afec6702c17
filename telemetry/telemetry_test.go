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
	"os"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// TestTracesEndpoint validates traces endpoint precedence rules.
func TestTracesEndpoint(t *testing.T) {
	const (
		customEndpoint  = "custom-trace:4317"
		genericEndpoint = "generic-endpoint:4317"
	)

	origTrace := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
	origGeneric := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	defer func() {
		_ = os.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", origTrace)
		_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", origGeneric)
	}()

	// Case 1: specific variable has precedence over generic.
	_ = os.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", customEndpoint)
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	if ep := tracesEndpoint(ProtocolGRPC); ep != customEndpoint {
		t.Fatalf("expected %s, got %s", customEndpoint, ep)
	}

	// Case 2: fallback to generic when specific is empty.
	_ = os.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	if ep := tracesEndpoint(ProtocolGRPC); ep != genericEndpoint {
		t.Fatalf("expected %s, got %s", genericEndpoint, ep)
	}

	// Case 3: per-protocol default when none set.
	_ = os.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if ep := tracesEndpoint(ProtocolGRPC); ep != "localhost:4317" {
		t.Fatalf("expected default gRPC endpoint localhost:4317, got %s", ep)
	}
	if ep := tracesEndpoint(ProtocolHTTP); ep != "localhost:4318" {
		t.Fatalf("expected default HTTP endpoint localhost:4318, got %s", ep)
	}
}

// TestMetricsEndpoint validates metrics endpoint precedence rules.
func TestMetricsEndpoint(t *testing.T) {
	const (
		customEndpoint  = "custom-metric:4318"
		genericEndpoint = "generic-endpoint:4318"
	)

	origMetric := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	origGeneric := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	defer func() {
		_ = os.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", origMetric)
		_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", origGeneric)
	}()

	_ = os.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", customEndpoint)
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	if ep := metricsEndpoint(ProtocolGRPC); ep != customEndpoint {
		t.Fatalf("expected %s, got %s", customEndpoint, ep)
	}

	_ = os.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", genericEndpoint)
	if ep := metricsEndpoint(ProtocolGRPC); ep != genericEndpoint {
		t.Fatalf("expected %s, got %s", genericEndpoint, ep)
	}

	_ = os.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if ep := metricsEndpoint(ProtocolGRPC); ep != "localhost:4317" {
		t.Fatalf("expected default gRPC endpoint localhost:4317, got %s", ep)
	}
	if ep := metricsEndpoint(ProtocolHTTP); ep != "localhost:4318" {
		t.Fatalf("expected default HTTP endpoint localhost:4318, got %s", ep)
	}
}

// TestNewTracerProvider exercises various provider configurations.
func TestNewTracerProvider(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{
			name: "gRPC endpoint",
			opts: []Option{
				WithEndpoint("localhost:4317"),
				WithProtocol(ProtocolGRPC),
			},
		},
		{
			name: "HTTP endpoint",
			opts: []Option{
				WithEndpoint("localhost:4318"),
				WithProtocol(ProtocolHTTP),
			},
		},
		{
			name: "default options",
			opts: []Option{},
		},
		{
			name: "resilient to invalid protocol",
			opts: []Option{
				WithProtocol("invalid"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tp, err := NewTracerProvider(ctx, tt.opts...)
			if err != nil {
				t.Fatalf("NewTracerProvider returned error: %v", err)
			}
			if tp == nil {
				t.Fatal("expected non-nil tracer provider")
			}
		})
	}
}

// TestNewMeterProvider exercises various provider configurations.
func TestNewMeterProvider(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{
			name: "gRPC endpoint",
			opts: []Option{
				WithEndpoint("localhost:4317"),
				WithProtocol(ProtocolGRPC),
			},
		},
		{
			name: "HTTP endpoint",
			opts: []Option{
				WithEndpoint("localhost:4318"),
				WithProtocol(ProtocolHTTP),
			},
		},
		{
			name: "default options",
			opts: []Option{},
		},
		{
			name: "custom endpoint",
			opts: []Option{
				WithEndpoint("custom:4317"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mp, err := NewMeterProvider(ctx, tt.opts...)
			if err != nil {
				t.Fatalf("NewMeterProvider returned error: %v", err)
			}
			if mp == nil {
				t.Fatal("expected non-nil meter provider")
			}
		})
	}
}

// TestOptions validates option functions.
func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		option   Option
		validate func(*testing.T, *options)
	}{
		{
			name:   "WithEndpoint",
			option: WithEndpoint("test:4317"),
			validate: func(t *testing.T, opts *options) {
				if opts.endpoint != "test:4317" {
					t.Errorf("expected endpoint test:4317, got %s", opts.endpoint)
				}
			},
		},
		{
			name:   "WithProtocol",
			option: WithProtocol(ProtocolHTTP),
			validate: func(t *testing.T, opts *options) {
				if opts.protocol != ProtocolHTTP {
					t.Errorf("expected protocol http, got %s", opts.protocol)
				}
			},
		},
		{
			name:   "WithServiceName",
			option: WithServiceName("my-service"),
			validate: func(t *testing.T, opts *options) {
				if opts.serviceName != "my-service" {
					t.Errorf("expected service name my-service, got %s", opts.serviceName)
				}
			},
		},
		{
			name:   "WithServiceNamespace",
			option: WithServiceNamespace("my-namespace"),
			validate: func(t *testing.T, opts *options) {
				if opts.serviceNamespace != "my-namespace" {
					t.Errorf("expected namespace my-namespace, got %s", opts.serviceNamespace)
				}
			},
		},
		{
			name:   "WithServiceVersion",
			option: WithServiceVersion("v9.9.9"),
			validate: func(t *testing.T, opts *options) {
				if opts.serviceVersion != "v9.9.9" {
					t.Errorf("expected version v9.9.9, got %s", opts.serviceVersion)
				}
			},
		},
		{
			name:   "WithResourceAttributes",
			option: WithResourceAttributes(attribute.String("team", "flow")),
			validate: func(t *testing.T, opts *options) {
				if len(opts.resourceAttributes) != 1 {
					t.Fatalf("expected 1 resource attribute, got %d", len(opts.resourceAttributes))
				}
				if opts.resourceAttributes[0].Key != "team" {
					t.Errorf("expected attribute key team, got %s", opts.resourceAttributes[0].Key)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.option(opts)
			tt.validate(t, opts)
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := defaultOptions()
	if opts.serviceName != ServiceName {
		t.Errorf("expected service name %s, got %s", ServiceName, opts.serviceName)
	}
	if opts.serviceVersion != ServiceVersion {
		t.Errorf("expected service version %s, got %s", ServiceVersion, opts.serviceVersion)
	}
	if opts.serviceNamespace != ServiceNamespace {
		t.Errorf("expected service namespace %s, got %s", ServiceNamespace, opts.serviceNamespace)
	}
	if opts.protocol != ProtocolGRPC {
		t.Errorf("expected default protocol grpc, got %s", opts.protocol)
	}
}

func TestBuildResource(t *testing.T) {
	ctx := context.Background()
	opts := defaultOptions()
	opts.serviceName = "resource-test"
	opts.resourceAttributes = []attribute.KeyValue{attribute.String("custom", "value")}

	res, err := buildResource(ctx, opts)
	if err != nil {
		t.Fatalf("buildResource returned error: %v", err)
	}

	var sawName, sawCustom bool
	for _, attr := range res.Attributes() {
		switch attr.Key {
		case semconv.ServiceNameKey:
			sawName = true
			if attr.Value.AsString() != "resource-test" {
				t.Errorf("expected service.name resource-test, got %s", attr.Value.AsString())
			}
		case "custom":
			sawCustom = true
		}
	}
	if !sawName {
		t.Error("service.name attribute missing from resource")
	}
	if !sawCustom {
		t.Error("custom attribute missing from resource")
	}
}

// TestInitTracerProvider verifies the globals are rebound to the installed provider.
func TestInitTracerProvider(t *testing.T) {
	origProvider := TracerProvider
	origTracer := Tracer
	defer func() {
		TracerProvider = origProvider
		Tracer = origTracer
	}()

	tp := sdktrace.NewTracerProvider()
	InitTracerProvider(tp)

	if TracerProvider != tp {
		t.Error("TracerProvider was not set")
	}
	if Tracer == nil {
		t.Fatal("Tracer was not set")
	}

	// Spans from the rebound tracer must be usable without a collector.
	_, span := Tracer.Start(context.Background(), "test-span")
	span.End()
}

// TestInitMeterProvider verifies the globals and instruments are created.
func TestInitMeterProvider(t *testing.T) {
	origProvider := MeterProvider
	origMeter := Meter
	origRunCnt := MetricRunCnt
	origStepCnt := MetricStepCnt
	origRunDuration := MetricRunDuration
	defer func() {
		MeterProvider = origProvider
		Meter = origMeter
		MetricRunCnt = origRunCnt
		MetricStepCnt = origStepCnt
		MetricRunDuration = origRunDuration
	}()

	mp := sdkmetric.NewMeterProvider()
	if err := InitMeterProvider(mp); err != nil {
		t.Fatalf("InitMeterProvider failed: %v", err)
	}

	if MeterProvider != mp {
		t.Error("MeterProvider was not set")
	}
	if GetMeterProvider() != mp {
		t.Error("GetMeterProvider did not return the installed provider")
	}
	if MetricRunCnt == nil {
		t.Error("MetricRunCnt was not created")
	}
	if MetricStepCnt == nil {
		t.Error("MetricStepCnt was not created")
	}
	if MetricRunDuration == nil {
		t.Error("MetricRunDuration was not created")
	}

	// Recording against the installed instruments must not panic.
	ctx := context.Background()
	IncRunCnt(ctx, "graph-1", "completed")
	IncStepCnt(ctx, "graph-1", "node-a")
	RecordRunDuration(ctx, "graph-1", "completed", 250*time.Millisecond)
}

// TestRecordHelpersNoop ensures the helpers are safe before any Init call.
func TestRecordHelpersNoop(t *testing.T) {
	origRunCnt := MetricRunCnt
	origStepCnt := MetricStepCnt
	origRunDuration := MetricRunDuration
	defer func() {
		MetricRunCnt = origRunCnt
		MetricStepCnt = origStepCnt
		MetricRunDuration = origRunDuration
	}()

	MetricRunCnt = metricnoop.Int64Counter{}
	MetricStepCnt = metricnoop.Int64Counter{}
	MetricRunDuration = metricnoop.Float64Histogram{}

	ctx := context.Background()
	IncRunCnt(ctx, "graph-1", "failed")
	IncStepCnt(ctx, "graph-1", "node-a")
	RecordRunDuration(ctx, "graph-1", "failed", time.Second)
}
