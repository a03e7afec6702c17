//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/telemetry"
)

// Option is a function that configures an Engine.
type Option func(*Options)

// Options contains configuration options for creating an Engine.
type Options struct {
	// Registry is the tool registry (default: a fresh empty registry).
	Registry *Registry
	// GraphStore persists graph definitions (default: in-memory).
	GraphStore GraphStore
	// RunStore persists run records (default: in-memory).
	RunStore RunStore
	// StepTimeout bounds each tool invocation (default: no timeout).
	StepTimeout time.Duration
}

// WithRegistry sets the tool registry.
func WithRegistry(registry *Registry) Option {
	return func(opts *Options) {
		opts.Registry = registry
	}
}

// WithGraphStore sets the graph store.
func WithGraphStore(store GraphStore) Option {
	return func(opts *Options) {
		opts.GraphStore = store
	}
}

// WithRunStore sets the run store.
func WithRunStore(store RunStore) Option {
	return func(opts *Options) {
		opts.RunStore = store
	}
}

// WithStepTimeout sets the timeout for each tool invocation. A deadline hit
// fails the run like any other tool error; it is not propagated.
func WithStepTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.StepTimeout = timeout
	}
}

// Engine owns the tool registry, the graph store, and the run store, and
// executes graphs step by step over a shared state mapping.
type Engine struct {
	registry    *Registry
	graphStore  GraphStore
	runStore    RunStore
	stepTimeout time.Duration
}

// NewEngine creates a new execution engine.
func NewEngine(opts ...Option) *Engine {
	var options Options
	// Apply function options.
	for _, opt := range opts {
		opt(&options)
	}
	if options.Registry == nil {
		options.Registry = NewRegistry()
	}
	if options.GraphStore == nil {
		options.GraphStore = NewInMemoryGraphStore()
	}
	if options.RunStore == nil {
		options.RunStore = NewInMemoryRunStore()
	}
	return &Engine{
		registry:    options.Registry,
		graphStore:  options.GraphStore,
		runStore:    options.RunStore,
		stepTimeout: options.StepTimeout,
	}
}

// Registry returns the engine's tool registry. Register tools before
// creating graphs that reference them.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CreateGraph validates the definition, assigns a fresh ID, and stores the
// graph. The returned graph is immutable; every error leaves the store
// untouched.
func (e *Engine) CreateGraph(ctx context.Context, cfg Config) (*Graph, error) {
	g, err := newGraph(cfg, e.registry)
	if err != nil {
		return nil, err
	}
	g.ID = uuid.New().String()
	if err := e.graphStore.PutGraph(ctx, g); err != nil {
		return nil, fmt.Errorf("store graph %q: %w", g.ID, err)
	}
	log.Debugf("created graph %s (%s) with %d nodes", g.ID, g.Name, len(g.Nodes))
	return g, nil
}

// RunGraph executes the graph with the given initial state and returns the
// finished run record. Tool failures and budget exhaustion are captured in
// the run, not returned: RunGraph errors only when the graph does not exist
// or the store fails.
func (e *Engine) RunGraph(ctx context.Context, graphID string, initial State) (*Run, error) {
	g, err := e.graphStore.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:          uuid.New().String(),
		GraphID:     g.ID,
		Status:      RunStatusRunning,
		CurrentNode: g.StartNode,
		State:       initial.Clone(),
		Log:         []StepLog{},
	}
	// The run is visible in the store while it executes.
	if err := e.runStore.PutRun(ctx, run); err != nil {
		return nil, fmt.Errorf("store run %q: %w", run.ID, err)
	}

	ctx, span := telemetry.Tracer.Start(ctx, telemetry.SpanRunGraph)
	span.SetAttributes(
		attribute.String(telemetry.AttrGraphID, g.ID),
		attribute.String(telemetry.AttrGraphName, g.Name),
		attribute.String(telemetry.AttrRunID, run.ID),
	)
	defer span.End()

	start := time.Now()
	e.executeRun(ctx, g, run)
	telemetry.IncRunCnt(ctx, run.GraphID, string(run.Status))
	telemetry.RecordRunDuration(ctx, run.GraphID, string(run.Status), time.Since(start))
	if run.Status == RunStatusFailed {
		span.SetStatus(codes.Error, run.Error)
		log.Warnf("run %s of graph %s failed: %s", run.ID, run.GraphID, run.Error)
	}
	if err := e.runStore.PutRun(ctx, run); err != nil {
		return nil, fmt.Errorf("store run %q: %w", run.ID, err)
	}
	return run, nil
}

// GetRun returns the run with the given ID.
func (e *Engine) GetRun(ctx context.Context, runID string) (*Run, error) {
	return e.runStore.GetRun(ctx, runID)
}

// executeRun drives the step loop until the graph terminates naturally, a
// step fails, or the step budget runs out.
func (e *Engine) executeRun(ctx context.Context, g *Graph, run *Run) {
	next := g.StartNode
	for step := 0; next != "" && step < g.MaxSteps; step++ {
		run.CurrentNode = next
		var err error
		next, err = e.executeStep(ctx, g, run, step)
		if err != nil {
			run.fail(err)
			return
		}
	}
	if next != "" {
		run.fail(ErrMaxStepsExceeded)
		return
	}
	run.Status = RunStatusCompleted
	run.CurrentNode = ""
}

// executeStep runs the node recorded in run.CurrentNode and returns the ID
// of the next node, or "" to terminate. A non-nil error means the step did
// not complete; no log entry is appended for it.
func (e *Engine) executeStep(ctx context.Context, g *Graph, run *Run, step int) (string, error) {
	nodeID := run.CurrentNode
	ctx, span := telemetry.Tracer.Start(ctx, telemetry.SpanExecuteNode)
	span.SetAttributes(
		attribute.String(telemetry.AttrNodeID, nodeID),
		attribute.Int(telemetry.AttrStepIndex, step),
	)
	defer span.End()

	node, ok := g.Nodes[nodeID]
	if !ok {
		return "", fmt.Errorf("node %q not found in graph %s", nodeID, g.ID)
	}
	span.SetAttributes(attribute.String(telemetry.AttrToolName, node.ToolName))
	t, err := e.registry.Get(node.ToolName)
	if err != nil {
		return "", fmt.Errorf("node %q: %w", nodeID, err)
	}

	log.Debugf("run %s step %d: executing node %q (tool %q)", run.ID, step, nodeID, node.ToolName)
	callCtx := ctx
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}
	out, err := t.Call(callCtx, run.State)
	if err != nil {
		return "", fmt.Errorf("tool %q: %w", node.ToolName, err)
	}
	if out == nil {
		return "", fmt.Errorf("tool %q returned no state", node.ToolName)
	}
	// The returned mapping replaces the run state wholesale.
	run.State = out

	// The routing override is consumed before the snapshot, so log entries
	// never contain the reserved key.
	next, overrideErr := resolveNext(g, nodeID, run.State)
	run.Log = append(run.Log, StepLog{StepIndex: step, NodeID: nodeID, State: run.State.Clone()})
	telemetry.IncStepCnt(ctx, run.GraphID, nodeID)
	if overrideErr != nil {
		return "", overrideErr
	}
	return next, nil
}

// resolveNext determines the node to execute after nodeID. An override in
// state wins over the static edge, including an explicit nil, which
// terminates the run. The override key is removed whenever present.
func resolveNext(g *Graph, nodeID string, state State) (string, error) {
	override, ok := state[StateKeyNextNode]
	if !ok {
		return g.Edges[nodeID], nil
	}
	delete(state, StateKeyNextNode)
	switch v := override.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("state key %q must be a string or nil, got %T", StateKeyNextNode, v)
	}
}
