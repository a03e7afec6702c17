//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides a minimal workflow engine that executes directed
// graphs of named steps over a shared state mapping. Tools are registered
// under string names, graphs bind nodes to those names, and the engine walks
// a graph one node at a time, recording a snapshot of the state after every
// step.
package graph

import (
	"fmt"
)

// DefaultMaxSteps is the step budget applied when a graph definition does not
// specify one.
const DefaultMaxSteps = 100

// State represents the state that flows through a graph run.
type State map[string]any

// Clone creates a shallow copy of the state. Top-level keys are copied;
// nested maps and slices are shared with the original.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Node represents a single step in a graph. It binds a node ID to the name of
// the tool that executes when the node is visited.
type Node struct {
	// ID is the unique identifier of the node within its graph.
	ID string
	// ToolName is the registry name of the tool the node executes.
	ToolName string
}

// NodeConfig describes one node of a graph definition.
type NodeConfig struct {
	ToolName string `json:"tool_name"`
}

// Config is a graph definition as supplied by callers. It carries JSON tags so
// HTTP payloads decode directly into it; a JSON null edge target decodes to an
// empty string, which means the edge is absent.
type Config struct {
	Name      string                `json:"name"`
	Nodes     map[string]NodeConfig `json:"nodes"`
	Edges     map[string]string     `json:"edges"`
	StartNode string                `json:"start_node"`
	// MaxSteps bounds the number of steps a run may execute. Zero or
	// negative means DefaultMaxSteps.
	MaxSteps int `json:"max_steps"`
}

// Graph is an immutable, validated graph definition. Instances are built by
// Engine.CreateGraph and must not be modified afterwards.
type Graph struct {
	// ID is the engine-assigned unique identifier of the graph.
	ID string
	// Name is the human-readable name of the graph.
	Name string
	// Nodes maps node IDs to nodes.
	Nodes map[string]*Node
	// Edges maps a node ID to the ID of its static successor. Nodes without
	// an entry have no successor.
	Edges map[string]string
	// StartNode is the ID of the node every run begins at.
	StartNode string
	// MaxSteps is the step budget for runs of this graph.
	MaxSteps int
}

// newGraph validates a definition against the registry and builds the
// immutable graph. The returned graph owns fresh maps, so later mutation of
// the config cannot affect it. The ID is left empty for the caller to assign.
func newGraph(cfg Config, registry *Registry) (*Graph, error) {
	if _, ok := cfg.Nodes[cfg.StartNode]; !ok {
		return nil, fmt.Errorf("%w: start node %q is not defined in nodes", ErrInvalidGraph, cfg.StartNode)
	}

	nodes := make(map[string]*Node, len(cfg.Nodes))
	for id, nc := range cfg.Nodes {
		if id == "" {
			return nil, fmt.Errorf("%w: node ID cannot be empty", ErrInvalidGraph)
		}
		if nc.ToolName == "" {
			return nil, fmt.Errorf("%w: node %q has no tool_name", ErrInvalidGraph, id)
		}
		if _, err := registry.Get(nc.ToolName); err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		nodes[id] = &Node{ID: id, ToolName: nc.ToolName}
	}

	// Static edges are checked eagerly so a bad definition fails at creation
	// rather than mid-run. Sources without a node are tolerated as dead
	// entries; targets must resolve. Empty targets mean the edge is absent.
	edges := make(map[string]string, len(cfg.Edges))
	for from, to := range cfg.Edges {
		if to == "" {
			continue
		}
		if _, ok := nodes[to]; !ok {
			return nil, fmt.Errorf("%w: edge %q -> %q targets an unknown node", ErrInvalidGraph, from, to)
		}
		edges[from] = to
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	return &Graph{
		Name:      cfg.Name,
		Nodes:     nodes,
		Edges:     edges,
		StartNode: cfg.StartNode,
		MaxSteps:  maxSteps,
	}, nil
}
