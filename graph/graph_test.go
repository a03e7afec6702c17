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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGraph(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine("step")

	g, err := e.CreateGraph(ctx, chainConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "chain", g.Name)
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, "b", g.Edges["a"])
	assert.Equal(t, "a", g.StartNode)
	assert.Equal(t, DefaultMaxSteps, g.MaxSteps, "zero max_steps falls back to the default")

	// Identical definitions still get distinct IDs.
	g2, err := e.CreateGraph(ctx, chainConfig())
	require.NoError(t, err)
	assert.NotEqual(t, g.ID, g2.ID)
}

func TestCreateGraphValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "start node not defined",
			mutate:  func(c *Config) { c.StartNode = "ghost" },
			wantErr: ErrInvalidGraph,
		},
		{
			name:    "empty node ID",
			mutate:  func(c *Config) { c.Nodes[""] = NodeConfig{ToolName: "step"} },
			wantErr: ErrInvalidGraph,
		},
		{
			name:    "node without tool name",
			mutate:  func(c *Config) { c.Nodes["b"] = NodeConfig{} },
			wantErr: ErrInvalidGraph,
		},
		{
			name:    "unregistered tool",
			mutate:  func(c *Config) { c.Nodes["b"] = NodeConfig{ToolName: "ghost"} },
			wantErr: ErrToolNotRegistered,
		},
		{
			name:    "edge to unknown node",
			mutate:  func(c *Config) { c.Edges["b"] = "ghost" },
			wantErr: ErrInvalidGraph,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine("step")
			cfg := chainConfig()
			tt.mutate(&cfg)

			g, err := e.CreateGraph(ctx, cfg)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateGraphFailureLeavesStoreEmpty(t *testing.T) {
	store := NewInMemoryGraphStore()
	e := NewEngine(WithGraphStore(store))

	// No tool is registered, so the definition cannot validate.
	_, err := e.CreateGraph(context.Background(), chainConfig())
	require.Error(t, err)

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Empty(t, store.graphs)
}

func TestCreateGraphMaxSteps(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine("step")

	cfg := chainConfig()
	cfg.MaxSteps = 7
	g, err := e.CreateGraph(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, g.MaxSteps)

	cfg = chainConfig()
	cfg.MaxSteps = -1
	g, err = e.CreateGraph(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSteps, g.MaxSteps)
}

func TestCreateGraphSkipsEmptyEdgeTargets(t *testing.T) {
	e := newTestEngine("step")

	cfg := chainConfig()
	cfg.Edges = map[string]string{"a": "", "dangling": "b"}
	g, err := e.CreateGraph(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := g.Edges["a"]
	assert.False(t, ok, "an empty target means no edge")
	assert.Equal(t, "b", g.Edges["dangling"], "unknown sources are tolerated")
}

func TestConfigDecodesNullEdge(t *testing.T) {
	payload := `{
		"name": "wf",
		"nodes": {"a": {"tool_name": "step"}},
		"edges": {"a": null},
		"start_node": "a"
	}`
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(payload), &cfg))
	assert.Equal(t, "", cfg.Edges["a"])

	e := newTestEngine("step")
	g, err := e.CreateGraph(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestCreateGraphImmutableAgainstConfigMutation(t *testing.T) {
	e := newTestEngine("step")
	cfg := chainConfig()
	g, err := e.CreateGraph(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Nodes["c"] = NodeConfig{ToolName: "step"}
	cfg.Edges["b"] = "c"
	assert.Len(t, g.Nodes, 2, "the graph owns fresh maps")
	assert.Empty(t, g.Edges["b"])
}

// newTestEngine returns an engine with a pass-through tool registered under
// each of the given names.
func newTestEngine(names ...string) *Engine {
	e := NewEngine()
	for _, name := range names {
		e.Registry().RegisterStateFunc(name, func(state State) (State, error) {
			return state, nil
		})
	}
	return e
}

// chainConfig is a two-node a -> b definition over the "step" tool.
func chainConfig() Config {
	return Config{
		Name: "chain",
		Nodes: map[string]NodeConfig{
			"a": {ToolName: "step"},
			"b": {ToolName: "step"},
		},
		Edges:     map[string]string{"a": "b"},
		StartNode: "a",
	}
}
