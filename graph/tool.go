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
)

// Tool is a named capability that transforms one state into the next. A tool
// either produces the complete replacement state or fails; it never mutates
// routing directly except through the StateKeyNextNode key.
type Tool interface {
	// Call executes the tool against the current state and returns the
	// state that replaces it.
	Call(ctx context.Context, state State) (State, error)
}

// Func adapts a context-aware function to the Tool interface, in the manner
// of http.HandlerFunc.
type Func func(ctx context.Context, state State) (State, error)

// Call implements Tool.
func (f Func) Call(ctx context.Context, state State) (State, error) {
	return f(ctx, state)
}

// StateFunc adapts a plain state-transform function to the Tool interface.
// The context is dropped, which suits tools that never block.
type StateFunc func(state State) (State, error)

// Call implements Tool.
func (f StateFunc) Call(ctx context.Context, state State) (State, error) {
	return f(state)
}

var (
	_ Tool = (Func)(nil)
	_ Tool = (StateFunc)(nil)
)

// Registry maps tool names to tools. Registration normalizes the supported
// function shapes into the single Tool interface, so execution never cares
// how a tool was written.
//
// The registry is not synchronized: register every tool before graphs are
// created or runs start, then treat it as read-only.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register registers a tool under the given name. Registering the same name
// again replaces the earlier tool.
func (r *Registry) Register(name string, t Tool) {
	r.tools[name] = t
}

// RegisterFunc registers a context-aware function as a tool.
func (r *Registry) RegisterFunc(name string, fn Func) {
	r.Register(name, fn)
}

// RegisterStateFunc registers a plain state-transform function as a tool.
func (r *Registry) RegisterStateFunc(name string, fn StateFunc) {
	r.Register(name, fn)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotRegistered, name)
	}
	return t, nil
}
