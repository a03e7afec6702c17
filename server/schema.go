//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"trpc.group/trpc-go/trpc-flow-go/graph"
)

// runRequest is the body of POST /graph/run.
type runRequest struct {
	GraphID      string      `json:"graph_id"`
	InitialState graph.State `json:"initial_state"`
}

// graphCreatedResponse is returned by POST /graph/create.
type graphCreatedResponse struct {
	GraphID string `json:"graph_id"`
	Name    string `json:"name"`
}

// stepLogPayload is one run log entry on the wire.
type stepLogPayload struct {
	StepIndex     int         `json:"step_index"`
	NodeID        string      `json:"node_id"`
	StateSnapshot graph.State `json:"state_snapshot"`
}

// runResponse describes a run with its full execution log.
type runResponse struct {
	RunID       string           `json:"run_id"`
	GraphID     string           `json:"graph_id"`
	Status      graph.RunStatus  `json:"status"`
	CurrentNode string           `json:"current_node,omitempty"`
	State       graph.State      `json:"state"`
	Log         []stepLogPayload `json:"log"`
	Error       string           `json:"error,omitempty"`
}

func newRunResponse(run *graph.Run) runResponse {
	entries := make([]stepLogPayload, 0, len(run.Log))
	for _, entry := range run.Log {
		entries = append(entries, stepLogPayload{
			StepIndex:     entry.StepIndex,
			NodeID:        entry.NodeID,
			StateSnapshot: entry.State,
		})
	}
	return runResponse{
		RunID:       run.ID,
		GraphID:     run.GraphID,
		Status:      run.Status,
		CurrentNode: run.CurrentNode,
		State:       run.State,
		Log:         entries,
		Error:       run.Error,
	}
}

// defaultGraphResponse is returned by GET /graph/default/{name}.
type defaultGraphResponse struct {
	GraphID string `json:"graph_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}
