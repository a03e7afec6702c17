//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	// RunStatusRunning means the run loop is still executing steps.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the run terminated naturally with no next node.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means a step failed or the step budget was exhausted.
	RunStatusFailed RunStatus = "failed"
)

// StepLog records one successfully executed step of a run. State is a shallow
// snapshot taken after the step's routing override was consumed, so reserved
// keys never appear in it.
type StepLog struct {
	StepIndex int    `json:"step_index"`
	NodeID    string `json:"node_id"`
	State     State  `json:"state"`
}

// Run is the record of a single execution of a graph. A Run is created and
// mutated exclusively by the engine's run loop; once RunGraph has returned,
// the record is final and safe to read from any goroutine. Runs are kept in
// the run store indefinitely unless the store itself expires them.
type Run struct {
	// ID is the unique identifier of the run.
	ID string `json:"id"`
	// GraphID is the ID of the executed graph.
	GraphID string `json:"graph_id"`
	// Status is the lifecycle state of the run.
	Status RunStatus `json:"status"`
	// CurrentNode is the node being executed, or the node execution stopped
	// at for failed runs. It is empty for completed runs.
	CurrentNode string `json:"current_node,omitempty"`
	// State is the live state of the run, and the final state once the run
	// has terminated.
	State State `json:"state"`
	// Log holds one entry per successfully executed step, in order.
	Log []StepLog `json:"log"`
	// Error describes why the run failed. Empty unless Status is failed.
	Error string `json:"error,omitempty"`
}

// fail marks the run as failed with the given error. The current node is left
// pointing at the step that could not complete.
func (r *Run) fail(err error) {
	r.Status = RunStatusFailed
	r.Error = err.Error()
}
