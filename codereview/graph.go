//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package codereview

import (
	"context"

	"trpc.group/trpc-go/trpc-flow-go/graph"
)

// GraphName is the name of the default code review graph.
const GraphName = "code_review_mini_agent"

// Node IDs of the default graph.
const (
	NodeExtract    = "extract"
	NodeComplexity = "complexity"
	NodeIssues     = "issues"
	NodeSuggest    = "suggest"
)

// NewGraph creates the default code review graph on the engine and returns
// it. The tools must be registered on the engine's registry first, see
// Register.
func NewGraph(ctx context.Context, engine *graph.Engine) (*graph.Graph, error) {
	return engine.CreateGraph(ctx, graph.Config{
		Name: GraphName,
		Nodes: map[string]graph.NodeConfig{
			NodeExtract:    {ToolName: ToolExtractFunctions},
			NodeComplexity: {ToolName: ToolCheckComplexity},
			NodeIssues:     {ToolName: ToolDetectIssues},
			NodeSuggest:    {ToolName: ToolSuggestImprovements},
		},
		Edges: map[string]string{
			NodeExtract:    NodeComplexity,
			NodeComplexity: NodeIssues,
			NodeIssues:     NodeSuggest,
			// suggest has no static edge; the loop back to extract is
			// driven by the routing override.
		},
		StartNode: NodeExtract,
		MaxSteps:  50,
	})
}
