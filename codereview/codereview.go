//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package codereview provides a small static code review workflow: four
// tools that extract functions, score complexity, flag issues, and suggest
// improvements, looping until the quality score clears a threshold. It
// serves as the reference graph for the engine.
package codereview

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"trpc.group/trpc-go/trpc-flow-go/graph"
)

// Tool names the package registers.
const (
	ToolExtractFunctions    = "extract_functions"
	ToolCheckComplexity     = "check_complexity"
	ToolDetectIssues        = "detect_issues"
	ToolSuggestImprovements = "suggest_improvements"
)

// State keys read and written by the code review tools.
const (
	// StateKeyCode is the source code under review.
	StateKeyCode = "code"
	// StateKeyFunctions lists the extracted function names.
	StateKeyFunctions = "functions"
	// StateKeyIssues accumulates detected issues across review passes.
	StateKeyIssues = "issues"
	// StateKeyComplexityScore is the computed complexity metric.
	StateKeyComplexityScore = "complexity_score"
	// StateKeyAnomalyCount is the number of detected issues.
	StateKeyAnomalyCount = "anomaly_count"
	// StateKeySuggestions lists the generated improvement suggestions.
	StateKeySuggestions = "suggestions"
	// StateKeyQualityScore is the review score in [0, 1].
	StateKeyQualityScore = "quality_score"
	// StateKeyIteration counts review passes.
	StateKeyIteration = "iteration"
	// StateKeyThreshold is the quality score that stops the loop (default 0.8).
	StateKeyThreshold = "threshold"
	// StateKeyMaxIterations caps review passes (default 5).
	StateKeyMaxIterations = "max_iterations"
)

const (
	defaultThreshold     = 0.8
	defaultMaxIterations = 5
)

// Register adds the four code review tools to the registry.
func Register(r *graph.Registry) {
	r.RegisterStateFunc(ToolExtractFunctions, extractFunctions)
	r.RegisterStateFunc(ToolCheckComplexity, checkComplexity)
	r.RegisterStateFunc(ToolDetectIssues, detectIssues)
	r.RegisterStateFunc(ToolSuggestImprovements, suggestImprovements)
}

// functionPattern matches `def name(` style function definitions.
var functionPattern = regexp.MustCompile(`def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)

// extractFunctions performs a very naive function extraction and seeds the
// bookkeeping fields used by the rest of the pipeline.
func extractFunctions(state graph.State) (graph.State, error) {
	code := stateString(state, StateKeyCode)
	matches := functionPattern.FindAllStringSubmatch(code, -1)
	functions := make([]string, 0, len(matches))
	for _, m := range matches {
		functions = append(functions, m[1])
	}
	state[StateKeyFunctions] = functions

	if _, ok := state[StateKeyIssues]; !ok {
		state[StateKeyIssues] = []string{}
	}
	if _, ok := state[StateKeyQualityScore]; !ok {
		state[StateKeyQualityScore] = 0.0
	}
	state[StateKeyIteration] = stateInt(state, StateKeyIteration, 0) + 1
	return state, nil
}

// branchingTokens each add two points to the complexity score per occurrence.
var branchingTokens = []string{" if ", " for ", " while ", " and ", " or "}

// checkComplexity computes a simple complexity metric from the line count
// and branching keywords.
func checkComplexity(state graph.State) (graph.State, error) {
	code := stateString(state, StateKeyCode)
	lineCount := 0
	for _, line := range splitLines(code) {
		if strings.TrimSpace(line) != "" {
			lineCount++
		}
	}
	branching := 0
	for _, tok := range branchingTokens {
		branching += strings.Count(code, tok)
	}
	state[StateKeyComplexityScore] = lineCount + 2*branching
	return state, nil
}

// detectIssues flags long lines and TODO comments.
func detectIssues(state graph.State) (graph.State, error) {
	code := stateString(state, StateKeyCode)
	issues := stateStringSlice(state, StateKeyIssues)
	for idx, line := range splitLines(code) {
		if len(line) > 100 {
			issues = append(issues, fmt.Sprintf("Line %d: line too long", idx+1))
		}
		if strings.Contains(line, "TODO") {
			issues = append(issues, fmt.Sprintf("Line %d: contains TODO", idx+1))
		}
	}
	state[StateKeyIssues] = issues
	state[StateKeyAnomalyCount] = len(issues)
	return state, nil
}

// suggestImprovements generates suggestions, updates the quality score, and
// decides whether to loop back to the extract node.
func suggestImprovements(state graph.State) (graph.State, error) {
	issues := stateStringSlice(state, StateKeyIssues)
	complexity := stateFloat(state, StateKeyComplexityScore, 0)

	var suggestions []string
	if complexity > 50 {
		suggestions = append(suggestions, "Consider splitting large functions into smaller ones.")
	}
	if len(issues) > 0 {
		suggestions = append(suggestions, "Fix the listed issues, especially long lines and TODOs.")
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Code looks reasonably clean.")
	}

	// Lower complexity and fewer issues raise the score.
	penalty := math.Min(complexity/100, 0.7)
	penalty += math.Min(float64(len(issues))*0.05, 0.3)
	quality := math.Max(0, 1.0-penalty)

	state[StateKeySuggestions] = suggestions
	state[StateKeyQualityScore] = math.Round(quality*1000) / 1000

	threshold := stateFloat(state, StateKeyThreshold, defaultThreshold)
	maxIterations := stateInt(state, StateKeyMaxIterations, defaultMaxIterations)
	iteration := stateInt(state, StateKeyIteration, 1)

	// Loop until the score clears the threshold, but cap iterations.
	if quality < threshold && iteration < maxIterations {
		state[graph.StateKeyNextNode] = NodeExtract
	} else {
		state[graph.StateKeyNextNode] = nil
	}
	return state, nil
}

// splitLines splits on newlines, dropping a trailing carriage return from
// each line.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// stateString reads a string value, defaulting to "".
func stateString(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}

// stateInt reads an integer value, tolerating JSON's float64 decoding.
func stateInt(state graph.State, key string, def int) int {
	switch v := state[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// stateFloat reads a float value, tolerating integers.
func stateFloat(state graph.State, key string, def float64) float64 {
	switch v := state[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// stateStringSlice reads a string slice, tolerating the []any shape produced
// by JSON decoding. It returns a fresh slice so appends never alias earlier
// log snapshots.
func stateStringSlice(state graph.State, key string) []string {
	switch v := state[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
