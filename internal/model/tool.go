// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TOOL INVOCATION TYPE
// =============================================================================

// ToolStatus represents the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolFailed    ToolStatus = "failed"
)

// ToolInvocation records one tool call made by the assistant during a turn.
type ToolInvocation struct {
	Tool   string     `json:"tool"`
	Input  string     `json:"input"`
	Output string     `json:"output,omitempty"`
	Status ToolStatus `json:"status"`
}

// =============================================================================
// TOOL CALL TRACKING
// =============================================================================

// StartTool appends a new running tool invocation to the turn.
// Several invocations may be running at once: the backend can start
// nested tools before the outer one completes.
func (t *Turn) StartTool(tool, input string) {
	t.Tools = append(t.Tools, ToolInvocation{
		Tool:   tool,
		Input:  input,
		Status: ToolRunning,
	})
}

// ResolveTool completes the most recently started running invocation with
// the given output. The wire protocol carries no correlation id, so
// resolution is LIFO: nested tool_end events arrive before the outer ones.
// If no invocation is running, the event is dropped silently.
func (t *Turn) ResolveTool(output string) bool {
	for i := len(t.Tools) - 1; i >= 0; i-- {
		if t.Tools[i].Status == ToolRunning {
			t.Tools[i].Output = output
			t.Tools[i].Status = ToolCompleted
			return true
		}
	}
	return false
}

// FailRunningTools marks every still-running invocation failed. Called when
// the session reaches a failed terminal state mid-tool.
func (t *Turn) FailRunningTools() {
	for i := range t.Tools {
		if t.Tools[i].Status == ToolRunning {
			t.Tools[i].Status = ToolFailed
		}
	}
}

// RunningTools returns the number of invocations still running.
func (t *Turn) RunningTools() int {
	n := 0
	for i := range t.Tools {
		if t.Tools[i].Status == ToolRunning {
			n++
		}
	}
	return n
}
