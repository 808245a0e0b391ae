// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

func TestTurnStreamingLifecycle(t *testing.T) {
	turn := NewTurn(1, "question", "gemini-2.5-flash")
	if turn.Status != TurnPending {
		t.Errorf("new turn status = %v, want pending", turn.Status)
	}

	turn.BeginStreaming()
	if turn.Status != TurnStreaming {
		t.Errorf("status = %v, want streaming", turn.Status)
	}

	turn.AppendDelta("Hel")
	turn.AppendDelta("lo")
	if got := turn.DisplayResponse(); got != "Hello" {
		t.Errorf("DisplayResponse() while streaming = %q, want %q", got, "Hello")
	}
	if turn.ResponseText != "" {
		t.Errorf("ResponseText set before finalize: %q", turn.ResponseText)
	}

	turn.FinalizeResponse()
	if turn.Status != TurnComplete {
		t.Errorf("status = %v, want complete", turn.Status)
	}
	if turn.ResponseText != "Hello" {
		t.Errorf("ResponseText = %q, want %q", turn.ResponseText, "Hello")
	}
}

func TestTurnAppendDeltaOnlyWhileStreaming(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.AppendDelta("dropped")
	turn.BeginStreaming()
	turn.AppendDelta("kept")
	turn.FinalizeResponse()
	turn.AppendDelta("late")
	if turn.ResponseText != "kept" {
		t.Errorf("ResponseText = %q, want %q", turn.ResponseText, "kept")
	}
}

func TestTurnMarkFailedKeepsPartial(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.BeginStreaming()
	turn.AppendDelta("part")
	turn.MarkFailed()
	if turn.Status != TurnFailed {
		t.Errorf("status = %v, want failed", turn.Status)
	}
	if turn.ResponseText != "part" {
		t.Errorf("ResponseText = %q, want partial kept", turn.ResponseText)
	}
}

func TestTurnMarkCancelled(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.BeginStreaming()
	turn.AppendDelta("so far")
	turn.MarkCancelled()
	if turn.Status != TurnComplete {
		t.Errorf("status = %v, want complete (cancel is not an error)", turn.Status)
	}
	if turn.ResponseText != "so far" {
		t.Errorf("ResponseText = %q, want accumulated text", turn.ResponseText)
	}

	// Cancelling a non-streaming turn changes nothing.
	done := NewTurn(2, "q", "")
	done.ResponseText = "final"
	done.Status = TurnComplete
	done.MarkCancelled()
	if done.ResponseText != "final" || done.Status != TurnComplete {
		t.Errorf("cancel mutated a settled turn: %+v", done)
	}
}

func TestTurnFinalizeRequiresStreaming(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.ResponseText = "stored"
	turn.FinalizeResponse()
	if turn.ResponseText != "stored" || turn.Status != TurnPending {
		t.Errorf("finalize mutated a non-streaming turn: %+v", turn)
	}
}

func TestTurnPreview(t *testing.T) {
	turn := NewTurn(1, "line one\nline two", "")
	if got := turn.Preview(80); got != "line one line two" {
		t.Errorf("Preview() = %q", got)
	}
	long := NewTurn(2, strings.Repeat("x", 50), "")
	got := long.Preview(10)
	if got != strings.Repeat("x", 7)+"..." {
		t.Errorf("Preview(10) = %q", got)
	}
}

// =============================================================================
// TOOL TRACKING
// =============================================================================

func TestToolLIFOResolution(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.StartTool("outer", "a")
	turn.StartTool("inner", "b")
	if turn.RunningTools() != 2 {
		t.Fatalf("RunningTools() = %d, want 2", turn.RunningTools())
	}

	// First tool_end resolves the most recently started invocation.
	if !turn.ResolveTool("inner result") {
		t.Fatal("ResolveTool() = false with running invocations")
	}
	if turn.Tools[1].Status != ToolCompleted || turn.Tools[1].Output != "inner result" {
		t.Errorf("inner tool = %+v, want completed first", turn.Tools[1])
	}
	if turn.Tools[0].Status != ToolRunning {
		t.Errorf("outer tool resolved out of order: %+v", turn.Tools[0])
	}

	if !turn.ResolveTool("outer result") {
		t.Fatal("second ResolveTool() = false")
	}
	if turn.Tools[0].Output != "outer result" {
		t.Errorf("outer tool output = %q", turn.Tools[0].Output)
	}

	// No running invocation left: the event is dropped.
	if turn.ResolveTool("stray") {
		t.Error("ResolveTool() = true with nothing running")
	}
}

func TestToolFailRunning(t *testing.T) {
	turn := NewTurn(1, "q", "")
	turn.StartTool("a", "")
	turn.ResolveTool("done")
	turn.StartTool("b", "")
	turn.FailRunningTools()
	if turn.Tools[0].Status != ToolCompleted {
		t.Errorf("completed tool demoted: %+v", turn.Tools[0])
	}
	if turn.Tools[1].Status != ToolFailed {
		t.Errorf("running tool = %+v, want failed", turn.Tools[1])
	}
	if turn.RunningTools() != 0 {
		t.Errorf("RunningTools() = %d, want 0", turn.RunningTools())
	}
}
