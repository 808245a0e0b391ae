// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// TURN STATUS
// =============================================================================

// TurnStatus represents the display state of a turn's response.
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"
	TurnStreaming TurnStatus = "streaming"
	TurnComplete  TurnStatus = "complete"
	TurnFailed    TurnStatus = "failed"
)

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is a document reference attached to a turn's request.
type Attachment struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents one exchange: a user request and its assistant response.
// The ID is assigned by the backend at record creation time and is unique
// and monotonically increasing within a session.
type Turn struct {
	// Identity
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Request
	RequestText string       `json:"request_text"`
	Model       string       `json:"model,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Images      []string     `json:"images,omitempty"`

	// Response
	ResponseText string     `json:"response_text"`
	Status       TurnStatus `json:"status"`

	// Tool invocations attached to the assistant response, in start order.
	Tools []ToolInvocation `json:"tools,omitempty"`

	// Streaming accumulation (not persisted). Merged into ResponseText when
	// the stream finalizes.
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	streamBuf strings.Builder
}

// NewTurn creates a turn for a freshly submitted request.
func NewTurn(id int64, requestText, model string) *Turn {
	return &Turn{
		ID:          id,
		RequestText: requestText,
		Model:       model,
		CreatedAt:   time.Now(),
		Status:      TurnPending,
	}
}

// =============================================================================
// STREAMING ACCUMULATION
// =============================================================================

// BeginStreaming marks the turn as receiving a streamed response and resets
// the accumulation buffer.
func (t *Turn) BeginStreaming() {
	t.streamBuf.Reset()
	t.Status = TurnStreaming
}

// AppendDelta appends a content delta to the streaming buffer.
// No-op unless the turn is streaming.
func (t *Turn) AppendDelta(delta string) {
	if t.Status == TurnStreaming {
		t.streamBuf.WriteString(delta)
	}
}

// FinalizeResponse completes streaming: the accumulated buffer becomes the
// turn's response text and the turn is marked complete.
func (t *Turn) FinalizeResponse() {
	if t.Status != TurnStreaming {
		return
	}
	t.ResponseText = t.streamBuf.String()
	t.streamBuf.Reset()
	t.Status = TurnComplete
}

// MarkFailed marks the turn failed. The partial buffer is kept as the
// visible response text for inspection but is not a finalized response.
func (t *Turn) MarkFailed() {
	if t.Status == TurnStreaming {
		t.ResponseText = t.streamBuf.String()
		t.streamBuf.Reset()
	}
	t.Status = TurnFailed
}

// MarkCancelled stops streaming, keeping whatever was accumulated so far.
// Cancellation is not an error state.
func (t *Turn) MarkCancelled() {
	if t.Status == TurnStreaming {
		t.ResponseText = t.streamBuf.String()
		t.streamBuf.Reset()
		t.Status = TurnComplete
	}
}

// DisplayResponse returns the response to render: the live buffer while
// streaming, the final text otherwise.
func (t *Turn) DisplayResponse() string {
	if t.Status == TurnStreaming {
		return t.streamBuf.String()
	}
	return t.ResponseText
}

// HasResponse returns true if the turn carries a non-empty stored response.
func (t *Turn) HasResponse() bool {
	return t.ResponseText != ""
}

// Preview returns a truncated single-line preview of the request.
func (t *Turn) Preview(maxLen int) string {
	s := strings.ReplaceAll(t.RequestText, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// RESPONSE VERSION
// =============================================================================

// ResponseVersion is a snapshot of a turn's response at a point in time.
// A regeneration produces a new version; the latest version is the one
// displayed by default.
type ResponseVersion struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model,omitempty"`
}

// VersionOf captures the turn's current response as a version snapshot.
func VersionOf(t *Turn) ResponseVersion {
	return ResponseVersion{
		ID:        t.ID,
		Text:      t.ResponseText,
		CreatedAt: t.CreatedAt,
		Model:     t.Model,
	}
}
