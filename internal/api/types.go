// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/jeranaias/novachat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// StreamRequest is the payload for a streaming chat dispatch.
type StreamRequest struct {
	// Content is the user's message text.
	Content string `json:"content"`

	// Model is the backend model identifier.
	Model string `json:"model"`

	// SearchWeb enables the backend's web search augmentation.
	SearchWeb bool `json:"search_web,omitempty"`

	// Images are base64 encoded image payloads (multimodal models only).
	Images []string `json:"images,omitempty"`

	// SessionID associates the message with a chat session. Zero means no
	// session context. Sent as a query parameter, not in the body.
	SessionID int64 `json:"-"`

	// UseTools selects the agent stream endpoint, which multiplexes tool
	// lifecycle events onto the wire alongside content deltas.
	UseTools bool `json:"-"`
}

// SessionCreate is the payload for creating a chat session.
type SessionCreate struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// MessageRecord is one persisted request/response pair as the backend
// returns it: flat, at most one stored response, no version history.
type MessageRecord struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	SearchWeb bool      `json:"search_web"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn converts the wire record into the client's turn model. A record with
// an empty response stays a valid pending turn.
func (r MessageRecord) Turn() *model.Turn {
	status := model.TurnComplete
	if r.Response == "" {
		status = model.TurnPending
	}
	return &model.Turn{
		ID:           r.ID,
		RequestText:  r.Content,
		ResponseText: r.Response,
		Model:        r.Model,
		CreatedAt:    r.CreatedAt,
		Status:       status,
	}
}

// MessagePage is one page of history records.
type MessagePage struct {
	Data []MessageRecord `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// PageMeta describes pagination state.
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Session is one backend chat session.
type Session struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SessionPage is one page of sessions.
type SessionPage struct {
	Data []Session `json:"data"`
	Meta PageMeta  `json:"meta"`
}

// ModelList is the backend's available-model listing.
type ModelList struct {
	Models []string `json:"models"`
}

// UploadResult describes an uploaded session document.
type UploadResult struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Kind     string `json:"kind,omitempty"`
}

// Transcription is the text extracted from an uploaded audio clip.
type Transcription struct {
	Text string `json:"text"`
}
