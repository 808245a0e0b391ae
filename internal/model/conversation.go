// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// MaxTurns is the maximum number of turns kept in memory per conversation.
// When exceeded, the oldest turns are pruned to prevent unbounded growth.
const MaxTurns = 1000

// TitleMaxLen is the backend's session title length: the first request
// truncated to 60 characters with an ellipsis appended when longer.
const TitleMaxLen = 60

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered turn list for one backend chat session.
//
// The turn list is the single shared mutable resource between the streaming
// session (which writes the finalized response into the matching turn) and
// the presentation layer (which reads it). Mutation only ever happens
// synchronously in response to one in-order event stream.
type Conversation struct {
	// Identity
	SessionID int64     `json:"session_id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Turns, oldest first.
	Turns []*Turn `json:"turns"`
}

// NewConversation creates an empty conversation for a backend session.
func NewConversation(sessionID int64, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		SessionID: sessionID,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     make([]*Turn, 0),
	}
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// AddTurn appends a turn to the conversation.
func (c *Conversation) AddTurn(t *Turn) {
	c.Turns = append(c.Turns, t)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldTurns()
}

// LastTurn returns the most recent turn, or nil if empty.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return c.Turns[len(c.Turns)-1]
}

// TurnByID returns the turn with the given backend id, or nil.
func (c *Conversation) TurnByID(id int64) *Turn {
	for _, t := range c.Turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TurnCount returns the number of turns.
func (c *Conversation) TurnCount() int {
	return len(c.Turns)
}

// IsEmpty returns true if there are no turns.
func (c *Conversation) IsEmpty() bool {
	return len(c.Turns) == 0
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle derives the title from the first turn's request, matching the
// backend's "New Chat" replacement rule.
func (c *Conversation) updateTitle() {
	if c.Title != "" && c.Title != "New Chat" {
		return
	}
	if len(c.Turns) == 0 {
		return
	}
	first := c.Turns[0].RequestText
	runes := []rune(first)
	if len(runes) > TitleMaxLen {
		c.Title = string(runes[:TitleMaxLen]) + "..."
		return
	}
	c.Title = first
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Chat"
}

// =============================================================================
// HELPERS
// =============================================================================

// pruneOldTurns drops the oldest turns once the list exceeds MaxTurns.
func (c *Conversation) pruneOldTurns() {
	if len(c.Turns) <= MaxTurns {
		return
	}
	c.Turns = c.Turns[len(c.Turns)-MaxTurns:]
}
