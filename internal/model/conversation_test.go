// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

func TestConversationAddAndLookup(t *testing.T) {
	c := NewConversation(7, "gemini-2.5-flash")
	if !c.IsEmpty() {
		t.Error("new conversation not empty")
	}
	if c.LastTurn() != nil {
		t.Error("LastTurn() != nil on empty conversation")
	}

	a := NewTurn(1, "first", "")
	b := NewTurn(2, "second", "")
	c.AddTurn(a)
	c.AddTurn(b)

	if c.TurnCount() != 2 {
		t.Errorf("TurnCount() = %d, want 2", c.TurnCount())
	}
	if c.LastTurn() != b {
		t.Error("LastTurn() != most recent")
	}
	if c.TurnByID(1) != a {
		t.Error("TurnByID(1) lookup failed")
	}
	if c.TurnByID(99) != nil {
		t.Error("TurnByID(99) != nil for unknown id")
	}
}

func TestConversationTitleFromFirstTurn(t *testing.T) {
	c := NewConversation(1, "")
	if c.GetTitle() != "New Chat" {
		t.Errorf("GetTitle() = %q, want New Chat", c.GetTitle())
	}

	c.AddTurn(NewTurn(1, "How do goroutines work?", ""))
	if c.Title != "How do goroutines work?" {
		t.Errorf("Title = %q", c.Title)
	}

	// Later turns never rename.
	c.AddTurn(NewTurn(2, "unrelated", ""))
	if c.Title != "How do goroutines work?" {
		t.Errorf("Title changed by later turn: %q", c.Title)
	}
}

func TestConversationTitleTruncation(t *testing.T) {
	c := NewConversation(1, "")
	c.AddTurn(NewTurn(1, strings.Repeat("a", 100), ""))
	want := strings.Repeat("a", TitleMaxLen) + "..."
	if c.Title != want {
		t.Errorf("Title = %q (len %d), want %d chars plus ellipsis", c.Title, len(c.Title), TitleMaxLen)
	}
}

func TestConversationReplacesDefaultTitle(t *testing.T) {
	c := NewConversation(1, "")
	c.Title = "New Chat"
	c.AddTurn(NewTurn(1, "real question", ""))
	if c.Title != "real question" {
		t.Errorf("Title = %q, want backend default replaced", c.Title)
	}

	named := NewConversation(2, "")
	named.Title = "my project notes"
	named.AddTurn(NewTurn(1, "something", ""))
	if named.Title != "my project notes" {
		t.Errorf("explicit title overwritten: %q", named.Title)
	}
}

func TestConversationPrunesOldTurns(t *testing.T) {
	c := NewConversation(1, "")
	for i := 0; i < MaxTurns+10; i++ {
		c.AddTurn(NewTurn(int64(i), "q", ""))
	}
	if c.TurnCount() != MaxTurns {
		t.Errorf("TurnCount() = %d, want %d", c.TurnCount(), MaxTurns)
	}
	// The oldest were dropped, the newest kept.
	if c.Turns[0].ID != 10 {
		t.Errorf("oldest kept turn id = %d, want 10", c.Turns[0].ID)
	}
	if c.LastTurn().ID != int64(MaxTurns+9) {
		t.Errorf("newest turn id = %d", c.LastTurn().ID)
	}
}
