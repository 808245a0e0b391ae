// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/novachat/internal/model"
	"github.com/jeranaias/novachat/internal/storage"
)

func seededStore(t *testing.T) *storage.ConversationStore {
	t.Helper()
	store, err := storage.NewConversationStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	conv := model.NewConversation(7, "gemini-2.5-flash")
	turn := model.NewTurn(1, "what is Go?", "gemini-2.5-flash")
	turn.ResponseText = "A programming language."
	turn.Status = model.TurnComplete
	conv.AddTurn(turn)
	if err := store.Save(conv); err != nil {
		t.Fatalf("save: %v", err)
	}
	return store
}

func TestRunExportBySessionID(t *testing.T) {
	store := seededStore(t)
	out := filepath.Join(t.TempDir(), "conv.md")

	if err := runExport(store, "7", false, out); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	md := string(data)
	if !strings.Contains(md, "what is Go?") {
		t.Errorf("export missing request text:\n%s", md)
	}
	if !strings.Contains(md, "A programming language.") {
		t.Errorf("export missing response text:\n%s", md)
	}
}

func TestRunExportByIndex(t *testing.T) {
	store := seededStore(t)
	out := filepath.Join(t.TempDir(), "conv.md")

	// Index 0 is the most recently updated conversation.
	if err := runExport(store, "0", true, out); err != nil {
		t.Fatalf("runExport() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("export not written: %v", err)
	}
}

func TestRunExportErrors(t *testing.T) {
	store := seededStore(t)

	if err := runExport(store, "999", false, ""); err == nil {
		t.Error("missing session id produced no error")
	}
	if err := runExport(store, "5", true, ""); err == nil {
		t.Error("out-of-range index produced no error")
	}
	if err := runExport(store, "abc", false, ""); err == nil {
		t.Error("non-numeric session id produced no error")
	}
}
