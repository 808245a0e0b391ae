// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/jeranaias/novachat/internal/config"
	"github.com/jeranaias/novachat/internal/model"
	"github.com/jeranaias/novachat/internal/session"
)

func testState() *chatState {
	return &chatState{
		conv:  model.NewConversation(0, "gemini-2.5-flash"),
		model: "gemini-2.5-flash",
	}
}

func TestSlashCommandQuit(t *testing.T) {
	for _, cmd := range []string{"/quit", "/q", "/exit"} {
		cont, err := handleSlashCommand(testState(), cmd)
		if err != nil {
			t.Errorf("%s: error = %v", cmd, err)
		}
		if cont {
			t.Errorf("%s: cont = true, want exit", cmd)
		}
	}
}

func TestSlashCommandModelSwitch(t *testing.T) {
	st := testState()
	cont, err := handleSlashCommand(st, "/model gpt-4o")
	if err != nil || !cont {
		t.Fatalf("cont=%v err=%v", cont, err)
	}
	if st.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", st.model)
	}
}

func TestSlashCommandToggles(t *testing.T) {
	st := testState()
	handleSlashCommand(st, "/tools")
	if !st.useTools {
		t.Error("/tools did not enable agent mode")
	}
	handleSlashCommand(st, "/tools")
	if st.useTools {
		t.Error("/tools did not toggle back off")
	}
	handleSlashCommand(st, "/search")
	if !st.searchWeb {
		t.Error("/search did not enable web search")
	}
}

func TestSlashCommandClear(t *testing.T) {
	st := testState()
	st.conv.AddTurn(model.NewTurn(1, "q", ""))
	st.nextTurn = 2

	cont, err := handleSlashCommand(st, "/clear")
	if err != nil || !cont {
		t.Fatalf("cont=%v err=%v", cont, err)
	}
	if !st.conv.IsEmpty() {
		t.Error("conversation not cleared")
	}
	if st.nextTurn != 1 {
		t.Errorf("nextTurn = %d, want reset", st.nextTurn)
	}
}

func TestApplyConfigReload(t *testing.T) {
	st := testState()
	recorded := false
	st.record = func(session.Stats) { recorded = true }

	cfg := config.Default()
	cfg.DefaultModel = "gpt-4o"
	st.applyConfig(cfg)

	if st.model != "gpt-4o" {
		t.Errorf("model = %q, want reloaded default", st.model)
	}
	if st.client == nil || st.manager == nil {
		t.Fatal("client/manager not rebuilt on reload")
	}
	if st.manager.OnFinished == nil {
		t.Fatal("stats recorder not re-attached")
	}
	st.manager.OnFinished(session.Stats{})
	if !recorded {
		t.Error("rebuilt manager does not route stats to the recorder")
	}
}

func TestApplyConfigReloadKeepsModelFlag(t *testing.T) {
	flagModel = "pinned-model"
	defer func() { flagModel = "" }()

	st := testState()
	cfg := config.Default()
	cfg.DefaultModel = "gpt-4o"
	st.applyConfig(cfg)

	if st.model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want the --model override kept", st.model)
	}
}

func TestSlashCommandUnknown(t *testing.T) {
	cont, err := handleSlashCommand(testState(), "/bogus")
	if err == nil {
		t.Error("unknown command produced no error")
	}
	if !cont {
		t.Error("unknown command ended the REPL")
	}
}
