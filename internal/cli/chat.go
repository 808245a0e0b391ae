// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for the novachat CLI.
//
// Handles the "novachat chat" command which provides an interactive REPL
// streaming responses from the ChatNova backend.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear the local conversation view
//   /model [name]       Show or switch model
//   /tools              Toggle agent mode (tool events on the wire)
//   /search             Toggle web search augmentation
//   /history            Show the conversation so far
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/api"
	"github.com/jeranaias/novachat/internal/config"
	"github.com/jeranaias/novachat/internal/model"
	"github.com/jeranaias/novachat/internal/session"
	"github.com/jeranaias/novachat/internal/storage"
	"github.com/jeranaias/novachat/internal/telemetry"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Supports history
// navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT SESSION STATE
// =============================================================================

// chatState holds the state for one interactive chat run.
type chatState struct {
	client  *api.Client
	manager *session.Manager
	conv    *model.Conversation
	store   *storage.ConversationStore
	input   *ChatCLI

	model     string
	sessionID int64
	useTools  bool
	searchWeb bool
	nextTurn  int64

	// record receives stream stats; re-attached when the manager is rebuilt
	// on a config reload.
	record func(session.Stats)

	startTime time.Time
	streams   int
}

// applyConfig applies a hot-reloaded configuration between prompts. An
// explicit --model flag stays in effect.
func (st *chatState) applyConfig(cfg *config.Config) {
	st.client = api.NewClientWithConfig(cfg.ClientConfig())
	st.manager = session.NewManager(st.client)
	st.manager.OnFinished = st.record
	if flagModel == "" && cfg.DefaultModel != "" {
		st.model = cfg.DefaultModel
	}
	fmt.Println("[config reloaded]")
}

// configWatchPath returns the config file to watch for live edits.
func configWatchPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCmd() *cobra.Command {
	var (
		sessionID int64
		useTools  bool
		searchWeb bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive REPL that streams responses from the backend.

With --tools the agent endpoint is used and tool invocations are shown
live as the assistant works. Ctrl+C cancels the current generation
without losing the partial response.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(sessionID, useTools, searchWeb)
		},
	}
	cmd.Flags().Int64Var(&sessionID, "session", 0, "backend session id to chat in")
	cmd.Flags().BoolVar(&useTools, "tools", false, "use the agent endpoint with tool support")
	cmd.Flags().BoolVar(&searchWeb, "search", false, "enable web search augmentation")
	return cmd
}

func runChat(sessionID int64, useTools, searchWeb bool) error {
	cfg := config.Global()

	st := &chatState{
		client:    newClient(),
		conv:      model.NewConversation(sessionID, cfg.DefaultModel),
		model:     cfg.DefaultModel,
		sessionID: sessionID,
		useTools:  useTools || cfg.Chat.UseTools,
		searchWeb: searchWeb || cfg.Chat.SearchWeb,
		nextTurn:  1,
		startTime: time.Now(),
	}
	st.manager = session.NewManager(st.client)

	if store, err := storage.NewConversationStore(); err == nil {
		st.store = store
	} else {
		logrus.WithError(err).Warn("conversation cache unavailable")
	}

	// Stream stats land in the local telemetry database.
	if tpath, err := telemetry.DefaultPath(); err == nil {
		if ts, err := telemetry.NewStore(tpath); err == nil {
			defer ts.Close()
			st.record = func(stats session.Stats) {
				rec := telemetry.StreamRecord{
					SessionID:  st.sessionID,
					Model:      st.model,
					Outcome:    stats.Outcome,
					TTFTMs:     stats.TimeToFirstChunk().Milliseconds(),
					DurationMs: stats.Duration().Milliseconds(),
					ChunkCount: stats.ChunkCount,
					ToolCount:  stats.ToolCount,
					Bytes:      stats.Bytes,
				}
				if err := ts.Record(context.Background(), rec); err != nil {
					logrus.WithError(err).Debug("failed to record stream stats")
				}
			}
			st.manager.OnFinished = st.record
		}
	}

	st.input = NewChatCLI()
	defer st.input.Close()

	printWelcome(st)

	// First Ctrl+C cancels the in-flight generation; at the prompt liner
	// turns it into ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if st.manager.Busy() {
				st.manager.Cancel()
				fmt.Fprintln(os.Stderr, "\n[cancelled]")
			}
		}
	}()

	// Config edits apply between prompts without restarting the chat.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	reload := make(chan *config.Config, 1)
	if path := configWatchPath(); path != "" {
		go func() {
			if err := config.Watch(watchCtx, path, func(c *config.Config) {
				select {
				case reload <- c:
				default:
				}
			}); err != nil {
				logrus.WithError(err).Debug("config watch unavailable")
			}
		}()
	}

	for {
		input, err := st.input.ReadInput("novachat> ")
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D): exit gracefully.
			fmt.Println()
			printExitSummary(st)
			return nil
		}

		select {
		case c := <-reload:
			st.applyConfig(c)
		default:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := handleSlashCommand(st, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, "[error]", err)
			}
			if !cont {
				printExitSummary(st)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(st)
			return nil
		}

		if err := processMessage(st, input); err != nil {
			fmt.Fprintln(os.Stderr, "[error]", err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage dispatches one prompt and streams the response to stdout,
// blocking until the stream reaches a terminal state.
func processMessage(st *chatState, input string) error {
	turn := model.NewTurn(st.nextTurn, input, st.model)
	st.nextTurn++
	st.conv.AddTurn(turn)

	req := api.StreamRequest{
		Content:   input,
		Model:     st.model,
		SearchWeb: st.searchWeb,
		SessionID: st.sessionID,
		UseTools:  st.useTools,
	}

	var streamErr string

	obs := session.Observer{
		OnChunk: func(delta string) {
			fmt.Print(delta)
		},
		OnToolStart: func(tool, input string) {
			preview := util.TruncateRunes(util.CollapseNewlines(input), 60)
			fmt.Printf("\n[tool %s: %s]\n", tool, preview)
		},
		OnToolEnd: func(output string) {
			fmt.Printf("[tool done: %s]\n", util.TruncateRunes(util.CollapseNewlines(output), 60))
		},
		OnError: func(msg string) {
			streamErr = msg
		},
	}

	s, err := st.manager.Dispatch(turn, req, obs)
	if err != nil {
		return err
	}
	st.streams++

	// Done closes once the session is terminal and the turn is settled,
	// cancellation included (which fires no terminal callback).
	<-s.Done()

	fmt.Println()
	st.saveConversation()

	if streamErr != "" {
		return fmt.Errorf("%s", streamErr)
	}
	return nil
}

// saveConversation caches the conversation locally, best effort.
func (st *chatState) saveConversation() {
	if st.store == nil || st.sessionID == 0 {
		return
	}
	if err := st.store.Save(st.conv); err != nil {
		logrus.WithError(err).Debug("failed to cache conversation")
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes /commands. Returns false to exit the REPL.
func handleSlashCommand(st *chatState, input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/help", "/h":
		printChatHelp()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/clear", "/c":
		st.conv = model.NewConversation(st.sessionID, st.model)
		st.nextTurn = 1
		fmt.Println("Conversation cleared.")
		return true, nil

	case "/model":
		if len(fields) > 1 {
			st.model = fields[1]
			fmt.Println("Model set to", st.model)
		} else {
			fmt.Println("Current model:", st.model)
		}
		return true, nil

	case "/tools":
		st.useTools = !st.useTools
		fmt.Println("Agent mode:", onOff(st.useTools))
		return true, nil

	case "/search":
		st.searchWeb = !st.searchWeb
		fmt.Println("Web search:", onOff(st.searchWeb))
		return true, nil

	case "/history":
		printConversation(st.conv)
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// =============================================================================
// OUTPUT
// =============================================================================

func printWelcome(st *chatState) {
	fmt.Println("novachat", Version)
	fmt.Println("Model:", st.model, "| agent mode:", onOff(st.useTools), "| web search:", onOff(st.searchWeb))
	if st.sessionID != 0 {
		fmt.Println("Session:", st.sessionID)
	}
	fmt.Println("Type /help for commands, Ctrl+C to cancel a response, Ctrl+D to exit.")
	fmt.Println()
}

func printChatHelp() {
	fmt.Print(`Commands:
  /help, /h        Show this help
  /clear, /c       Clear the local conversation view
  /model [name]    Show or switch model
  /tools           Toggle agent mode
  /search          Toggle web search
  /history         Show the conversation so far
  /quit, /q        Exit
`)
}

func printConversation(conv *model.Conversation) {
	if conv.IsEmpty() {
		fmt.Println("No messages yet.")
		return
	}
	for _, turn := range conv.Turns {
		fmt.Println("you:", turn.Preview(100))
		for _, inv := range turn.Tools {
			fmt.Printf("  [tool %s: %s]\n", inv.Tool, inv.Status)
		}
		if resp := turn.DisplayResponse(); resp != "" {
			fmt.Println("assistant:", util.TruncateRunes(util.CollapseNewlines(resp), 200))
		}
	}
}

func printExitSummary(st *chatState) {
	st.saveConversation()
	elapsed := time.Since(st.startTime).Round(time.Second)
	fmt.Printf("Session: %d message(s) in %s. Goodbye.\n", st.streams, elapsed)
}
