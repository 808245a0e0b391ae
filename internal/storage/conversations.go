// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides a local conversation cache for novachat.
//
// The backend owns the canonical history; this cache keeps the reconciled
// conversations readable offline and survives restarts. One JSON file per
// backend session, written atomically.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/novachat/internal/model"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// CONVERSATION META
// =============================================================================

// ConversationMeta contains metadata for listing cached conversations.
type ConversationMeta struct {
	SessionID int64     `json:"session_id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
	Preview   string    `json:"preview"` // First request truncated
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles local conversation persistence.
type ConversationStore struct {
	// BaseDir is the directory for cached conversations
	// Default: ~/.novachat/conversations/
	BaseDir string

	// MaxConversations limits cached conversations (0 = unlimited)
	MaxConversations int
}

// NewConversationStore creates a store under the user's home directory.
func NewConversationStore() (*ConversationStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewConversationStoreWithDir(filepath.Join(homeDir, ".novachat", "conversations"))
}

// NewConversationStoreWithDir creates a store with a custom directory.
func NewConversationStoreWithDir(baseDir string) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ConversationStore{
		BaseDir:          baseDir,
		MaxConversations: 100,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation, keyed by its backend session id.
func (s *ConversationStore) Save(conv *model.Conversation) error {
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with fsync prevents a torn cache file on crash.
	if err := util.AtomicWriteFile(s.filePath(conv.SessionID), data, 0644); err != nil {
		return err
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}
	return nil
}

// enforceLimit removes the oldest conversations once over the limit.
func (s *ConversationStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxConversations
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].SessionID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a cached conversation by session id.
func (s *ConversationStore) Load(sessionID int64) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// LoadByIndex loads a conversation by list position (0 = most recent).
func (s *ConversationStore) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}
	return s.Load(metas[index].SessionID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all cached conversations, most recently updated first.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	var metas []ConversationMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), ".json"), 10, 64)
		if err != nil {
			continue
		}
		conv, err := s.Load(id)
		if err != nil {
			// Skip corrupted files
			continue
		}

		preview := ""
		if len(conv.Turns) > 0 {
			preview = util.TruncateRunes(util.CollapseNewlines(conv.Turns[0].RequestText), 80)
		}

		metas = append(metas, ConversationMeta{
			SessionID: conv.SessionID,
			Title:     conv.GetTitle(),
			Model:     conv.Model,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
			TurnCount: conv.TurnCount(),
			Preview:   preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search finds conversations whose title or preview matches the query.
func (s *ConversationStore) Search(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// SearchTurns searches conversations by request and response content.
// Returns conversations where any turn matches the query, case-insensitive.
func (s *ConversationStore) SearchTurns(query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []ConversationMeta
	for _, meta := range all {
		conv, err := s.Load(meta.SessionID)
		if err != nil {
			continue
		}
		for _, turn := range conv.Turns {
			if strings.Contains(strings.ToLower(turn.RequestText), query) ||
				strings.Contains(strings.ToLower(turn.ResponseText), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a cached conversation by session id.
func (s *ConversationStore) Delete(sessionID int64) error {
	if err := os.Remove(s.filePath(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// Clear removes every cached conversation.
func (s *ConversationStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// filePath returns the cache file path for a session id.
func (s *ConversationStore) filePath(sessionID int64) string {
	return filepath.Join(s.BaseDir, strconv.FormatInt(sessionID, 10)+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown: title, timestamps, and
// every turn with its displayed response and tool trace.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, turn := range conv.Turns {
		sb.WriteString("**User** (" + turn.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(turn.RequestText)
		sb.WriteString("\n\n")

		for _, inv := range turn.Tools {
			sb.WriteString("**Tool** " + inv.Tool + " (" + string(inv.Status) + ")")
			if inv.Output != "" {
				sb.WriteString(": " + util.TruncateRunes(util.CollapseNewlines(inv.Output), 120))
			}
			sb.WriteString("\n\n")
		}

		if turn.DisplayResponse() != "" {
			sb.WriteString("**Assistant**:\n\n")
			sb.WriteString(turn.DisplayResponse())
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

// FormatConversationList formats cached conversations as a display table.
func FormatConversationList(metas []ConversationMeta) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString("Conversations:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(util.PadWidth("ID", 8) + " " + util.PadWidth("Updated", 18) + " " + util.PadWidth("Turns", 6) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range metas {
		sb.WriteString(util.PadWidth(strconv.FormatInt(m.SessionID, 10), 8) + " " +
			util.PadWidth(m.UpdatedAt.Format("2006-01-02 15:04"), 18) + " " +
			util.PadWidth(util.IntToString(m.TurnCount), 6) + " " +
			util.TruncateWidth(m.Title, 40) + "\n")
	}
	return sb.String()
}
