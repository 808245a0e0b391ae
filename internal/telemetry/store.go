// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-stream statistics in a local SQLite
// database: time to first chunk, duration, chunk counts, and outcome. The
// data never leaves the machine; it backs the `novachat stats` command.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// STREAM RECORD
// =============================================================================

// StreamRecord is one finished stream's statistics.
type StreamRecord struct {
	ID         int64
	SessionID  int64
	Model      string
	Outcome    string // completed | failed | cancelled
	TTFTMs     int64  // time to first chunk, 0 when no chunk arrived
	DurationMs int64
	ChunkCount int
	ToolCount  int
	Bytes      int
	CreatedAt  time.Time
}

// Summary aggregates recorded streams.
type Summary struct {
	Total         int
	Completed     int
	Failed        int
	Cancelled     int
	AvgTTFTMs     float64 // over streams that received a first chunk
	AvgDurationMs float64
	TotalChunks   int
	TotalTools    int
}

// =============================================================================
// STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS streams (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  INTEGER NOT NULL DEFAULT 0,
	model       TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	ttft_ms     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	tool_count  INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_streams_created ON streams(created_at);
CREATE INDEX IF NOT EXISTS idx_streams_outcome ON streams(outcome);
`

// Store persists stream statistics.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default telemetry database path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".novachat", "telemetry.db"), nil
}

// NewStore opens (creating if needed) the telemetry database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// RECORDING
// =============================================================================

// Record inserts one finished stream's statistics.
func (s *Store) Record(ctx context.Context, r StreamRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streams (session_id, model, outcome, ttft_ms, duration_ms, chunk_count, tool_count, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Model, r.Outcome, r.TTFTMs, r.DurationMs, r.ChunkCount, r.ToolCount, r.Bytes, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record stream: %w", err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Recent returns the most recent n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]StreamRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, model, outcome, ttft_ms, duration_ms, chunk_count, tool_count, bytes, created_at
		FROM streams ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}
	defer rows.Close()

	var out []StreamRecord
	for rows.Next() {
		var r StreamRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Model, &r.Outcome, &r.TTFTMs,
			&r.DurationMs, &r.ChunkCount, &r.ToolCount, &r.Bytes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stream row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize aggregates all recorded streams.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN ttft_ms > 0 THEN ttft_ms END), 0),
		       COALESCE(AVG(duration_ms), 0),
		       COALESCE(SUM(chunk_count), 0),
		       COALESCE(SUM(tool_count), 0)
		FROM streams`).Scan(
		&sum.Total, &sum.Completed, &sum.Failed, &sum.Cancelled,
		&sum.AvgTTFTMs, &sum.AvgDurationMs, &sum.TotalChunks, &sum.TotalTools)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize streams: %w", err)
	}
	return &sum, nil
}

// Purge deletes records older than the cutoff and returns how many went.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM streams WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge streams: %w", err)
	}
	return res.RowsAffected()
}
