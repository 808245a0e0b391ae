// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, StreamRecord{
		SessionID:  7,
		Model:      "gemini-2.5-flash",
		Outcome:    "completed",
		TTFTMs:     120,
		DurationMs: 900,
		ChunkCount: 14,
		ToolCount:  2,
		Bytes:      2048,
	}))
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "failed"}))

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	require.Equal(t, "failed", recent[0].Outcome)
	require.Equal(t, "completed", recent[1].Outcome)
	require.Equal(t, int64(7), recent[1].SessionID)
	require.Equal(t, 14, recent[1].ChunkCount)
	require.False(t, recent[1].CreatedAt.IsZero())
}

func TestSummarize(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "completed", TTFTMs: 100, DurationMs: 1000, ChunkCount: 10}))
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "completed", TTFTMs: 300, DurationMs: 3000, ChunkCount: 30}))
	// A failed stream with no first chunk must not drag the TTFT average.
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "failed", TTFTMs: 0, DurationMs: 50}))
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "cancelled", TTFTMs: 0, DurationMs: 10}))

	sum, err := s.Summarize(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, sum.Total)
	require.Equal(t, 2, sum.Completed)
	require.Equal(t, 1, sum.Failed)
	require.Equal(t, 1, sum.Cancelled)
	require.InDelta(t, 200.0, sum.AvgTTFTMs, 0.01)
	require.Equal(t, 40, sum.TotalChunks)
}

func TestSummarizeEmpty(t *testing.T) {
	s := testStore(t)
	sum, err := s.Summarize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, sum.Total)
	require.Zero(t, sum.AvgTTFTMs)
}

func TestPurge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "completed", CreatedAt: old}))
	require.NoError(t, s.Record(ctx, StreamRecord{Outcome: "completed"}))

	n, err := s.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	sum, err := s.Summarize(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Total)
}

func TestStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), StreamRecord{Outcome: "completed"}))
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	sum, err := s2.Summarize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Total)
}
