// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/telemetry"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// STATS COMMAND
// =============================================================================

func newStatsCmd() *cobra.Command {
	var (
		recent    int
		purgeDays int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show local streaming statistics",
		Long: `Summarize the locally recorded stream statistics: outcomes, time to
first chunk, and durations. Nothing here is sent anywhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(recent, purgeDays)
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 0, "also list the N most recent streams")
	cmd.Flags().IntVar(&purgeDays, "purge", 0, "delete records older than N days first")
	return cmd
}

func runStats(recent, purgeDays int) error {
	path, err := telemetry.DefaultPath()
	if err != nil {
		return err
	}
	store, err := telemetry.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if purgeDays > 0 {
		n, err := store.Purge(ctx, time.Now().AddDate(0, 0, -purgeDays))
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d record(s).\n", n)
	}

	sum, err := store.Summarize(ctx)
	if err != nil {
		return err
	}
	if sum.Total == 0 {
		fmt.Println("No streams recorded yet.")
		return nil
	}

	fmt.Println("Streams:  ", sum.Total)
	fmt.Printf("Outcomes:  %d completed, %d failed, %d cancelled\n",
		sum.Completed, sum.Failed, sum.Cancelled)
	fmt.Println("Avg TTFC: ", util.FloatToString(sum.AvgTTFTMs), "ms")
	fmt.Println("Avg time: ", util.FloatToString(sum.AvgDurationMs), "ms")
	fmt.Println("Chunks:   ", sum.TotalChunks)
	if sum.TotalTools > 0 {
		fmt.Println("Tools:    ", sum.TotalTools)
	}

	if recent > 0 {
		records, err := store.Recent(ctx, recent)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(util.PadWidth("When", 18) + " " + util.PadWidth("Outcome", 10) + " " +
			util.PadWidth("TTFC", 8) + " " + util.PadWidth("Time", 8) + " Model")
		for _, r := range records {
			fmt.Println(util.PadWidth(r.CreatedAt.Format("2006-01-02 15:04"), 18) + " " +
				util.PadWidth(r.Outcome, 10) + " " +
				util.PadWidth(util.Int64ToString(r.TTFTMs)+"ms", 8) + " " +
				util.PadWidth(util.Int64ToString(r.DurationMs)+"ms", 8) + " " +
				r.Model)
		}
	}
	return nil
}
