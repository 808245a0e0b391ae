// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/history"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// HISTORY COMMAND
// =============================================================================

func newHistoryCmd() *cobra.Command {
	var (
		sessionID int64
		limit     int
		clear     bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the reconciled chat history",
		Long: `Fetch the stored chat history and reconcile regenerated turns.

The backend stores every send as a flat record, so regenerating a response
produces duplicate rows. This command groups them back into logical turns:
a repeated prompt within the regeneration window becomes one entry with a
version count, displaying the latest response.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clear {
				return runHistoryClear(sessionID)
			}
			return runHistory(sessionID, limit)
		},
	}
	cmd.Flags().Int64Var(&sessionID, "session", 0, "restrict to one backend session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many turns (0 = all)")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete the stored history")
	return cmd
}

func runHistory(sessionID int64, limit int) error {
	client := newClient()
	turns, err := client.FullHistory(context.Background(), sessionID)
	if err != nil {
		return err
	}

	slots := history.Reconcile(turns)
	if len(slots) == 0 {
		fmt.Println("No history.")
		return nil
	}

	start := 0
	if limit > 0 && len(slots) > limit {
		start = len(slots) - limit
		fmt.Printf("(showing last %d of %d turns)\n\n", limit, len(slots))
	}

	for _, slot := range slots[start:] {
		marker := ""
		if n := slot.VersionCount(); n > 1 {
			marker = " (" + strconv.Itoa(n) + " versions)"
		}
		fmt.Printf("[%s] you: %s%s\n",
			slot.Base.CreatedAt.Format("2006-01-02 15:04"),
			util.TruncateRunes(util.CollapseNewlines(slot.Base.RequestText), 80),
			marker)

		if resp := slot.Displayed(); resp != "" {
			fmt.Printf("           assistant: %s\n",
				util.TruncateRunes(util.CollapseNewlines(resp), 120))
		} else {
			fmt.Println("           assistant: (no response)")
		}
	}
	return nil
}

func runHistoryClear(sessionID int64) error {
	if err := newClient().DeleteHistory(context.Background(), sessionID); err != nil {
		return err
	}
	fmt.Println("History cleared.")
	return nil
}
