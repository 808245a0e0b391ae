// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/model"
	"github.com/jeranaias/novachat/internal/storage"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// CONVERSATIONS COMMAND
// =============================================================================

func newConversationsCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List locally cached conversations",
		Long: `List the conversations cached under ~/.novachat/conversations.

The cache is written as you chat; it keeps sessions readable when the
backend is unreachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewConversationStore()
			if err != nil {
				return err
			}
			var metas []storage.ConversationMeta
			if search != "" {
				metas, err = store.SearchTurns(search)
			} else {
				metas, err = store.List()
			}
			if err != nil {
				return err
			}
			fmt.Print(storage.FormatConversationList(metas))
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by request/response content")
	return cmd
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

func newExportCmd() *cobra.Command {
	var (
		byIndex bool
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a cached conversation as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewConversationStore()
			if err != nil {
				return err
			}
			return runExport(store, args[0], byIndex, out)
		},
	}
	cmd.Flags().BoolVar(&byIndex, "index", false, "treat the argument as a list position (0 = most recent)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}

func runExport(store *storage.ConversationStore, arg string, byIndex bool, outPath string) error {
	var conv *model.Conversation
	var err error
	if byIndex {
		idx, perr := strconv.Atoi(arg)
		if perr != nil {
			return fmt.Errorf("invalid index %q", arg)
		}
		conv, err = store.LoadByIndex(idx)
	} else {
		id, perr := strconv.ParseInt(arg, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid session id %q", arg)
		}
		conv, err = store.Load(id)
	}
	if err != nil {
		return err
	}

	md := storage.ExportMarkdown(conv)
	if outPath == "" {
		fmt.Print(md)
		return nil
	}
	if err := util.AtomicWriteFile(outPath, []byte(md), 0644); err != nil {
		return err
	}
	fmt.Printf("Exported %d turn(s) to %s\n", conv.TurnCount(), outPath)
	return nil
}
