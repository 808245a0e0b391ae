// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/api"
	"github.com/jeranaias/novachat/internal/util"
)

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage backend chat sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(),
		newSessionsCreateCmd(),
		newSessionsDeleteCmd(),
		newSessionsUploadCmd(),
	)
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := newClient().ListSessions(context.Background())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions.")
				return nil
			}
			fmt.Println(util.PadWidth("ID", 8) + " " + util.PadWidth("Created", 18) + " Title")
			for _, s := range sessions {
				fmt.Println(util.PadWidth(strconv.FormatInt(s.ID, 10), 8) + " " +
					util.PadWidth(s.CreatedAt.Format("2006-01-02 15:04"), 18) + " " +
					util.TruncateWidth(s.Title, 50))
			}
			return nil
		},
	}
}

func newSessionsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newClient().CreateSession(context.Background(), api.SessionCreate{Title: args[0]})
			if err != nil {
				return err
			}
			fmt.Printf("Created session %d: %s\n", s.ID, s.Title)
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			if err := newClient().DeleteSession(context.Background(), id); err != nil {
				return err
			}
			fmt.Println("Deleted session", id)
			return nil
		},
	}
}

func newSessionsUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Upload a document into a session's context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := newClient().UploadDocument(context.Background(), id, f.Name(), f)
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded %s (document %d)\n", res.Filename, res.ID)
			return nil
		},
	}
}

// =============================================================================
// MODELS COMMAND
// =============================================================================

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models the backend can serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := newClient().ListModels(context.Background())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("No models available.")
				return nil
			}
			def := newClient().DefaultModel()
			for _, m := range models {
				if m == def {
					fmt.Println(m, "(default)")
				} else {
					fmt.Println(m)
				}
			}
			return nil
		},
	}
}
