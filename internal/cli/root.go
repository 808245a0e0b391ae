// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the novachat command tree.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/novachat/internal/api"
	"github.com/jeranaias/novachat/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagConfig  string
	flagVerbose bool
	flagModel   string
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "novachat",
		Short: "Terminal client for the ChatNova backend",
		Long: `novachat is a terminal client for the ChatNova backend.

It streams chat responses (with live tool traces in agent mode), keeps a
local reconciled view of the conversation history including regenerated
response versions, and records per-stream statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.novachat/config.toml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model to use (overrides config)")

	root.AddCommand(
		newChatCmd(),
		newHistoryCmd(),
		newSessionsCmd(),
		newModelsCmd(),
		newConversationsCmd(),
		newExportCmd(),
		newStatsCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads the configuration and wires logging before any command runs.
func setup() error {
	var cfg *config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFromPath(flagConfig)
		if err != nil {
			return err
		}
		config.SetGlobal(cfg)
	} else {
		cfg = config.Global()
	}

	if flagModel != "" {
		cfg.DefaultModel = flagModel
	}

	initLogging(cfg)
	return nil
}

// initLogging points logrus at the configured file. The terminal stays
// reserved for chat output; logs never print to stdout.
func initLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	if flagVerbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := cfg.Log.File
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			logrus.SetOutput(io.Discard)
			return
		}
		path = filepath.Join(dir, "novachat.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(f)
}

// newClient builds an API client from the effective configuration.
func newClient() *api.Client {
	return api.NewClientWithConfig(config.Global().ClientConfig())
}

// =============================================================================
// VERSION COMMAND
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("novachat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
