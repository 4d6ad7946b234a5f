// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/ui/chat"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// runTUI starts the Bubble Tea chat. Without a terminal on both ends it
// falls back to the line-based chat.
func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if !IsTTY() || !IsStdoutTTY() {
		return runChat(cmd, opts)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The TUI owns the terminal; logs always go to the file.
	notifier := chat.NewNotifier()
	rt, err := newRuntime(cfg, logging.SinkFile, notifier.Listen)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := chat.New(chat.Options{
		Session:        rt.session,
		Notifier:       notifier,
		Theme:          styles.NewTheme(cfg.UI.Theme),
		Markdown:       cfg.UI.Markdown,
		ShowTimestamps: cfg.UI.ShowTimestamps,
		ConfirmClear:   cfg.Chat.ConfirmClear,
		CheckTimeout:   rt.checkTimeout(),
		Reloads:        watchConfig(ctx, opts, rt.logger),
		Logger:         rt.logger,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchConfig streams reloaded configurations, with the command's flags
// reapplied, until ctx is done. Returns nil when there is no file to watch.
func watchConfig(ctx context.Context, opts *globalOptions, logger zerolog.Logger) <-chan *config.Config {
	path := configFilePath(opts)
	if path == "" {
		return nil
	}

	ch := make(chan *config.Config, 1)
	err := config.Watch(ctx, path, logger, func(cfg *config.Config) {
		if err := applyFlags(cfg, opts); err != nil {
			logger.Warn().Err(err).Msg("ignoring reloaded config")
			return
		}
		// Keep only the newest.
		select {
		case <-ch:
		default:
		}
		ch <- cfg
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("config watch disabled")
		return nil
	}
	return ch
}
