// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Example: `  chatdesk ask "What is a goroutine?"
  chatdesk ask --stream "Tell me a story"
  chatdesk ask -b ollama -m llama3.2 "hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, strings.Join(args, " "))
		},
	}
}

func runAsk(cmd *cobra.Command, opts *globalOptions, text string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	sig := newChangeSignal()
	rt, err := newRuntime(cfg, logSink(opts), sig.listen)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var render func(string) string
	if cfg.UI.Markdown && IsStdoutTTY() {
		render = renderMarkdown
	}
	printer := newTranscriptPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), render)

	return ask(ctx, rt.session, sig, printer, rt.checkTimeout(), text)
}

// ask runs one turn on sess and prints it. A turn ending in an error
// message fails the command.
func ask(ctx context.Context, sess *session.Session, sig changeSignal, p *transcriptPrinter, checkTimeout time.Duration, text string) error {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	status := sess.CheckAvailability(checkCtx)
	cancel()
	if !status.BackendAvailable {
		p.update(sess.Snapshot())
		return &exitError{code: 1}
	}
	p.skipHistory(sess.Snapshot())

	if err := sess.Send(text); err != nil {
		p.update(sess.Snapshot())
		return &exitError{code: 1}
	}

	st := waitTurn(ctx, sess, sig, p)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if n := len(st.Messages); n > 0 && st.Messages[n-1].Role == model.RoleError {
		return &exitError{code: 1}
	}
	return nil
}

// renderMarkdown renders a reply for terminal display. Returns the original
// content if rendering fails.
func renderMarkdown(content string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}
