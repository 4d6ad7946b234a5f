// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/session"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-based chat session",
		Long: `Start a line-based chat session in the current terminal.

Commands during chat:
  /clear   Clear the conversation
  /mode    Toggle streaming and batch mode
  /help    Show commands
  /quit    Exit (also Ctrl+D)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *globalOptions) error {
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

	in := NewChatCLI()
	defer in.Close()

	r := &repl{
		sess:         rt.session,
		sig:          sig,
		in:           in,
		out:          cmd.OutOrStdout(),
		printer:      newTranscriptPrinter(cmd.OutOrStdout(), cmd.OutOrStdout(), nil),
		confirmClear: cfg.Chat.ConfirmClear,
	}
	rt.checkAvailability(ctx)
	return r.run(ctx)
}

// logSink picks stderr when the user asked for a log level, the log file
// otherwise, so plain runs keep the terminal clean.
func logSink(opts *globalOptions) logging.Sink {
	if opts.logLevel != "" {
		return logging.SinkStderr
	}
	return logging.SinkFile
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the part of liner the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line with history navigation.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// AppendHistory adds a line to the history.
func (c *ChatCLI) AppendHistory(item string) {
	c.line.AppendHistory(item)
}

// SaveHistory writes history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	sess         *session.Session
	sig          changeSignal
	in           lineReader
	out          io.Writer
	printer      *transcriptPrinter
	confirmClear bool
}

func (r *repl) run(ctx context.Context) error {
	r.banner()

	for {
		line, err := r.in.Prompt("> ")
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(r.out)
			return nil
		case err != nil:
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			r.in.AppendHistory(trimmed)
		}
		if strings.HasPrefix(trimmed, "/") {
			if quit := r.command(trimmed); quit {
				return nil
			}
			continue
		}

		// Rejections are appended to the transcript and printed below.
		_ = r.sess.Send(line)
		waitTurn(ctx, r.sess, r.sig, r.printer)
		if ctx.Err() != nil {
			fmt.Fprintln(r.out)
			return nil
		}
	}
}

func (r *repl) banner() {
	st := r.sess.Snapshot()
	fmt.Fprintln(r.out, TitleStyle.Render("chatdesk")+" "+DimStyle.Render(Version))
	fmt.Fprintln(r.out, renderField("Backend", r.sess.Backend().Name()+" ("+st.Status.Label()+")"))
	fmt.Fprintln(r.out, renderField("Mode", st.ModeName()))
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(r.out)
	// Startup messages such as the install hint.
	r.printer.update(st)
}

// command runs a slash command and reports whether to quit.
func (r *repl) command(line string) bool {
	name := strings.ToLower(strings.Fields(line)[0])
	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/clear", "/c":
		if r.confirmClear {
			answer, err := r.in.Prompt("Clear the conversation? (y/n) ")
			if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Fprintln(r.out, DimStyle.Render("Not cleared."))
				return false
			}
		}
		r.sess.Clear()
		r.printer.skipHistory(r.sess.Snapshot())
		fmt.Fprintln(r.out, SuccessStyle.Render("Conversation cleared."))

	case "/mode", "/m":
		if r.sess.ToggleMode() {
			fmt.Fprintln(r.out, SuccessStyle.Render("Switched to "+r.sess.Snapshot().ModeName()+" mode."))
		} else {
			fmt.Fprintln(r.out, WarningStyle.Render("Cannot switch mode while a response is in progress."))
		}

	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, "  /clear   Clear the conversation")
		fmt.Fprintln(r.out, "  /mode    Toggle streaming and batch mode")
		fmt.Fprintln(r.out, "  /quit    Exit")

	default:
		fmt.Fprintln(r.out, WarningStyle.Render("Unknown command: "+name+" (try /help)"))
	}
	return false
}
