// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// Fixed layout heights: header, notice line, input (border + rows), status bar.
const (
	headerHeight = 1
	noticeHeight = 1
	inputRows    = 3
	inputHeight  = inputRows + 1
	statusHeight = 1
)

// DefaultCheckTimeout bounds the startup availability check.
const DefaultCheckTimeout = 10 * time.Second

// Options configures the chat view.
type Options struct {
	Session  *session.Session
	Notifier *Notifier
	Theme    *styles.Theme

	Markdown       bool
	ShowTimestamps bool
	ConfirmClear   bool
	CheckTimeout   time.Duration

	// Reloads, when set, delivers configurations reloaded from disk.
	Reloads <-chan *config.Config

	// CopyFunc writes to the clipboard (default clipboard.WriteAll).
	CopyFunc func(string) error

	Logger zerolog.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session  *session.Session
	notifier *Notifier
	reloads  <-chan *config.Config
	theme    *styles.Theme
	markdown *markdownRenderer
	copyFunc func(string) error
	logger   zerolog.Logger
	keys     KeyMap

	// Latest session snapshot
	state session.State

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Dimensions
	width  int
	height int

	// Settings
	renderMarkdown bool
	showTimestamps bool
	confirmClear   bool
	checkTimeout   time.Duration

	// submitting is true from enter until the send result arrives.
	submitting bool
	// confirming is true while a clear waits for y/n.
	confirming bool
	// notice is a transient line shown above the input.
	notice string
	// sticky keeps the transcript pinned to the bottom.
	sticky bool
}

// New creates the chat view.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme(styles.ThemeDark)
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier()
	}
	if opts.CopyFunc == nil {
		opts.CopyFunc = clipboard.WriteAll
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = DefaultCheckTimeout
	}

	input := textarea.New()
	input.Placeholder = placeholderChecking
	input.ShowLineNumbers = false
	input.Prompt = "> "
	input.CharLimit = 0
	input.SetHeight(inputRows)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(opts.Theme.Spinner),
	)

	m := Model{
		session:        opts.Session,
		notifier:       opts.Notifier,
		reloads:        opts.Reloads,
		theme:          opts.Theme,
		markdown:       newMarkdownRenderer(opts.Theme.GlamourStyle()),
		copyFunc:       opts.CopyFunc,
		logger:         opts.Logger.With().Str("component", "tui").Logger(),
		keys:           DefaultKeyMap(),
		viewport:       viewport.New(0, 0),
		input:          input,
		spinner:        sp,
		renderMarkdown: opts.Markdown,
		showTimestamps: opts.ShowTimestamps,
		confirmClear:   opts.ConfirmClear,
		checkTimeout:   opts.CheckTimeout,
		sticky:         true,
	}
	m.state = opts.Session.Snapshot()
	m.input.Placeholder = m.placeholder()
	m.updateSendKey()
	return m
}

// Init starts the availability check and the change listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.notifier.Wait(),
		checkAvailabilityCmd(m.session, m.checkTimeout),
		waitForReload(m.reloads),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg:
		m.refresh()
		return m, m.notifier.Wait()

	case AvailabilityMsg:
		m.logger.Debug().Str("status", msg.Status.Label()).Msg("availability checked")
		m.refresh()
		return m, nil

	case SendResultMsg:
		return m.handleSendResult(msg)

	case CopyResultMsg:
		if msg.Err != nil {
			m.notice = "Failed to copy to clipboard: " + msg.Err.Error()
		} else {
			m.notice = "Copied reply to clipboard (" + formatChars(msg.Chars) + ")"
		}
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, waitForReload(m.reloads)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Sending {
			m.refreshViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height

	vpHeight := m.height - headerHeight - noticeHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.input.SetWidth(m.width)
	m.refreshViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.ConfirmYes):
			m.confirming = false
			m.clear()
		case key.Matches(msg, m.keys.ConfirmNo):
			m.confirming = false
			m.notice = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		m.input.Reset()
		m.session.SetDraft("")
		m.notice = ""
		m.submitting = true
		m.updateSendKey()
		return m, submitCmd(m.session, text)

	case msg.Type == tea.KeyEnter && !msg.Alt:
		// Sending is disabled.
		return m, nil

	case key.Matches(msg, m.keys.ToggleMode):
		if m.session.ToggleMode() {
			m.notice = "Switched to " + m.session.Snapshot().ModeName() + " mode"
		} else {
			m.notice = "Cannot switch mode while a response is in progress"
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.confirmClear {
			m.confirming = true
			m.notice = "Clear the conversation? (y/n)"
			return m, nil
		}
		m.clear()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.sticky = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.sticky = m.viewport.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetDraft(m.input.Value())
	return m, cmd
}

func (m Model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	switch {
	case msg.Err == nil:
		// Send cleared the draft; keep anything typed since enter.
		m.session.SetDraft(m.input.Value())
		m.sticky = true
	case errors.Is(msg.Err, session.ErrClosed):
		return m, tea.Quit
	case m.input.Value() == "":
		// Rejections are already in the transcript; give the text back.
		m.input.SetValue(msg.Text)
		m.session.SetDraft(msg.Text)
	}
	m.refresh()
	return m, nil
}

func (m *Model) clear() {
	m.session.Clear()
	m.input.Reset()
	m.notice = ""
	m.sticky = true
	m.refresh()
}

// copyLastReply copies the last assistant reply to the clipboard.
func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	msg, ok := m.state.LastAssistant()
	if !ok {
		m.notice = "No reply to copy"
		return m, nil
	}
	copyFunc := m.copyFunc
	content := msg.Content
	return m, func() tea.Msg {
		err := copyFunc(content)
		return CopyResultMsg{Chars: len([]rune(content)), Err: err}
	}
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.session.SetTimeouts(cfg.Chat.SoftWarning(), cfg.Chat.HardTimeout())
	m.confirmClear = cfg.Chat.ConfirmClear
	m.showTimestamps = cfg.UI.ShowTimestamps
	m.renderMarkdown = cfg.UI.Markdown
	m.notice = "Configuration reloaded"
	m.logger.Info().Msg("applied reloaded configuration")
	m.refreshViewport()
}

// refresh re-reads the session snapshot and redraws.
func (m *Model) refresh() {
	m.state = m.session.Snapshot()
	m.input.Placeholder = m.placeholder()
	m.updateSendKey()
	m.refreshViewport()
}

// updateSendKey enables enter only when the session would accept a send.
func (m *Model) updateSendKey() {
	m.keys.Submit.SetEnabled(m.state.CanSend() && !m.submitting)
}

func (m *Model) refreshViewport() {
	if m.width == 0 {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if m.sticky {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// submitCmd sends text off the update loop; a streaming backend may do
// network I/O before StartStream returns.
func submitCmd(s *session.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return SendResultMsg{Text: text, Err: s.Send(text)}
	}
}

func checkAvailabilityCmd(s *session.Session, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return AvailabilityMsg{Status: s.CheckAvailability(ctx)}
	}
}

func waitForReload(ch <-chan *config.Config) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the snapshot the view last rendered.
func (m Model) State() session.State {
	return m.state
}

// Confirming reports whether a clear confirmation is pending.
func (m Model) Confirming() bool {
	return m.confirming
}

// Notice returns the transient notice line.
func (m Model) Notice() string {
	return m.notice
}
