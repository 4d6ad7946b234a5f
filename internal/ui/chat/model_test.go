// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/backend/backendtest"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// HELPERS
// =============================================================================

type fixture struct {
	sess   *session.Session
	fake   *backendtest.Fake
	copied []string
}

func newFixture(t *testing.T, available bool, opts Options) (*fixture, Model) {
	t.Helper()
	bus := events.NewBus(zerolog.Nop(), nil)
	fake := backendtest.New(bus)
	fake.SetAvailable(available, nil)

	f := &fixture{fake: fake}
	notifier := NewNotifier()
	f.sess = session.New(fake, bus, session.Options{Listener: notifier.Listen})
	t.Cleanup(func() {
		f.sess.Close()
		bus.Close()
	})
	require.NoError(t, f.sess.Subscribe())
	f.sess.CheckAvailability(context.Background())

	opts.Session = f.sess
	opts.Notifier = notifier
	opts.CopyFunc = func(s string) error {
		f.copied = append(f.copied, s)
		return nil
	}
	m := New(opts)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return f, m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "alt+enter":
		return tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+y":
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = update(t, m, keyMsg(string(r)))
	}
	return m
}

// submit presses enter and runs the resulting send command.
func submit(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)
	return update(t, m, cmd())
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestEnter_SendsDraft(t *testing.T) {
	f, m := newFixture(t, true, Options{})

	m = typeText(t, m, "hi")
	assert.Equal(t, "hi", f.sess.Draft())

	m = submit(t, m)
	f.sess.Wait()
	m = update(t, m, StateChangedMsg{})

	assert.Equal(t, []string{"hi"}, f.fake.Sends())
	assert.Empty(t, m.input.Value())
	msgs := m.State().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "echo: hi", msgs[1].Content)
	assert.Contains(t, m.View(), "echo: hi")
}

func TestEnter_DisabledWhenUnavailable(t *testing.T) {
	f, m := newFixture(t, false, Options{})
	m = update(t, m, StateChangedMsg{})
	assert.Equal(t, placeholderUnavailable, m.input.Placeholder)
	assert.False(t, m.keys.Submit.Enabled())

	m = typeText(t, m, "hi")
	for i := 0; i < 2; i++ {
		var cmd tea.Cmd
		m, cmd = updateCmd(t, m, keyMsg("enter"))
		assert.Nil(t, cmd)
	}

	assert.Empty(t, f.fake.Sends())
	assert.Equal(t, "hi", m.input.Value())
	msgs := f.sess.Snapshot().Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleError, msgs[0].Role)
	assert.Equal(t, f.fake.InstallHint(), msgs[0].Content)
}

func TestEnter_DisabledWhileStreaming(t *testing.T) {
	f, m := newFixture(t, true, Options{})
	m = update(t, m, keyMsg("ctrl+t"))
	m = typeText(t, m, "hello")
	m = submit(t, m)
	require.True(t, m.State().StreamActive)
	assert.False(t, m.keys.Submit.Enabled())

	m = typeText(t, m, "again")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Len(t, f.fake.Streams(), 1)
	assert.Len(t, f.sess.Snapshot().Messages, 1, "no busy error appended")

	require.NoError(t, f.fake.Emit(events.Complete(f.fake.LastStreamID())))
	m = update(t, m, StateChangedMsg{})
	assert.True(t, m.keys.Submit.Enabled())
	assert.Equal(t, "again", m.input.Value())
}

func TestEnter_SendsTextAtKeypress(t *testing.T) {
	f, m := newFixture(t, true, Options{})
	m = typeText(t, m, "first")

	m, cmd := updateCmd(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.False(t, m.keys.Submit.Enabled(), "a second enter waits for the result")

	// Keys typed before the send command runs stay in the input.
	m = typeText(t, m, "next")
	m = update(t, m, cmd())
	f.sess.Wait()

	assert.Equal(t, []string{"first"}, f.fake.Sends())
	assert.Equal(t, "next", m.input.Value())
	assert.Equal(t, "next", f.sess.Draft())
}

func TestSendRejected_RestoresText(t *testing.T) {
	f, m := newFixture(t, true, Options{})
	m = typeText(t, m, "hi")
	m, cmd := updateCmd(t, m, keyMsg("enter"))
	require.NotNil(t, cmd)

	// The backend went away between the keypress and the send.
	f.fake.SetAvailable(false, nil)
	f.sess.CheckAvailability(context.Background())
	m = update(t, m, cmd())

	assert.Empty(t, f.fake.Sends())
	assert.Equal(t, "hi", m.input.Value())
	assert.False(t, m.keys.Submit.Enabled())
}

func TestAltEnter_InsertsNewline(t *testing.T) {
	f, m := newFixture(t, true, Options{})

	m = typeText(t, m, "a")
	m = update(t, m, keyMsg("alt+enter"))
	m = typeText(t, m, "b")

	assert.Equal(t, "a\nb", m.input.Value())
	assert.Empty(t, f.fake.Sends())
}

// =============================================================================
// COMMAND KEY TESTS
// =============================================================================

func TestCtrlT_TogglesMode(t *testing.T) {
	f, m := newFixture(t, true, Options{})

	m = update(t, m, keyMsg("ctrl+t"))
	assert.True(t, f.sess.Snapshot().Streaming)
	assert.Contains(t, m.Notice(), "streaming")

	// Blocked while a stream is in flight.
	m = typeText(t, m, "hi")
	m = submit(t, m)
	m = update(t, m, keyMsg("ctrl+t"))
	assert.True(t, f.sess.Snapshot().Streaming)
	assert.Contains(t, m.Notice(), "Cannot switch")

	require.NoError(t, f.fake.Emit(events.Complete(f.fake.LastStreamID())))
	m = update(t, m, keyMsg("ctrl+t"))
	assert.False(t, f.sess.Snapshot().Streaming)
}

func TestCtrlL_ConfirmFlow(t *testing.T) {
	f, m := newFixture(t, true, Options{ConfirmClear: true})
	m = typeText(t, m, "hi")
	m = submit(t, m)
	f.sess.Wait()

	m = update(t, m, keyMsg("ctrl+l"))
	require.True(t, m.Confirming())

	m = update(t, m, keyMsg("n"))
	assert.False(t, m.Confirming())
	assert.Len(t, f.sess.Snapshot().Messages, 2)

	m = update(t, m, keyMsg("ctrl+l"))
	m = update(t, m, keyMsg("x"))
	assert.True(t, m.Confirming(), "other keys leave the prompt open")

	m = update(t, m, keyMsg("y"))
	assert.False(t, m.Confirming())
	assert.Empty(t, f.sess.Snapshot().Messages)
	assert.Empty(t, m.State().Messages)
}

func TestCtrlL_WithoutConfirmation(t *testing.T) {
	f, m := newFixture(t, true, Options{ConfirmClear: false})
	m = typeText(t, m, "hi")
	m = submit(t, m)
	f.sess.Wait()

	m = typeText(t, m, "draft")
	m = update(t, m, keyMsg("ctrl+l"))

	assert.False(t, m.Confirming())
	assert.Empty(t, f.sess.Snapshot().Messages)
	assert.Empty(t, m.input.Value())
}

func TestCtrlY_CopiesLastReply(t *testing.T) {
	f, m := newFixture(t, true, Options{})

	m, cmd := updateCmd(t, m, keyMsg("ctrl+y"))
	assert.Nil(t, cmd)
	assert.Equal(t, "No reply to copy", m.Notice())

	m = typeText(t, m, "hi")
	m = submit(t, m)
	f.sess.Wait()
	m = update(t, m, StateChangedMsg{})

	m, cmd = updateCmd(t, m, keyMsg("ctrl+y"))
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, []string{"echo: hi"}, f.copied)
	assert.Contains(t, m.Notice(), "Copied reply")
}

func TestCopyFailure_ShowsNotice(t *testing.T) {
	_, m := newFixture(t, true, Options{})
	m = update(t, m, CopyResultMsg{Err: errors.New("no clipboard utility")})
	assert.Contains(t, m.Notice(), "no clipboard utility")
}

func TestEsc_Quits(t *testing.T) {
	_, m := newFixture(t, true, Options{})
	_, cmd := updateCmd(t, m, keyMsg("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestView_ShowsLiveBufferWhileStreaming(t *testing.T) {
	f, m := newFixture(t, true, Options{})
	m = update(t, m, keyMsg("ctrl+t"))
	m = typeText(t, m, "hello")
	m = submit(t, m)

	id := f.fake.LastStreamID()
	require.NoError(t, f.fake.Emit(events.Chunk(id, "Hi")))
	require.NoError(t, f.fake.Emit(events.Chunk(id, " there")))
	m = update(t, m, StateChangedMsg{})

	view := m.View()
	assert.Contains(t, view, "Hi there")
	assert.Contains(t, view, "Streaming...")

	require.NoError(t, f.fake.Emit(events.Complete(id)))
	m = update(t, m, StateChangedMsg{})
	assert.False(t, m.State().Sending)
	assert.NotContains(t, m.View(), "Streaming...")
}

func TestView_MergedChunksShowLatestBuffer(t *testing.T) {
	f, m := newFixture(t, true, Options{})
	m = update(t, m, keyMsg("ctrl+t"))
	m = typeText(t, m, "hello")
	m = submit(t, m)

	id := f.fake.LastStreamID()
	for _, c := range []string{"one", " two", " three"} {
		require.NoError(t, f.fake.Emit(events.Chunk(id, c)))
	}
	// Three chunks, one pending wake-up.
	m = update(t, m, m.notifier.Wait()())
	assert.Equal(t, "one two three", m.State().LiveBuffer)
	assert.Contains(t, m.View(), "one two three")

	require.NoError(t, f.fake.Emit(events.Chunk(id, " four")))
	require.NoError(t, f.fake.Emit(events.Complete(id)))
	m = update(t, m, m.notifier.Wait()())

	assert.False(t, m.State().StreamActive)
	msgs := m.State().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "one two three four", msgs[1].Content)
	assert.Contains(t, m.View(), "one two three four")
}

func TestView_HeaderShowsStatusAndMode(t *testing.T) {
	_, m := newFixture(t, true, Options{})
	view := m.View()
	assert.Contains(t, view, "chatdesk")
	assert.Contains(t, view, "fake 1.0")
	assert.Contains(t, view, "batch")
}

func TestView_BeforeResize(t *testing.T) {
	f, _ := newFixture(t, true, Options{})
	m := New(Options{Session: f.sess})
	assert.Equal(t, "Loading...", m.View())
}

func TestConfigReloaded_AppliesTimeouts(t *testing.T) {
	f, m := newFixture(t, true, Options{ConfirmClear: true})

	cfg := config.Default()
	cfg.Chat.SoftWarningSecs = 5
	cfg.Chat.HardTimeoutSecs = 9
	cfg.Chat.ConfirmClear = false
	m = update(t, m, ConfigReloadedMsg{Config: cfg})

	soft, hard := f.sess.Timeouts()
	assert.Equal(t, 5*time.Second, soft)
	assert.Equal(t, 9*time.Second, hard)

	m = update(t, m, keyMsg("ctrl+l"))
	assert.False(t, m.Confirming())
}

// =============================================================================
// NOTIFIER TESTS
// =============================================================================

func TestNotifier_Coalesces(t *testing.T) {
	n := NewNotifier()
	n.Listen(session.State{})
	n.Listen(session.State{})
	n.Listen(session.State{})

	assert.Equal(t, StateChangedMsg{}, n.Wait()())

	select {
	case <-n.ch:
		t.Fatal("expected a single pending notification")
	default:
	}
}

func TestFormatChars(t *testing.T) {
	assert.Equal(t, "1 char", formatChars(1))
	assert.Equal(t, "42 chars", formatChars(42))
	assert.Equal(t, "1.5k chars", formatChars(1500))
}

func TestMarkdownRenderer_NarrowFallsBack(t *testing.T) {
	r := newMarkdownRenderer("dark")
	assert.Equal(t, "**bold**", r.Render("**bold**", 5))
	assert.True(t, strings.Contains(r.Render("plain text", 40), "plain"))
}
