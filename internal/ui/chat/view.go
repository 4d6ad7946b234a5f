// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/util"
)

// Input placeholders, one per send gate.
const (
	placeholderChecking    = "Checking backend availability..."
	placeholderUnavailable = "Sending is disabled: the backend is not available"
	placeholderWaiting     = "Waiting for the response..."
	placeholderReady       = "Type a message (enter to send, alt+enter for newline)"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat view.
// Layout: header (1) + transcript (viewport) + notice (1) + input + status (1).
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderNotice(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) placeholder() string {
	switch {
	case m.state.Status.Checking:
		return placeholderChecking
	case !m.state.Status.BackendAvailable:
		return placeholderUnavailable
	case m.state.Sending:
		return placeholderWaiting
	default:
		return placeholderReady
	}
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func (m Model) renderHeader() string {
	statusStyle, indicator := m.theme.StatusStyle(m.state.Status)

	modeStyle := m.theme.ModeBatch
	if m.state.Streaming {
		modeStyle = m.theme.ModeStream
	}

	parts := []string{
		m.theme.HeaderTitle.Render("chatdesk"),
		statusStyle.Render(indicator + " " + m.state.Status.Label()),
		modeStyle.Render(m.state.ModeName()),
	}
	if name := m.session.Backend().Name(); name != "" {
		parts = append(parts, m.theme.HeaderInfo.Render(name))
	}

	line := strings.Join(parts, " · ")
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(line)
}

func (m Model) renderNotice() string {
	switch {
	case m.confirming:
		return m.theme.Confirm.Render(util.TruncateWidth(m.notice, m.width))
	case m.state.Sending:
		label := "Waiting for response..."
		if m.state.StreamActive {
			label = "Streaming..."
		}
		return m.spinner.View() + " " + m.theme.ShortcutDesc.Render(label)
	case m.notice != "":
		return m.theme.ShortcutDesc.Render(util.TruncateWidth(m.notice, m.width))
	}
	return ""
}

func (m Model) renderStatusBar() string {
	var items []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		items = append(items, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	bar := strings.Join(items, "  ")
	if lipgloss.Width(bar) > m.width-2 {
		// Drop styling rather than cut an escape sequence in half.
		var plain []string
		for _, b := range m.keys.ShortHelp() {
			plain = append(plain, b.Help().Key+" "+b.Help().Desc)
		}
		bar = util.TruncateWidth(strings.Join(plain, "  "), m.width-2)
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(statusHeight).Render(bar)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the history followed by the in-progress reply.
func (m Model) renderTranscript() string {
	if len(m.state.Messages) == 0 && !m.state.StreamActive {
		return m.theme.ShortcutDesc.Render("No messages yet.")
	}

	var b strings.Builder
	for i, msg := range m.state.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}

	if m.state.StreamActive {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderLive())
	}
	return b.String()
}

func (m Model) contentWidth() int {
	// Bubble border and padding take two columns.
	w := m.width - 2
	if w < 3 {
		w = 3
	}
	return w
}

func (m Model) renderMessage(msg model.Message) string {
	label := m.theme.LabelFor(msg.Role).Render(msg.Role.DisplayName())
	if m.showTimestamps && msg.HasTimestamp() {
		label += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04:05"))
	}

	content := msg.Content
	bubble := m.theme.BubbleFor(msg.Role)
	if msg.Role == model.RoleAssistant && m.renderMarkdown {
		content = m.markdown.Render(content, m.contentWidth())
	} else {
		bubble = bubble.Width(m.contentWidth())
	}
	return label + "\n" + bubble.Render(content)
}

// renderLive shows the partial reply as plain text; markdown is applied once
// the reply completes.
func (m Model) renderLive() string {
	label := m.theme.LabelFor(model.RoleAssistant).Render(model.RoleAssistant.DisplayName()) +
		" " + m.spinner.View()

	content := m.state.LiveBuffer
	if content == "" {
		content = "..."
	}
	bubble := m.theme.BubbleFor(model.RoleAssistant).Width(m.contentWidth())
	return label + "\n" + bubble.Render(content)
}

// formatChars formats a character count for display.
func formatChars(n int) string {
	switch {
	case n == 1:
		return "1 char"
	case n < 1000:
		return fmt.Sprintf("%d chars", n)
	default:
		return fmt.Sprintf("%.1fk chars", float64(n)/1000)
	}
}
