// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the chatdesk TUI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/model"
)

// Theme names accepted by NewTheme.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds all the styled components for the chat view.
type Theme struct {
	Name   string
	IsDark bool

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	NoticeBubble    lipgloss.Style
	ErrorBubble     lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	StatusBar      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	Spinner        lipgloss.Style
	Confirm        lipgloss.Style

	// ==========================================================================
	// STATE INDICATORS
	// ==========================================================================

	Available   lipgloss.Style
	Unavailable lipgloss.Style
	Checking    lipgloss.Style
	ModeStream  lipgloss.Style
	ModeBatch   lipgloss.Style
}

// NewTheme creates a theme for name ("dark" or "light"). Anything else is
// treated as dark.
func NewTheme(name string) *Theme {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != ThemeLight {
		name = ThemeDark
	}
	t := &Theme{Name: name, IsDark: name == ThemeDark}
	t.initStyles()
	return t
}

// Color resolves an adaptive color for this theme's variant.
func (t *Theme) Color(c lipgloss.AdaptiveColor) lipgloss.Color {
	if t.IsDark {
		return lipgloss.Color(c.Dark)
	}
	return lipgloss.Color(c.Light)
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	return t.Name
}

func (t *Theme) initStyles() {
	c := t.Color

	// Header
	t.Header = lipgloss.NewStyle().
		Background(c(SurfaceDim)).
		Foreground(c(TextSecondary)).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(c(Purple))

	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(c(TextSecondary)).
		Italic(true)

	// Message bubbles
	bubble := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		PaddingLeft(1)

	t.UserBubble = bubble.
		Foreground(c(UserBubbleFg)).
		BorderForeground(c(UserBubbleBorder))

	t.AssistantBubble = bubble.
		Foreground(c(AssistantBubbleFg)).
		BorderForeground(c(AssistantBubbleBorder))

	t.NoticeBubble = bubble.
		Foreground(c(NoticeBubbleFg)).
		BorderForeground(c(NoticeBubbleBorder)).
		Italic(true)

	t.ErrorBubble = bubble.
		Foreground(c(ErrorBubbleFg)).
		BorderForeground(c(ErrorBubbleBorder))

	t.RoleLabel = lipgloss.NewStyle().Bold(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(c(Overlay))

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(c(Cyan)).
		Bold(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(c(SurfaceDim)).
		Foreground(c(TextSecondary)).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(c(Cyan)).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(c(TextMuted))

	t.Spinner = lipgloss.NewStyle().
		Foreground(c(Purple))

	t.Confirm = lipgloss.NewStyle().
		Foreground(c(Amber)).
		Bold(true)

	// Indicators
	t.Available = lipgloss.NewStyle().Foreground(c(Emerald)).Bold(true)
	t.Unavailable = lipgloss.NewStyle().Foreground(c(Rose)).Bold(true)
	t.Checking = lipgloss.NewStyle().Foreground(c(Amber))
	t.ModeStream = lipgloss.NewStyle().Foreground(c(Emerald))
	t.ModeBatch = lipgloss.NewStyle().Foreground(c(Amber))
}

// BubbleFor returns the bubble style for a message role.
func (t *Theme) BubbleFor(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return t.UserBubble
	case model.RoleAssistant:
		return t.AssistantBubble
	case model.RoleError:
		return t.ErrorBubble
	default:
		return t.NoticeBubble
	}
}

// LabelFor returns the role label style, colored like the bubble border.
func (t *Theme) LabelFor(role model.Role) lipgloss.Style {
	return t.RoleLabel.Foreground(t.BubbleFor(role).GetBorderLeftForeground())
}

// StatusStyle returns the indicator style and ASCII indicator for a backend
// status.
func (t *Theme) StatusStyle(status model.SystemStatus) (lipgloss.Style, string) {
	switch {
	case status.Checking:
		return t.Checking, StatusIndicators.Pending
	case status.BackendAvailable:
		return t.Available, StatusIndicators.Success
	default:
		return t.Unavailable, StatusIndicators.Error
	}
}
