// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/model"
)

func TestNewTheme_Variants(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantDark bool
	}{
		{"dark", ThemeDark, true},
		{"light", ThemeLight, false},
		{" LIGHT ", ThemeLight, false},
		{"", ThemeDark, true},
		{"solarized", ThemeDark, true},
	}

	for _, tt := range tests {
		theme := NewTheme(tt.in)
		if theme.Name != tt.wantName || theme.IsDark != tt.wantDark {
			t.Errorf("NewTheme(%q) = {%s, %v}, want {%s, %v}", tt.in, theme.Name, theme.IsDark, tt.wantName, tt.wantDark)
		}
		if theme.GlamourStyle() != tt.wantName {
			t.Errorf("GlamourStyle() = %q, want %q", theme.GlamourStyle(), tt.wantName)
		}
	}
}

func TestTheme_Color(t *testing.T) {
	c := lipgloss.AdaptiveColor{Light: "#111111", Dark: "#EEEEEE"}

	if got := NewTheme("dark").Color(c); got != lipgloss.Color("#EEEEEE") {
		t.Errorf("dark Color = %v", got)
	}
	if got := NewTheme("light").Color(c); got != lipgloss.Color("#111111") {
		t.Errorf("light Color = %v", got)
	}
}

func TestTheme_BubbleFor(t *testing.T) {
	theme := NewTheme("dark")

	roles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleError, model.RoleSystem}
	seen := make(map[lipgloss.TerminalColor]model.Role)
	for _, role := range roles {
		border := theme.BubbleFor(role).GetBorderLeftForeground()
		if prev, dup := seen[border]; dup {
			t.Errorf("%s and %s share border color %v", role, prev, border)
		}
		seen[border] = role

		if theme.LabelFor(role).GetForeground() != border {
			t.Errorf("label color for %s should match its bubble border", role)
		}
	}
}

func TestTheme_StatusStyle(t *testing.T) {
	theme := NewTheme("dark")

	_, ind := theme.StatusStyle(model.SystemStatus{Checking: true})
	if ind != StatusIndicators.Pending {
		t.Errorf("checking indicator = %q", ind)
	}
	_, ind = theme.StatusStyle(model.SystemStatus{BackendAvailable: true})
	if ind != StatusIndicators.Success {
		t.Errorf("available indicator = %q", ind)
	}
	_, ind = theme.StatusStyle(model.SystemStatus{})
	if ind != StatusIndicators.Error {
		t.Errorf("unavailable indicator = %q", ind)
	}
}
