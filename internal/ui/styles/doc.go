// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the chatdesk TUI.

# Color System (colors.go)

Every color is a Lip Gloss AdaptiveColor holding a light and a dark variant.
Code outside a Theme may use them directly and let the terminal decide.

	UserBubble*      - user messages (blue)
	AssistantBubble* - assistant replies (violet)
	Notice*          - local advisories such as the slow reply warning (amber)
	ErrorBubble*     - error messages (rose)

# Theme System (theme.go)

A Theme resolves the palette for one configured variant ("dark" or "light")
and builds the styles the chat view renders with:

	theme := styles.NewTheme(cfg.UI.Theme)
	bubble := theme.BubbleFor(model.RoleAssistant)
*/
package styles
