// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders assistant replies. The glamour renderer is rebuilt
// only when the wrap width changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style}
}

// Render returns content as styled terminal text, or content unchanged if
// rendering fails.
func (r *markdownRenderer) Render(content string, width int) string {
	if width < 10 {
		return content
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
			glamour.WithStylesFromJSONBytes([]byte(`{"document":{"margin":0}}`)),
		)
		if err != nil {
			return content
		}
		r.renderer, r.width = tr, width
	}

	out, err := r.renderer.Render(content)
	if err != nil || strings.TrimSpace(out) == "" {
		return content
	}
	return strings.Trim(out, "\n")
}
