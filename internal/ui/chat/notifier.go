// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/session"
)

// Notifier turns session listener calls into Bubble Tea messages. At most
// one wake-up is pending at a time; further changes before the view reads
// the snapshot collapse into it.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Listen is a session.Listener. It never blocks. Chunks that arrive
// faster than the view redraws merge into one redraw; the view always reads
// the latest snapshot, so the newest live buffer is what gets drawn.
func (n *Notifier) Listen(session.State) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Wait returns a command that delivers StateChangedMsg on the next change.
func (n *Notifier) Wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return StateChangedMsg{}
	}
}
