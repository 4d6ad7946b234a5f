// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// CHANGE SIGNAL
// =============================================================================

// changeSignal wakes a goroutine waiting on session changes. Changes that
// arrive while one is pending collapse into it.
type changeSignal chan struct{}

func newChangeSignal() changeSignal {
	return make(changeSignal, 1)
}

// listen is a session.Listener.
func (c changeSignal) listen(session.State) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// =============================================================================
// TRANSCRIPT PRINTER
// =============================================================================

// transcriptPrinter writes a session transcript as a line-oriented log:
// new messages once, and the live buffer incrementally as it grows. User
// messages are not echoed.
type transcriptPrinter struct {
	out    io.Writer
	errOut io.Writer

	// render formats a complete assistant reply (e.g. markdown).
	render func(string) string

	seen     int
	live     int
	streamed bool
}

func newTranscriptPrinter(out, errOut io.Writer, render func(string) string) *transcriptPrinter {
	if render == nil {
		render = func(s string) string { return s }
	}
	return &transcriptPrinter{out: out, errOut: errOut, render: render}
}

// update prints whatever st adds over what was printed before.
func (p *transcriptPrinter) update(st session.State) {
	if len(st.Messages) < p.seen {
		// Cleared.
		p.seen, p.live, p.streamed = 0, 0, false
	}

	for _, msg := range st.Messages[p.seen:] {
		if p.streamed {
			if msg.Role == model.RoleAssistant && len(msg.Content) > p.live {
				// Chunks that arrived after the last printed snapshot.
				fmt.Fprint(p.out, msg.Content[p.live:])
			}
			fmt.Fprintln(p.out)
			streamedReply := msg.Role == model.RoleAssistant
			p.live, p.streamed = 0, false
			if streamedReply {
				continue
			}
		}
		p.printMessage(msg)
	}
	p.seen = len(st.Messages)

	if st.StreamActive && len(st.LiveBuffer) > p.live {
		if !p.streamed {
			fmt.Fprint(p.out, AssistantStyle.Render("Assistant:")+" ")
			p.streamed = true
		}
		fmt.Fprint(p.out, st.LiveBuffer[p.live:])
		p.live = len(st.LiveBuffer)
	}
}

func (p *transcriptPrinter) printMessage(msg model.Message) {
	switch msg.Role {
	case model.RoleUser:
	case model.RoleAssistant:
		fmt.Fprintln(p.out, AssistantStyle.Render("Assistant:")+" "+strings.TrimRight(p.render(msg.Content), "\n"))
	case model.RoleError:
		fmt.Fprintln(p.errOut, ErrorStyle.Render(msg.Content))
	default:
		fmt.Fprintln(p.errOut, WarningStyle.Render(msg.Content))
	}
}

// skipHistory marks everything currently in st as printed.
func (p *transcriptPrinter) skipHistory(st session.State) {
	p.seen = len(st.Messages)
}

// waitTurn prints the transcript as it changes until no turn is in flight
// or ctx is done, and returns the last state seen.
func waitTurn(ctx context.Context, sess *session.Session, sig changeSignal, p *transcriptPrinter) session.State {
	for {
		st := sess.Snapshot()
		p.update(st)
		if !st.Sending {
			return st
		}
		select {
		case <-ctx.Done():
			return st
		case <-sig:
		}
	}
}
