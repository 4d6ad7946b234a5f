// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// DRAFT
// =============================================================================

// SetDraft replaces the draft input.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	if s.draft == text {
		s.mu.Unlock()
		return
	}
	s.draft = text
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
}

// Submit sends the current draft.
func (s *Session) Submit() error {
	return s.Send(s.Draft())
}

// =============================================================================
// SEND
// =============================================================================

// Send starts a turn with text. Preconditions: text is non-blank, no turn is
// in flight and the backend is available. A failed precondition appends an
// error message and returns the matching sentinel without calling the
// backend.
//
// On success the user message is appended, the draft cleared and the turn
// dispatched by mode. Send does not wait for the reply.
func (s *Session) Send(text string) error {
	trimmed := strings.TrimSpace(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if msg, err := s.checkSendLocked(trimmed); err != nil {
		s.history.Append(model.NewErrorMessage(msg))
		st := s.changedLocked()
		s.mu.Unlock()
		s.logger.Debug().Err(err).Msg("send rejected")
		s.notify(st)
		return err
	}

	s.history.Append(model.NewUserMessage(trimmed))
	s.draft = ""
	s.sending = true

	if s.streaming {
		id := s.newID()
		s.streamActive = true
		s.streamID = id
		s.live.Reset()
		st := s.changedLocked()
		s.mu.Unlock()

		s.logger.Debug().Str("stream_id", id).Msg("stream turn started")
		s.notify(st)
		s.startStream(id, trimmed)
		return nil
	}

	s.turn++
	turn := s.turn
	soft, hard := s.softWarning, s.hardTimeout
	ctx, cancel := context.WithCancel(s.ctx)
	s.batchCancel = cancel
	s.batches.Add(1)
	st := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug().Uint64("turn", turn).Msg("batch turn started")
	s.notify(st)
	go s.runBatch(ctx, cancel, turn, trimmed, soft, hard)
	return nil
}

func (s *Session) checkSendLocked(text string) (string, error) {
	switch {
	case text == "":
		return EmptyInputText, ErrEmptyInput
	case s.sending || s.streamActive:
		return BusyText, ErrBusy
	case s.status.Checking:
		return CheckingText, ErrUnavailable
	case !s.status.BackendAvailable:
		return UnavailableText, ErrUnavailable
	}
	return "", nil
}

// startStream fires the backend trigger. The lock must not be held: the
// backend may publish events synchronously and publishing waits for
// HandleEvent.
func (s *Session) startStream(id, text string) {
	err := s.backend.StartStream(s.ctx, backend.StreamRequest{ID: id, Text: text})
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Str("stream_id", id).Msg("failed to start stream")
	s.HandleEvent(events.Error(id, "Error: "+err.Error()))
}

// =============================================================================
// AUXILIARY COMMANDS
// =============================================================================

// Clear discards the history and any in-flight turn, and resets the draft.
// Confirmation is the caller's job. An in-flight batch call is cancelled and
// its result ignored; late stream events are discarded.
func (s *Session) Clear() {
	s.mu.Lock()
	s.history.Reset()
	s.resetStreamLocked()
	s.draft = ""
	s.sending = false
	s.turn++
	if s.batchCancel != nil {
		s.batchCancel()
		s.batchCancel = nil
	}
	st := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug().Msg("conversation cleared")
	s.notify(st)
}

// ToggleMode flips between streaming and batch. It is a no-op while a turn
// is in flight. Reports whether the mode changed.
func (s *Session) ToggleMode() bool {
	s.mu.Lock()
	if s.sending || s.streamActive {
		s.mu.Unlock()
		return false
	}
	s.streaming = !s.streaming
	st := s.changedLocked()
	s.mu.Unlock()

	s.logger.Debug().Str("mode", st.ModeName()).Msg("mode toggled")
	s.notify(st)
	return true
}
