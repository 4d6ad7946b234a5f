// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/model"
)

// =============================================================================
// STREAM REASSEMBLY
// =============================================================================

// HandleEvent applies one stream event. It is the bus handler installed by
// Subscribe and may also be called directly.
//
//   - Events arriving while no stream is active are discarded.
//   - Events whose stream id is set and differs from the active stream's id
//     are discarded.
//   - chunk appends to the live buffer.
//   - complete turns a non-empty buffer into one assistant message.
//   - error appends one error message.
//
// complete and error both end the turn.
func (s *Session) HandleEvent(ev events.StreamEvent) {
	s.mu.Lock()
	if !s.streamActive || (ev.StreamID != "" && ev.StreamID != s.streamID) {
		active := s.streamActive
		s.mu.Unlock()
		s.logger.Debug().
			Str("type", string(ev.Kind)).
			Str("stream_id", ev.StreamID).
			Bool("active", active).
			Msg("discarding stale stream event")
		return
	}

	switch ev.Kind {
	case events.KindChunk:
		s.live.WriteString(ev.Content)

	case events.KindComplete:
		if s.live.Len() > 0 {
			s.history.Append(model.NewAssistantMessage(s.live.String()))
		}
		s.resetStreamLocked()
		s.sending = false

	case events.KindError:
		msg := ev.Message
		if msg == "" {
			msg = StreamFallbackText
		}
		s.history.Append(model.NewErrorMessage(msg))
		s.resetStreamLocked()
		s.sending = false

	default:
		s.mu.Unlock()
		s.logger.Warn().Str("type", string(ev.Kind)).Msg("unknown stream event")
		return
	}

	st := s.changedLocked()
	s.mu.Unlock()

	if ev.Terminal() {
		s.logger.Debug().Str("type", string(ev.Kind)).Int("messages", len(st.Messages)).Msg("stream turn ended")
	}
	s.notify(st)
}
