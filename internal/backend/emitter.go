// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/events"
)

// emitter stamps events with a stream id and stops after the first terminal
// event or the first publish failure. Not safe for concurrent use; each
// stream goroutine owns one.
type emitter struct {
	pub    events.Publisher
	id     string
	logger zerolog.Logger
	done   bool
	chunks int
}

func newEmitter(pub events.Publisher, id string, logger zerolog.Logger) *emitter {
	return &emitter{
		pub:    pub,
		id:     id,
		logger: logger.With().Str("stream_id", id).Logger(),
	}
}

// emit publishes ev and reports whether the stream should keep going.
func (e *emitter) emit(ev events.StreamEvent) bool {
	if e.done {
		return false
	}
	ev.StreamID = e.id
	if ev.Terminal() {
		e.done = true
	}
	if err := e.pub.Publish(ev); err != nil {
		e.logger.Warn().Err(err).Str("type", string(ev.Kind)).Msg("failed to publish stream event")
		e.done = true
		return false
	}
	if ev.Kind == events.KindChunk {
		e.chunks++
	}
	return !e.done
}

func (e *emitter) chunk(content string) bool {
	return e.emit(events.Chunk(e.id, content))
}

func (e *emitter) complete() {
	if e.done {
		return
	}
	e.emit(events.Complete(e.id))
	e.logger.Debug().Int("chunks", e.chunks).Msg("stream complete")
}

func (e *emitter) fail(msg string) {
	if e.done {
		return
	}
	e.emit(events.Error(e.id, msg))
	e.logger.Debug().Str("reason", msg).Msg("stream failed")
}
