// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events carries streaming reply events from backends to the session.
package events

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// EVENT KIND
// =============================================================================

// Kind tags the variant carried by a StreamEvent.
type Kind string

const (
	KindChunk    Kind = "chunk"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// =============================================================================
// STREAM EVENT
// =============================================================================

// StreamEvent is a pushed streaming payload: a chunk of reply text, the
// completion marker, or an error.
type StreamEvent struct {
	Kind     Kind   `json:"type"`
	Content  string `json:"content,omitempty"`
	Message  string `json:"message,omitempty"`
	StreamID string `json:"stream_id,omitempty"`
}

// Chunk builds a chunk event.
func Chunk(streamID, content string) StreamEvent {
	return StreamEvent{Kind: KindChunk, Content: content, StreamID: streamID}
}

// Complete builds a completion event.
func Complete(streamID string) StreamEvent {
	return StreamEvent{Kind: KindComplete, StreamID: streamID}
}

// Error builds an error event. An empty message is allowed; the consumer
// substitutes a generic fallback.
func Error(streamID, message string) StreamEvent {
	return StreamEvent{Kind: KindError, Message: message, StreamID: streamID}
}

// Terminal reports whether the event ends a stream.
func (e StreamEvent) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// Validate checks that the event carries a known kind.
func (e StreamEvent) Validate() error {
	switch e.Kind {
	case KindChunk, KindComplete, KindError:
		return nil
	case "":
		return fmt.Errorf("stream event: missing type")
	default:
		return fmt.Errorf("stream event: unknown type %q", e.Kind)
	}
}

// Encode serializes the event as a single JSON object.
func (e StreamEvent) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses a JSON stream event and validates its kind.
func Decode(data []byte) (StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, fmt.Errorf("stream event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return StreamEvent{}, err
	}
	return ev, nil
}
