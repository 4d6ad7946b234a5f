// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// =============================================================================
// HISTORY TYPE
// =============================================================================

// History is an append-only ordered sequence of messages.
// It is not safe for concurrent use; the session controller owns it under
// its own lock.
type History struct {
	messages []Message
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{messages: make([]Message, 0)}
}

// Append adds a message to the end of the history.
func (h *History) Append(msg Message) {
	h.messages = append(h.messages, msg)
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.messages)
}

// IsEmpty returns true if there are no messages.
func (h *History) IsEmpty() bool {
	return len(h.messages) == 0
}

// Messages returns a copy of the messages in order.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Last returns the most recent message, or false if empty.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// LastOfRole returns the most recent message with the given role.
func (h *History) LastOfRole(role Role) (Message, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return h.messages[i], true
		}
	}
	return Message{}, false
}

// CountRole returns how many messages carry the given role.
func (h *History) CountRole(role Role) int {
	n := 0
	for _, m := range h.messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

// Reset discards every message. This is the only way messages leave a
// history; individual entries are never edited or removed.
func (h *History) Reset() {
	h.messages = make([]Message, 0)
}
