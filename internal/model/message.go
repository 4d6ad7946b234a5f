// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
	// RoleSystem marks local advisories (e.g. "still waiting") that are
	// neither replies nor errors.
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleError:
		return "Error"
	case RoleSystem:
		return "Notice"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleError, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in the conversation history.
// Messages are values; once appended to a History they are never mutated.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with a generated ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a finalized assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(content string) Message {
	return NewMessage(RoleError, content)
}

// NewSystemMessage creates an advisory message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// IsError reports whether the message surfaces an error.
func (m Message) IsError() bool {
	return m.Role == RoleError
}

// HasTimestamp reports whether a timestamp was captured.
func (m Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// Preview returns a truncated preview of the message content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.Content, maxLen)
}

// EstimateTokens gives a rough estimate of token count.
// Uses the approximation of ~4 characters per token.
func (m Message) EstimateTokens() int {
	return (len(m.Content) + 3) / 4
}
