// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleError, "Error"},
		{RoleSystem, "Notice"},
		{Role("other"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.DisplayName())
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleError.Valid())
	assert.False(t, Role("tool").Valid())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_SetsIdentity(t *testing.T) {
	a := NewUserMessage("hello")
	b := NewUserMessage("hello")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.HasTimestamp())
	assert.Equal(t, RoleUser, a.Role)
	assert.False(t, a.IsError())
	assert.True(t, NewErrorMessage("boom").IsError())
	assert.False(t, NewSystemMessage("still waiting").IsError())
}

func TestMessage_Preview(t *testing.T) {
	msg := NewAssistantMessage("hello world, this is long")
	assert.Equal(t, "hello...", msg.Preview(8))
	assert.Equal(t, "hi", NewAssistantMessage("hi").Preview(8))
}

func TestMessage_EstimateTokens(t *testing.T) {
	assert.Equal(t, 0, NewUserMessage("").EstimateTokens())
	assert.Equal(t, 1, NewUserMessage("abcd").EstimateTokens())
	assert.Equal(t, 2, NewUserMessage("abcde").EstimateTokens())
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_AppendPreservesOrder(t *testing.T) {
	h := NewHistory()
	require.True(t, h.IsEmpty())

	h.Append(NewUserMessage("one"))
	h.Append(NewAssistantMessage("two"))
	h.Append(NewErrorMessage("three"))

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Equal(t, "three", msgs[2].Content)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "three", last.Content)
}

func TestHistory_MessagesReturnsCopy(t *testing.T) {
	h := NewHistory()
	h.Append(NewUserMessage("original"))

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	last, _ := h.Last()
	assert.Equal(t, "original", last.Content)
}

func TestHistory_LastOfRoleAndCount(t *testing.T) {
	h := NewHistory()
	_, ok := h.LastOfRole(RoleAssistant)
	assert.False(t, ok)

	h.Append(NewAssistantMessage("first"))
	h.Append(NewUserMessage("q"))
	h.Append(NewAssistantMessage("second"))

	msg, ok := h.LastOfRole(RoleAssistant)
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)
	assert.Equal(t, 2, h.CountRole(RoleAssistant))
	assert.Equal(t, 0, h.CountRole(RoleError))
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory()
	h.Append(NewUserMessage("x"))
	h.Reset()

	assert.Equal(t, 0, h.Len())
	_, ok := h.Last()
	assert.False(t, ok)
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestSystemStatus_Label(t *testing.T) {
	assert.Equal(t, "checking", SystemStatus{Checking: true}.Label())
	assert.Equal(t, "unavailable", SystemStatus{}.Label())
	assert.Equal(t, "connected", SystemStatus{BackendAvailable: true}.Label())
	assert.Equal(t, "Python 3.12.1", SystemStatus{BackendAvailable: true, BackendInfo: "Python 3.12.1"}.Label())
}
