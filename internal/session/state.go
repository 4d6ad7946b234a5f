// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"time"

	"github.com/jeranaias/chatdesk/internal/model"
)

// User-visible texts appended by the controller.
const (
	EmptyInputText     = "Cannot send an empty message."
	BusyText           = "Please wait for the current response to finish."
	CheckingText       = "Still checking backend availability. Please try again in a moment."
	UnavailableText    = "The backend is not available. Sending is disabled."
	SoftWarningText    = "Still waiting for a response. This is taking longer than usual..."
	FallbackErrorText  = "Unknown error occurred"
	StreamFallbackText = "Streaming failed"
)

// TimeoutText is the error appended when a batch turn hits the hard timeout.
func TimeoutText(d time.Duration) string {
	return fmt.Sprintf("Request timed out after %s. Please try again.", humanDuration(d))
}

func humanDuration(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		secs := int(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}

// =============================================================================
// STATE SNAPSHOT
// =============================================================================

// State is an immutable snapshot of a Session.
type State struct {
	// Version increases with every change.
	Version uint64

	Messages []model.Message
	Status   model.SystemStatus

	Draft     string
	Sending   bool
	Streaming bool

	// StreamActive and LiveBuffer describe the in-flight streaming turn.
	StreamActive bool
	LiveBuffer   string
}

// CanSend reports whether a Send would be accepted (ignoring the draft).
func (s State) CanSend() bool {
	return !s.Sending && !s.Status.Checking && s.Status.BackendAvailable
}

// CanToggle reports whether ToggleMode would change the mode.
func (s State) CanToggle() bool {
	return !s.Sending && !s.StreamActive
}

// ModeName returns "streaming" or "batch".
func (s State) ModeName() string {
	if s.Streaming {
		return "streaming"
	}
	return "batch"
}

// LastAssistant returns the most recent assistant reply.
func (s State) LastAssistant() (model.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == model.RoleAssistant {
			return s.Messages[i], true
		}
	}
	return model.Message{}, false
}
