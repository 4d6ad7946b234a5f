// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/model"
)

// StateChangedMsg signals that the session state changed since the last
// redraw. The model re-reads the snapshot itself.
type StateChangedMsg struct{}

// AvailabilityMsg carries the result of the startup availability check.
type AvailabilityMsg struct {
	Status model.SystemStatus
}

// SendResultMsg reports how a submit ended. Err is nil when the turn was
// accepted; the reply arrives later as a state change.
type SendResultMsg struct {
	Text string
	Err  error
}

// CopyResultMsg reports a clipboard copy.
type CopyResultMsg struct {
	Chars int
	Err   error
}

// ConfigReloadedMsg delivers a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}
