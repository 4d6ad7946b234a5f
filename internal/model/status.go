// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// SystemStatus describes backend availability as seen by the send path.
// Only the availability check mutates it.
type SystemStatus struct {
	BackendAvailable bool   `json:"backend_available"`
	BackendInfo      string `json:"backend_info,omitempty"`
	Checking         bool   `json:"checking"`
}

// Label returns a short human-readable description of the status.
func (s SystemStatus) Label() string {
	switch {
	case s.Checking:
		return "checking"
	case s.BackendAvailable && s.BackendInfo != "":
		return s.BackendInfo
	case s.BackendAvailable:
		return "connected"
	default:
		return "unavailable"
	}
}
