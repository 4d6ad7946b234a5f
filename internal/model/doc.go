// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the session
// controller and every presentation surface.
//
// # Key Types
//
//   - Message: Immutable chat entry with role, content and timestamp
//   - Role: Message role enumeration (user, assistant, error, system)
//   - History: Append-only ordered sequence of messages
//   - SystemStatus: Backend availability as seen by the send path
//
// # Usage
//
//	h := model.NewHistory()
//	h.Append(model.NewUserMessage("hello"))
//	for _, msg := range h.Messages() {
//	    fmt.Println(msg.Role.DisplayName(), msg.Content)
//	}
package model
