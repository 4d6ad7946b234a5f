// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the conversation session controller.
//
// A Session owns the chat history, the in-flight request state and the
// backend availability status. It reacts to user commands (Send, Clear,
// ToggleMode) and to stream events delivered by an events.Bus, and reports
// every state change to an optional Listener with a State snapshot.
//
// # Turns
//
// A turn is one accepted Send. In batch mode the backend's one-shot call is
// raced against two timers: a soft warning that appends a notice and a hard
// timeout that gives up and appends an error. In streaming mode the session
// marks a stream active, hands the backend a fresh stream id and assembles
// chunk events into a live buffer until a complete or error event arrives.
// Only one turn is in flight at a time.
//
// # Lifecycle
//
//	s := session.New(b, bus, session.Options{Listener: render})
//	defer s.Close()
//	if err := s.Subscribe(); err != nil { ... }
//	s.CheckAvailability(ctx)
//	s.Send("hello")
//
// Listener calls are serialized and never carry an older state than one
// already delivered. A Listener must not call Session methods that change
// state; read with Snapshot or the State it is given.
package session
