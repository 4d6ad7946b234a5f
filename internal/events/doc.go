// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events carries streaming reply events from backends to the session.
//
// Backends never return streamed text from a call. Instead they publish
// StreamEvent values (chunk, complete, error) on a Bus, and the session
// controller consumes them through a Subscription. The Bus is a thin layer
// over a watermill gochannel pub/sub configured so that Publish blocks until
// the subscriber has handled the event, which keeps delivery in publish order.
//
// # Wire format
//
//	{"type":"chunk","content":"Hi","stream_id":"..."}
//	{"type":"complete","stream_id":"..."}
//	{"type":"error","message":"model crashed","stream_id":"..."}
//
// # Usage
//
//	bus := events.NewBus(logger)
//	sub, err := bus.Subscribe(ctx, func(ev events.StreamEvent) { ... })
//	defer sub.Close()
//	bus.Publish(events.Chunk(id, "Hi"))
package events
