// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events carries streaming reply events from backends to the session.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// Topic is the watermill topic stream events travel on.
const Topic = "chat.stream"

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Publisher is the side of the bus backends see.
type Publisher interface {
	Publish(ev StreamEvent) error
}

// Handler consumes one event. Handlers run on the subscription goroutine,
// one at a time, in publish order.
type Handler func(ev StreamEvent)

// =============================================================================
// BUS
// =============================================================================

// Bus is an in-process pub/sub for stream events.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus. wmLogger may be nil, in which case watermill's own
// diagnostics are discarded.
func NewBus(logger zerolog.Logger, wmLogger watermill.LoggerAdapter) *Bus {
	if wmLogger == nil {
		wmLogger = watermill.NopLogger{}
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
		// Publish returns only after the handler acked, so events are
		// applied in the order backends emit them.
		BlockPublishUntilSubscriberAck: true,
	}, wmLogger)

	return &Bus{
		pubsub: pubsub,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Publish encodes ev and delivers it to current subscribers. With no
// subscriber the event is dropped.
func (b *Bus) Publish(ev StreamEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubsub.Publish(Topic, msg)
}

// Subscribe starts delivering events to h until ctx is done or the returned
// Subscription is closed.
func (b *Bus) Subscribe(ctx context.Context, h Handler) (*Subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := b.pubsub.Subscribe(subCtx, Topic)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go b.deliver(subCtx, ch, h, sub.done)
	return sub, nil
}

func (b *Bus) deliver(ctx context.Context, ch <-chan *message.Message, h Handler, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := Decode(msg.Payload)
			if err != nil {
				b.logger.Warn().Err(err).Str("payload", string(msg.Payload)).Msg("dropping malformed stream event")
				msg.Ack()
				continue
			}
			h(ev)
			msg.Ack()
		}
	}
}

// Close shuts the bus down. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops delivery. Safe to call more than once and from any goroutine,
// including from inside the handler.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
