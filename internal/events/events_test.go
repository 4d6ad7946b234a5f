// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events carries streaming reply events from backends to the session.
package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CODEC TESTS
// =============================================================================

func TestDecode_Kinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want StreamEvent
	}{
		{"chunk", `{"type":"chunk","content":"Hi"}`, StreamEvent{Kind: KindChunk, Content: "Hi"}},
		{"complete", `{"type":"complete","stream_id":"s1"}`, StreamEvent{Kind: KindComplete, StreamID: "s1"}},
		{"error", `{"type":"error","message":"boom"}`, StreamEvent{Kind: KindError, Message: "boom"}},
		{"error without message", `{"type":"error"}`, StreamEvent{Kind: KindError}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	for _, raw := range []string{`{}`, `{"type":"delta"}`, `not json`} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestEncode_UsesWireNames(t *testing.T) {
	data, err := Chunk("s1", "Hi").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chunk","content":"Hi","stream_id":"s1"}`, string(data))

	_, err = StreamEvent{Kind: "bogus"}.Encode()
	assert.Error(t, err)
}

func TestTerminal(t *testing.T) {
	assert.False(t, Chunk("", "x").Terminal())
	assert.True(t, Complete("").Terminal())
	assert.True(t, Error("", "x").Terminal())
}

// =============================================================================
// BUS TESTS
// =============================================================================

type recorder struct {
	mu     sync.Mutex
	events []StreamEvent
}

func (r *recorder) handle(ev StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StreamEvent(nil), r.events...)
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(zerolog.Nop(), nil)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := newTestBus(t)
	rec := &recorder{}

	sub, err := bus.Subscribe(context.Background(), rec.handle)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(Chunk("s", "a")))
	require.NoError(t, bus.Publish(Chunk("s", "b")))
	require.NoError(t, bus.Publish(Chunk("s", "c")))
	require.NoError(t, bus.Publish(Complete("s")))

	// Publish blocks until the handler acked, so no polling is needed.
	got := rec.snapshot()
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.Equal(t, "c", got[2].Content)
	assert.Equal(t, KindComplete, got[3].Kind)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	bus := newTestBus(t)
	rec := &recorder{}

	sub, err := bus.Subscribe(context.Background(), rec.handle)
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("delivery goroutine did not exit")
	}

	require.NoError(t, bus.Publish(Chunk("", "late")))
	assert.Empty(t, rec.snapshot())

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Close)
}

func TestBus_ClosedRejects(t *testing.T) {
	bus := NewBus(zerolog.Nop(), nil)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(Complete("")), ErrBusClosed)
	_, err := bus.Subscribe(context.Background(), func(StreamEvent) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_PublishWithoutSubscriberDrops(t *testing.T) {
	bus := newTestBus(t)
	assert.NoError(t, bus.Publish(Chunk("", "nobody listening")))
}
