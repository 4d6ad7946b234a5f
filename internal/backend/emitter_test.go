// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/events"
)

type publishFunc func(events.StreamEvent) error

func (f publishFunc) Publish(ev events.StreamEvent) error { return f(ev) }

func TestEmitter_StampsIDAndStopsAfterTerminal(t *testing.T) {
	var got []events.StreamEvent
	e := newEmitter(publishFunc(func(ev events.StreamEvent) error {
		got = append(got, ev)
		return nil
	}), "s1", zerolog.Nop())

	assert.True(t, e.chunk("a"))
	assert.True(t, e.chunk("b"))
	e.complete()
	e.fail("late")
	e.complete()
	assert.False(t, e.chunk("c"))

	require.Len(t, got, 3)
	for _, ev := range got {
		assert.Equal(t, "s1", ev.StreamID)
	}
	assert.Equal(t, events.KindComplete, got[2].Kind)
}

func TestEmitter_StopsOnPublishFailure(t *testing.T) {
	calls := 0
	e := newEmitter(publishFunc(func(events.StreamEvent) error {
		calls++
		return errors.New("bus closed")
	}), "s1", zerolog.Nop())

	assert.False(t, e.chunk("a"))
	e.fail("boom")
	assert.Equal(t, 1, calls)
}
