// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backendtest provides a scriptable in-memory backend for tests.
package backendtest

import (
	"context"
	"sync"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/events"
)

// Fake is a backend.Backend whose behavior is set per test. The zero value
// is not usable; call New.
type Fake struct {
	pub events.Publisher

	mu        sync.Mutex
	available bool
	availErr  error
	info      string
	infoErr   error
	sendFunc  func(ctx context.Context, text string) (*backend.Reply, error)
	startFunc func(ctx context.Context, req backend.StreamRequest) error

	sends   []string
	streams []backend.StreamRequest
}

var _ backend.Backend = (*Fake)(nil)

// New returns an available fake that echoes sends and starts streams
// without emitting anything. Tests drive the stream with Emit.
func New(pub events.Publisher) *Fake {
	return &Fake{
		pub:       pub,
		available: true,
		info:      "fake 1.0",
		sendFunc: func(_ context.Context, text string) (*backend.Reply, error) {
			return &backend.Reply{Success: true, Message: "echo: " + text}, nil
		},
	}
}

// SetAvailable sets the CheckAvailable result.
func (f *Fake) SetAvailable(ok bool, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available, f.availErr = ok, err
	return f
}

// SetInfo sets the Info result.
func (f *Fake) SetInfo(info string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info, f.infoErr = info, err
	return f
}

// OnSend replaces the Send behavior.
func (f *Fake) OnSend(fn func(ctx context.Context, text string) (*backend.Reply, error)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendFunc = fn
	return f
}

// OnStartStream replaces the StartStream behavior. fn runs synchronously
// inside StartStream; an error it returns is the trigger failing.
func (f *Fake) OnStartStream(fn func(ctx context.Context, req backend.StreamRequest) error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startFunc = fn
	return f
}

// =============================================================================
// backend.Backend
// =============================================================================

func (f *Fake) Name() string { return "fake" }

func (f *Fake) InstallHint() string {
	return "fake is not available. Please install it to use this chat."
}

func (f *Fake) CheckAvailable(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available, f.availErr
}

func (f *Fake) Info(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info, f.infoErr
}

func (f *Fake) Send(ctx context.Context, text string) (*backend.Reply, error) {
	f.mu.Lock()
	f.sends = append(f.sends, text)
	fn := f.sendFunc
	f.mu.Unlock()
	return fn(ctx, text)
}

func (f *Fake) StartStream(ctx context.Context, req backend.StreamRequest) error {
	f.mu.Lock()
	f.streams = append(f.streams, req)
	fn := f.startFunc
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, req)
}

// =============================================================================
// INSPECTION AND DRIVING
// =============================================================================

// Sends returns the texts passed to Send so far.
func (f *Fake) Sends() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

// Streams returns the requests passed to StartStream so far.
func (f *Fake) Streams() []backend.StreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.StreamRequest(nil), f.streams...)
}

// LastStreamID returns the id of the most recent StartStream call, or "".
func (f *Fake) LastStreamID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return ""
	}
	return f.streams[len(f.streams)-1].ID
}

// Emit publishes ev as the backend would.
func (f *Fake) Emit(ev events.StreamEvent) error {
	return f.pub.Publish(ev)
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder is an events.Publisher that keeps everything published to it.
type Recorder struct {
	mu       sync.Mutex
	events   []events.StreamEvent
	terminal chan struct{}
	once     sync.Once
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{terminal: make(chan struct{})}
}

func (r *Recorder) Publish(ev events.StreamEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if ev.Terminal() {
		r.once.Do(func() { close(r.terminal) })
	}
	return nil
}

// Terminal is closed after the first terminal event.
func (r *Recorder) Terminal() <-chan struct{} {
	return r.terminal
}

// Events returns what has been published so far.
func (r *Recorder) Events() []events.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.StreamEvent(nil), r.events...)
}
