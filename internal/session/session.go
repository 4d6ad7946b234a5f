// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/model"
)

// Errors returned by Send when a precondition fails. Except for ErrClosed,
// the same condition is also appended to the history as an error message.
var (
	ErrEmptyInput  = errors.New("empty message")
	ErrBusy        = errors.New("a response is still in progress")
	ErrUnavailable = errors.New("backend unavailable")
	ErrClosed      = errors.New("session closed")
)

// Default batch timers.
const (
	DefaultSoftWarning = 30 * time.Second
	DefaultHardTimeout = 45 * time.Second
)

// Listener receives a snapshot after every state change.
type Listener func(State)

// Subscriber is the part of events.Bus the session needs.
type Subscriber interface {
	Subscribe(ctx context.Context, h events.Handler) (*events.Subscription, error)
}

// Options configures a Session.
type Options struct {
	// SoftWarning and HardTimeout bound batch turns. Zero means default.
	SoftWarning time.Duration
	HardTimeout time.Duration

	// Streaming selects the initial mode.
	Streaming bool

	Logger   zerolog.Logger
	Listener Listener

	// NewStreamID generates stream ids (default uuid.NewString).
	NewStreamID func() string
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the conversation session controller. All methods are safe for
// concurrent use.
type Session struct {
	backend  backend.Backend
	bus      Subscriber
	logger   zerolog.Logger
	listener Listener
	newID    func() string

	// ctx lives until Close; stream goroutines and batch calls derive from it.
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	version      uint64
	history      *model.History
	status       model.SystemStatus
	draft        string
	sending      bool
	streaming    bool
	streamActive bool
	streamID     string
	live         strings.Builder
	turn         uint64
	batchCancel  context.CancelFunc
	softWarning  time.Duration
	hardTimeout  time.Duration
	sub          *events.Subscription
	closed       bool

	notifyMu     sync.Mutex
	lastNotified uint64

	batches   sync.WaitGroup
	closeOnce sync.Once
}

// New creates a session. The status starts as "checking" until
// CheckAvailability runs.
func New(b backend.Backend, bus Subscriber, opts Options) *Session {
	if opts.SoftWarning <= 0 {
		opts.SoftWarning = DefaultSoftWarning
	}
	if opts.HardTimeout <= 0 {
		opts.HardTimeout = DefaultHardTimeout
	}
	if opts.NewStreamID == nil {
		opts.NewStreamID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		backend:     b,
		bus:         bus,
		logger:      opts.Logger.With().Str("component", "session").Str("backend", b.Name()).Logger(),
		listener:    opts.Listener,
		newID:       opts.NewStreamID,
		ctx:         ctx,
		cancel:      cancel,
		history:     model.NewHistory(),
		status:      model.SystemStatus{Checking: true},
		streaming:   opts.Streaming,
		softWarning: opts.SoftWarning,
		hardTimeout: opts.HardTimeout,
	}
}

// Backend returns the backend the session talks to.
func (s *Session) Backend() backend.Backend {
	return s.backend
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Subscribe installs the stream event handler. Any previous subscription is
// torn down first, so calling Subscribe again never duplicates delivery.
func (s *Session) Subscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.sub
	s.sub = nil
	s.mu.Unlock()

	if old != nil {
		old.Close()
		<-old.Done()
	}

	sub, err := s.bus.Subscribe(s.ctx, s.HandleEvent)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.Close()
		return ErrClosed
	}
	s.sub = sub
	return nil
}

// Unsubscribe removes the stream event handler. Safe to call repeatedly.
func (s *Session) Unsubscribe() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	sub.Close()
}

// Close tears the session down: unsubscribes, cancels in-flight calls and
// waits for batch turns to return. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.sub = nil
		s.mu.Unlock()

		sub.Close()
		s.cancel()
		s.batches.Wait()
		s.logger.Debug().Msg("session closed")
	})
	return nil
}

// Wait blocks until every in-flight batch turn has settled.
func (s *Session) Wait() {
	s.batches.Wait()
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// CheckAvailability queries the backend and records the result. A failing
// check counts as unavailable and is never returned. When unavailable, the
// history is seeded with the backend's install hint.
func (s *Session) CheckAvailability(ctx context.Context) model.SystemStatus {
	s.mu.Lock()
	s.status.Checking = true
	checking := s.changedLocked()
	s.mu.Unlock()
	s.notify(checking)

	available, err := s.backend.CheckAvailable(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("availability check failed")
		available = false
	}

	var info string
	if available {
		if info, err = s.backend.Info(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("backend info unavailable")
			info = ""
		}
	}

	s.mu.Lock()
	s.status = model.SystemStatus{BackendAvailable: available, BackendInfo: info}
	if !available {
		hint := s.backend.InstallHint()
		if last, ok := s.history.Last(); !ok || last.Content != hint {
			s.history.Append(model.NewErrorMessage(hint))
		}
	}
	status := s.status
	st := s.changedLocked()
	s.mu.Unlock()

	s.logger.Info().Bool("available", available).Str("info", info).Msg("backend checked")
	s.notify(st)
	return status
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Draft returns the current draft input.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Timeouts returns the batch soft warning and hard timeout.
func (s *Session) Timeouts() (soft, hard time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softWarning, s.hardTimeout
}

// SetTimeouts changes the batch timers for turns started afterwards.
// Non-positive values are ignored.
func (s *Session) SetTimeouts(soft, hard time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if soft > 0 {
		s.softWarning = soft
	}
	if hard > 0 {
		s.hardTimeout = hard
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Session) snapshotLocked() State {
	return State{
		Version:      s.version,
		Messages:     s.history.Messages(),
		Status:       s.status,
		Draft:        s.draft,
		Sending:      s.sending,
		Streaming:    s.streaming,
		StreamActive: s.streamActive,
		LiveBuffer:   s.live.String(),
	}
}

// changedLocked bumps the version and returns the snapshot to notify with
// once the lock is released.
func (s *Session) changedLocked() State {
	s.version++
	return s.snapshotLocked()
}

func (s *Session) notify(st State) {
	if s.listener == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if st.Version <= s.lastNotified {
		return
	}
	s.lastNotified = st.Version
	s.listener(st)
}

func (s *Session) resetStreamLocked() {
	s.streamActive = false
	s.streamID = ""
	s.live.Reset()
}
