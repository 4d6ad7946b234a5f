// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// RUNTIME
// =============================================================================

// runtime is everything a command needs to hold a conversation: logger,
// event bus, backend and session. Close releases it in reverse order.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	bus     *events.Bus
	backend backend.Backend
	session *session.Session

	logCloser io.Closer
}

// newRuntime wires a session for cfg. listener may be nil.
func newRuntime(cfg *config.Config, sink logging.Sink, listener session.Listener) (*runtime, error) {
	logger, closer, err := logging.Setup(cfg.Log, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	bus := events.NewBus(logger, logging.NewWatermill(logger))
	b, err := backend.FromConfig(cfg.Backend, bus, logger)
	if err != nil {
		bus.Close()
		closer.Close()
		return nil, err
	}

	sess := session.New(b, bus, session.Options{
		SoftWarning: cfg.Chat.SoftWarning(),
		HardTimeout: cfg.Chat.HardTimeout(),
		Streaming:   cfg.Chat.Streaming,
		Logger:      logger,
		Listener:    listener,
	})
	if err := sess.Subscribe(); err != nil {
		sess.Close()
		bus.Close()
		closer.Close()
		return nil, fmt.Errorf("failed to subscribe to stream events: %w", err)
	}

	logger.Info().
		Str("backend", b.Name()).
		Bool("streaming", cfg.Chat.Streaming).
		Str("version", Version).
		Msg("chatdesk started")

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		bus:       bus,
		backend:   b,
		session:   sess,
		logCloser: closer,
	}, nil
}

// checkTimeout is the availability check budget from the config.
func (r *runtime) checkTimeout() time.Duration {
	if secs := r.cfg.Backend.CheckTimeoutSecs; secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 10 * time.Second
}

// checkAvailability runs the startup availability check.
func (r *runtime) checkAvailability(ctx context.Context) model.SystemStatus {
	ctx, cancel := context.WithTimeout(ctx, r.checkTimeout())
	defer cancel()
	return r.session.CheckAvailability(ctx)
}

// Close shuts the session, bus and log file down.
func (r *runtime) Close() {
	r.session.Close()
	if err := r.bus.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to close event bus")
	}
	r.logger.Info().Msg("chatdesk stopped")
	r.logCloser.Close()
}
