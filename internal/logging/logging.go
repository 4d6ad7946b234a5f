// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger chatdesk components share.
//
// The TUI owns stdout and stderr while it runs, so interactive commands log
// to a file (default ~/.chatdesk/chatdesk.log); one-shot commands log to
// stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/config"
)

// Sink selects where log output goes.
type Sink int

const (
	// SinkFile writes JSON lines to the configured log file.
	SinkFile Sink = iota
	// SinkStderr writes human-readable lines to stderr.
	SinkStderr
)

// ParseLevel parses a level name. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	switch s {
	case "trace", "debug", "info", "warn", "error":
		return zerolog.ParseLevel(s)
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
}

// Setup builds a logger from cfg. The returned closer releases the log file
// (a no-op for stderr) and must be called on shutdown.
func Setup(cfg config.LogConfig, sink Sink) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if sink == SinkStderr {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return newLogger(w, level), nopCloser{}, nil
	}

	path := cfg.File
	if path == "" {
		if path, err = config.DefaultLogPath(); err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}
	return newLogger(f, level), f, nil
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "chatdesk").Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// =============================================================================
// WATERMILL ADAPTER
// =============================================================================

// Watermill adapts a zerolog.Logger to watermill.LoggerAdapter.
type Watermill struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = Watermill{}

// NewWatermill wraps logger for use by watermill components.
func NewWatermill(logger zerolog.Logger) Watermill {
	return Watermill{logger: logger.With().Str("component", "watermill").Logger()}
}

func (w Watermill) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Info(msg string, fields watermill.LogFields) {
	w.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w Watermill) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return Watermill{logger: w.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
