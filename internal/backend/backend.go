// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/ollama"
)

// =============================================================================
// INTERFACE
// =============================================================================

// Backend produces replies to user messages.
type Backend interface {
	// Name is a short identifier ("process", "ollama", "openai").
	Name() string

	// InstallHint is shown to the user when CheckAvailable reports false.
	InstallHint() string

	// CheckAvailable reports whether the backend can be used at all.
	CheckAvailable(ctx context.Context) (bool, error)

	// Info returns a human-readable description (version, model).
	Info(ctx context.Context) (string, error)

	// Send performs a one-shot request.
	Send(ctx context.Context, text string) (*Reply, error)

	// StartStream starts a streaming reply and returns without waiting for
	// it. Events carry req.ID as their stream id.
	StartStream(ctx context.Context, req StreamRequest) error
}

// Reply is the result of a one-shot request.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StreamRequest identifies a streaming turn.
type StreamRequest struct {
	ID   string
	Text string
}

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors, matched with errors.Is against a *CallError.
var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrNoScript    = errors.New("handler script not found")
)

// ErrorKind categorizes call failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnavailable
	KindNotFound
	KindExec
	KindExit
	KindDecode
	KindTransport
	KindAPI
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindUnknown:     "unknown",
	KindUnavailable: "unavailable",
	KindNotFound:    "not_found",
	KindExec:        "exec",
	KindExit:        "exit",
	KindDecode:      "decode",
	KindTransport:   "transport",
	KindAPI:         "api",
	KindCanceled:    "canceled",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// CallError is returned by Send and StartStream when the call itself failed
// (as opposed to a Reply with Success=false).
type CallError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is matches the package sentinels by kind.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrNoScript:
		return e.Kind == KindNotFound
	}
	return false
}

// KindOf returns the ErrorKind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// =============================================================================
// FACTORY
// =============================================================================

// FromConfig builds the backend selected by cfg.Kind.
func FromConfig(cfg config.BackendConfig, pub events.Publisher, logger zerolog.Logger) (Backend, error) {
	switch cfg.Kind {
	case config.KindProcess:
		return NewProcess(ProcessConfig{
			Interpreter: cfg.Interpreter,
			Script:      cfg.Script,
		}, pub, logger), nil

	case config.KindOllama:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
		return NewOllama(client, cfg.SystemPrompt, pub, logger), nil

	case config.KindOpenAI:
		return NewOpenAI(OpenAIConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
		}, pub, logger), nil
	}
	return nil, errors.Errorf("unknown backend kind %q", cfg.Kind)
}
