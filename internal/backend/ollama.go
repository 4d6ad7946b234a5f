// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/ollama"
)

// =============================================================================
// OLLAMA BACKEND
// =============================================================================

// Ollama answers through a local Ollama server.
type Ollama struct {
	client *ollama.Client
	system string
	pub    events.Publisher
	logger zerolog.Logger
}

// NewOllama creates an Ollama backend. systemPrompt may be empty.
func NewOllama(client *ollama.Client, systemPrompt string, pub events.Publisher, logger zerolog.Logger) *Ollama {
	return &Ollama{
		client: client,
		system: systemPrompt,
		pub:    pub,
		logger: logger.With().Str("backend", "ollama").Logger(),
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) InstallHint() string {
	return fmt.Sprintf("Ollama is not reachable at %s. Please install and start Ollama to use this chat.", o.client.BaseURL())
}

// CheckAvailable pings the server root.
func (o *Ollama) CheckAvailable(ctx context.Context) (bool, error) {
	err := o.client.CheckRunning(ctx)
	if err == nil {
		return true, nil
	}
	if ollama.IsNotRunning(err) {
		return false, nil
	}
	return false, err
}

// Info returns "Ollama <version> · <model>".
func (o *Ollama) Info(ctx context.Context) (string, error) {
	version, err := o.client.Version(ctx)
	if err != nil {
		return "", errors.Wrap(err, "ollama version")
	}
	return fmt.Sprintf("Ollama %s · %s", version, o.client.DefaultModel()), nil
}

func (o *Ollama) Send(ctx context.Context, text string) (*Reply, error) {
	resp, err := o.client.Chat(ctx, "", o.messages(text))
	if err != nil {
		return nil, o.callError(ctx, err)
	}
	o.logger.Debug().
		Int("completion_tokens", resp.EvalCount).
		Float64("tokens_per_sec", resp.TokensPerSecond()).
		Msg("chat finished")
	return &Reply{Success: true, Message: resp.Message.Content}, nil
}

// StartStream returns immediately; connection failures arrive as an error
// event.
func (o *Ollama) StartStream(ctx context.Context, req StreamRequest) error {
	msgs := o.messages(req.Text)
	go func() {
		em := newEmitter(o.pub, req.ID, o.logger)
		err := o.client.ChatStream(ctx, "", msgs, func(c ollama.StreamChunk) {
			switch {
			case c.Error != "":
				em.fail(c.Error)
				return
			case c.Content != "":
				if !em.chunk(c.Content) {
					return
				}
			}
			if c.Done {
				em.complete()
			}
		})
		if em.done || ctx.Err() != nil {
			return
		}
		if err != nil {
			em.fail(o.callError(ctx, err).Error())
			return
		}
		em.fail("stream ended without completion")
	}()
	return nil
}

func (o *Ollama) messages(text string) []ollama.Message {
	msgs := make([]ollama.Message, 0, 2)
	if o.system != "" {
		msgs = append(msgs, ollama.NewSystemMessage(o.system))
	}
	return append(msgs, ollama.NewUserMessage(text))
}

func (o *Ollama) callError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return &CallError{Kind: KindCanceled, Message: "request canceled", Cause: ctx.Err()}
	case ollama.IsNotRunning(err):
		return &CallError{Kind: KindUnavailable, Message: "Ollama is not running at " + o.client.BaseURL()}
	case ollama.IsTimeout(err):
		return &CallError{Kind: KindTransport, Message: "Ollama request timed out", Cause: err}
	}
	return &CallError{Kind: KindAPI, Message: "Ollama request failed", Cause: err}
}
