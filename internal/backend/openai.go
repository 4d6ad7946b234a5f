// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/chatdesk/internal/events"
)

// =============================================================================
// OPENAI-COMPATIBLE BACKEND
// =============================================================================

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// OpenAI answers through the chat completions API of any OpenAI-compatible
// server.
type OpenAI struct {
	cfg    OpenAIConfig
	client *goopenai.Client
	pub    events.Publisher
	logger zerolog.Logger
}

// NewOpenAI creates an OpenAI-compatible backend.
func NewOpenAI(cfg OpenAIConfig, pub events.Publisher, logger zerolog.Logger) *OpenAI {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		clientCfg.BaseURL = cfg.BaseURL
	} else {
		cfg.BaseURL = clientCfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		cfg:    cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
		pub:    pub,
		logger: logger.With().Str("backend", "openai").Str("model", cfg.Model).Logger(),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) InstallHint() string {
	return fmt.Sprintf("No OpenAI-compatible server is reachable at %s. Please start one to use this chat.", o.cfg.BaseURL)
}

// CheckAvailable lists models; any failure means unavailable.
func (o *OpenAI) CheckAvailable(ctx context.Context) (bool, error) {
	if _, err := o.client.ListModels(ctx); err != nil {
		return false, o.callError(ctx, err)
	}
	return true, nil
}

func (o *OpenAI) Info(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s @ %s", o.cfg.Model, o.cfg.BaseURL), nil
}

func (o *OpenAI) Send(ctx context.Context, text string) (*Reply, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(text))
	if err != nil {
		return nil, o.callError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return &Reply{Success: false, Error: "response contained no choices"}, nil
	}
	o.logger.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("completion finished")
	return &Reply{Success: true, Message: resp.Choices[0].Message.Content}, nil
}

// StartStream opens the stream synchronously, so a refused connection or a
// rejected request is returned here rather than as an event.
func (o *OpenAI) StartStream(ctx context.Context, req StreamRequest) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(req.Text))
	if err != nil {
		return o.callError(ctx, err)
	}

	go func() {
		defer stream.Close()
		em := newEmitter(o.pub, req.ID, o.logger)
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				em.complete()
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					em.fail(o.callError(ctx, err).Error())
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if content := resp.Choices[0].Delta.Content; content != "" {
				if !em.chunk(content) {
					return
				}
			}
		}
	}()
	return nil
}

func (o *OpenAI) request(text string) goopenai.ChatCompletionRequest {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if o.cfg.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: o.cfg.SystemPrompt})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: text})
	return goopenai.ChatCompletionRequest{Model: o.cfg.Model, Messages: msgs}
}

func (o *OpenAI) callError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &CallError{Kind: KindCanceled, Message: "request canceled", Cause: ctx.Err()}
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &CallError{Kind: KindAPI, Message: "server rejected request", Cause: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &CallError{Kind: KindAPI, Message: fmt.Sprintf("server returned status %d", reqErr.HTTPStatusCode), Cause: err}
	}
	return &CallError{Kind: KindTransport, Message: "request to " + o.cfg.BaseURL + " failed", Cause: err}
}
