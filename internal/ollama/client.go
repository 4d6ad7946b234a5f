// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so wrapped variants still compare equal.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if errors.As(target, &t) {
		return t.Type == e.Type && t.Type != ErrTypeUnknown
	}
	return false
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Explicit IPv4 avoids IPv6 resolution issues on Windows.
	BaseURL string

	// Timeout for non-streaming requests (default: 120s). Streaming requests
	// rely on the caller's context instead.
	Timeout time.Duration

	// DefaultModel to use if none specified (default: "llama3.2")
	DefaultModel string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:11434",
		Timeout:      120 * time.Second,
		DefaultModel: "llama3.2",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaults.DefaultModel
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// DefaultModel returns the model used when a call names none.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/version", nil)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if err := checkStatus(resp, "version request failed"); err != nil {
		return "", err
	}

	var result VersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Version, nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a chat request and returns the complete response (non-streaming).
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	resp, err := c.postChat(ctx, c.httpClient, model, messages, false)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// ChatStream sends a streaming chat request and calls the callback for each
// chunk, synchronously and in arrival order. Returns when the final chunk has
// been delivered, the body ends, or ctx is cancelled.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) error {
	resp, err := c.postChat(ctx, c.streamClient, model, messages, true)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

func (c *Client) postChat(ctx context.Context, hc *http.Client, model string, messages []Message, stream bool) (*http.Response, error) {
	if model == "" {
		model = c.config.DefaultModel
	}

	body, err := json.Marshal(ChatRequest{Model: model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.do(ctx, hc, http.MethodPost, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "chat request failed"); err != nil {
		drainAndClose(resp.Body)
		return nil, err
	}
	return resp, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
	return resp, nil
}

// checkStatus converts a non-200 response into a ClientError, preferring the
// server's own error text.
func checkStatus(resp *http.Response, prefix string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	if resp.StatusCode == http.StatusNotFound {
		msg := ErrModelNotFound.Message
		if apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &ClientError{Type: ErrTypeModelNotFound, Message: msg}
	}
	if apiErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: prefix + ": " + resp.Status}
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
