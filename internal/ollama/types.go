// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the non-streaming response from /api/chat.
type ChatResponse struct {
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
	Message    Message   `json:"message"`
	Done       bool      `json:"done"`
	DoneReason string    `json:"done_reason,omitempty"`

	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
	EvalDuration    int64 `json:"eval_duration,omitempty"`
}

// TokensPerSecond returns the generation speed reported by the server.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r.EvalDuration <= 0 {
		return 0
	}
	return float64(r.EvalCount) / time.Duration(r.EvalDuration).Seconds()
}

// VersionResponse is the response from /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// StreamChunk is one decoded line of a streaming /api/chat response.
type StreamChunk struct {
	Content    string
	Done       bool
	DoneReason string
	Model      string

	// Populated on the final chunk only.
	TotalDuration    time.Duration
	PromptTokens     int
	CompletionTokens int
	// Error is set when the server reports an error mid-stream.
	Error string
}

// apiError is the error body Ollama returns on failure.
type apiError struct {
	Error string `json:"error"`
}
