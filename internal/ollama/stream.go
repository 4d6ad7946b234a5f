// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	tokenCount  int
	model       string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := s.readChunk()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if chunk == nil {
			continue
		}

		callback(*chunk)
		if chunk.Done || chunk.Error != "" {
			return nil
		}
	}
}

type streamLine struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// readChunk reads and parses a single line from the stream. Returns a nil
// chunk for blank or malformed lines.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return nil, err
	}

	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return nil, nil
	}

	var resp streamLine
	if jsonErr := json.Unmarshal(line, &resp); jsonErr != nil {
		return nil, nil
	}

	if resp.Model != "" {
		s.model = resp.Model
	}

	content := resp.Message.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.tokenCount++
	}

	chunk := &StreamChunk{
		Content:    content,
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      s.model,
		Error:      resp.Error,
	}
	if resp.Done {
		chunk.TotalDuration = time.Duration(resp.TotalDuration)
		chunk.PromptTokens = resp.PromptEvalCount
		chunk.CompletionTokens = resp.EvalCount
	}
	return chunk, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// TokenCount returns the number of non-empty content chunks received.
func (s *StreamReader) TokenCount() int {
	return s.tokenCount
}
