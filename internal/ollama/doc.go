// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// Only the endpoints chatdesk needs are covered:
//
//   - GET  /             health check (CheckRunning)
//   - GET  /api/version  server version (Version)
//   - POST /api/chat     one-shot (Chat) and NDJSON streaming (ChatStream)
//
// Errors are returned as *ClientError values whose Type classifies the
// failure (not running, timeout, model not found, invalid response).
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      "http://127.0.0.1:11434",
//	    DefaultModel: "llama3.2",
//	})
//	err := client.ChatStream(ctx, "", msgs, func(c ollama.StreamChunk) {
//	    fmt.Print(c.Content)
//	})
package ollama
