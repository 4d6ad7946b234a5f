// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend defines how chatdesk reaches whatever produces replies.
//
// A Backend exposes two calls: Send, a one-shot request returning a Reply,
// and StartStream, a trigger that returns once the stream is under way and
// then publishes chunk/complete/error events to the events.Publisher the
// backend was built with. Every started stream ends in exactly one terminal
// event unless the context passed to StartStream is cancelled first.
//
// # Implementations
//
//   - Process: runs `<interpreter> <script> <message>` and parses one JSON
//     object {success, message, error} from stdout. With --stream the script
//     prints newline-delimited stream events instead.
//   - Ollama: /api/chat on a local Ollama server.
//   - OpenAI: chat completions against any OpenAI-compatible server.
//
// FromConfig picks one from a config.BackendConfig.
package backend
