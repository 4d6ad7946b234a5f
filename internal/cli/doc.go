// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the chatdesk command-line interface.
//
// # Commands
//
//   - tui: full-screen chat (the default when no command is given)
//   - chat: line-based chat for plain terminals and pipes
//   - ask: one turn, printed to stdout
//   - status: backend availability and info
//   - config: show, path and init
//   - version
//
// Every command shares the persistent flags --config, --backend, --model,
// --stream and --log-level, which override the loaded configuration.
package cli
