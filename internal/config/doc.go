// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for chatdesk.
//
// Supports TOML, JSON and YAML configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Which backend answers messages and how to reach it
//   - ChatConfig: Send mode and client-side timeouts
//   - UIConfig, LogConfig: Presentation and logging
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATDESK_*), including a ./.env file
//   - ~/.chatdesk/config.toml
//   - ~/.chatdesk/config.json
//   - ~/.chatdesk/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	soft, hard := cfg.Chat.SoftWarning(), cfg.Chat.HardTimeout()
package config
