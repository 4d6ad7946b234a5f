// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for chatdesk.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/chatdesk/internal/util"
)

// Backend kinds.
const (
	KindProcess = "process"
	KindOllama  = "ollama"
	KindOpenAI  = "openai"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatdesk configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`
	Chat    ChatConfig    `toml:"chat" json:"chat" yaml:"chat"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
}

// BackendConfig selects and configures the reply backend.
type BackendConfig struct {
	// Kind is one of "process", "ollama", "openai"
	Kind string `toml:"kind" json:"kind" yaml:"kind"`
	// Model is the model name for ollama/openai (ignored by process)
	Model string `toml:"model" json:"model" yaml:"model"`
	// BaseURL is the API base URL for ollama/openai
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// APIKey is sent as a bearer token by the openai backend. May be empty
	// for local OpenAI-compatible servers.
	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`
	// SystemPrompt is prepended to every request when non-empty
	SystemPrompt string `toml:"system_prompt" json:"system_prompt" yaml:"system_prompt"`

	// Interpreter runs the handler script (process backend)
	Interpreter string `toml:"interpreter" json:"interpreter" yaml:"interpreter"`
	// Script is the handler script path (process backend)
	Script string `toml:"script" json:"script" yaml:"script"`

	// CheckTimeoutSecs bounds the startup availability check
	CheckTimeoutSecs int `toml:"check_timeout_secs" json:"check_timeout_secs" yaml:"check_timeout_secs"`
}

// ChatConfig contains send behavior.
type ChatConfig struct {
	// Streaming selects streaming mode at startup
	Streaming bool `toml:"streaming" json:"streaming" yaml:"streaming"`
	// SoftWarningSecs is when a pending batch reply gets a "still waiting" notice
	SoftWarningSecs int `toml:"soft_warning_secs" json:"soft_warning_secs" yaml:"soft_warning_secs"`
	// HardTimeoutSecs is when a pending batch reply is abandoned
	HardTimeoutSecs int `toml:"hard_timeout_secs" json:"hard_timeout_secs" yaml:"hard_timeout_secs"`
	// ConfirmClear asks before clearing the conversation
	ConfirmClear bool `toml:"confirm_clear" json:"confirm_clear" yaml:"confirm_clear"`
}

// SoftWarning returns SoftWarningSecs as a duration.
func (c ChatConfig) SoftWarning() time.Duration {
	return time.Duration(c.SoftWarningSecs) * time.Second
}

// HardTimeout returns HardTimeoutSecs as a duration.
func (c ChatConfig) HardTimeout() time.Duration {
	return time.Duration(c.HardTimeoutSecs) * time.Second
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
	// ShowTimestamps shows message times in the transcript
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps" yaml:"show_timestamps"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the log file path (empty = ~/.chatdesk/chatdesk.log)
	File string `toml:"file" json:"file" yaml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	cfg := &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			Kind:             KindProcess,
			Interpreter:      defaultInterpreter(),
			Script:           filepath.Join("python", "chat_handler.py"),
			CheckTimeoutSecs: 10,
		},

		Chat: ChatConfig{
			Streaming:       false,
			SoftWarningSecs: 30,
			HardTimeoutSecs: 45,
			ConfirmClear:    true,
		},

		UI: UIConfig{
			Theme:          "dark",
			Markdown:       true,
			ShowTimestamps: true,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
	cfg.SetDefaults()
	return cfg
}

func defaultInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// Per-kind endpoint defaults. The openai defaults target a local
// OpenAI-compatible server.
var (
	defaultBaseURL = map[string]string{
		KindOllama: "http://127.0.0.1:11434",
		KindOpenAI: "http://localhost:8081/v1",
	}
	defaultModel = map[string]string{
		KindOllama: "llama3.2",
		KindOpenAI: "gpt-oss-20b",
	}
)

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatdesk configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatdesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return inConfigDir("config.json")
}

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) {
	return inConfigDir("config.yaml")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() (string, error) {
	return inConfigDir("chatdesk.log")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// FindConfigFile returns the first existing config file in precedence
// order, or "" if none exists.
func FindConfigFile() string {
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		path, err := fn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found, falling back
// to defaults. A ./.env file and environment overrides are applied last.
func Load() (*Config, error) {
	if path := FindConfigFile(); path != "" {
		return LoadFromPath(path)
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by extension; anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Per-kind defaults must be re-derived after the file picks a kind.
	cfg.Backend.BaseURL = ""
	cfg.Backend.Model = ""

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	loadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// Written atomically with 0600 permissions since it may hold an API key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatdesk configuration file\n")
	buf.WriteString("# Generated by chatdesk - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Backend
	switch c.Backend.Kind {
	case KindProcess:
		if strings.TrimSpace(c.Backend.Interpreter) == "" {
			add("backend.interpreter", "required for the process backend")
		}
		if strings.TrimSpace(c.Backend.Script) == "" {
			add("backend.script", "required for the process backend")
		}
	case KindOllama, KindOpenAI:
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("backend.base_url", "invalid URL '%s', must be http(s)://host[:port]", c.Backend.BaseURL)
		}
		if c.Backend.Model == "" {
			add("backend.model", "required for the %s backend", c.Backend.Kind)
		}
	default:
		add("backend.kind", "invalid kind '%s', must be one of: process, ollama, openai", c.Backend.Kind)
	}
	if c.Backend.CheckTimeoutSecs < 1 || c.Backend.CheckTimeoutSecs > 300 {
		add("backend.check_timeout_secs", "must be 1-300, got %d", c.Backend.CheckTimeoutSecs)
	}

	// Chat
	if c.Chat.HardTimeoutSecs < 1 || c.Chat.HardTimeoutSecs > 3600 {
		add("chat.hard_timeout_secs", "must be 1-3600, got %d", c.Chat.HardTimeoutSecs)
	}
	if c.Chat.SoftWarningSecs < 1 {
		add("chat.soft_warning_secs", "must be positive, got %d", c.Chat.SoftWarningSecs)
	} else if c.Chat.SoftWarningSecs >= c.Chat.HardTimeoutSecs {
		add("chat.soft_warning_secs", "must be less than hard_timeout_secs (%d), got %d",
			c.Chat.HardTimeoutSecs, c.Chat.SoftWarningSecs)
	}

	// UI
	if t := strings.ToLower(c.UI.Theme); t != "dark" && t != "light" {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light", c.UI.Theme)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: trace, debug, info, warn, error", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
// Endpoint and model defaults depend on Backend.Kind.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0.0"
	}

	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = KindProcess
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL[c.Backend.Kind]
	}
	if c.Backend.Model == "" {
		c.Backend.Model = defaultModel[c.Backend.Kind]
	}
	if c.Backend.Interpreter == "" {
		c.Backend.Interpreter = defaultInterpreter()
	}
	if c.Backend.Script == "" {
		c.Backend.Script = filepath.Join("python", "chat_handler.py")
	}
	if c.Backend.CheckTimeoutSecs == 0 {
		c.Backend.CheckTimeoutSecs = 10
	}

	if c.Chat.SoftWarningSecs == 0 {
		c.Chat.SoftWarningSecs = 30
	}
	if c.Chat.HardTimeoutSecs == 0 {
		c.Chat.HardTimeoutSecs = 45
	}

	if c.UI.Theme == "" {
		c.UI.Theme = "dark"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATDESK_BACKEND: overrides backend.kind
//   - CHATDESK_MODEL: overrides backend.model
//   - CHATDESK_BASE_URL: overrides backend.base_url
//   - CHATDESK_API_KEY: overrides backend.api_key (falls back to OPENAI_API_KEY)
//   - CHATDESK_INTERPRETER: overrides backend.interpreter
//   - CHATDESK_SCRIPT: overrides backend.script
//   - CHATDESK_STREAMING: set to "1" or "true" to start in streaming mode
//   - CHATDESK_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if kind := os.Getenv("CHATDESK_BACKEND"); kind != "" {
		if !strings.EqualFold(kind, c.Backend.Kind) {
			// Switching kinds invalidates the previous kind's endpoint.
			c.Backend.BaseURL = ""
			c.Backend.Model = ""
		}
		c.Backend.Kind = kind
	}
	if model := os.Getenv("CHATDESK_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if u := os.Getenv("CHATDESK_BASE_URL"); u != "" {
		c.Backend.BaseURL = u
	}
	if key := os.Getenv("CHATDESK_API_KEY"); key != "" {
		c.Backend.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Backend.APIKey == "" {
		c.Backend.APIKey = key
	}
	if interp := os.Getenv("CHATDESK_INTERPRETER"); interp != "" {
		c.Backend.Interpreter = interp
	}
	if script := os.Getenv("CHATDESK_SCRIPT"); script != "" {
		c.Backend.Script = script
	}
	if streaming := os.Getenv("CHATDESK_STREAMING"); streaming != "" {
		if b, err := strconv.ParseBool(streaming); err == nil {
			c.Chat.Streaming = b
		}
	}
	if level := os.Getenv("CHATDESK_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a TOML rendering of the config with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Backend.APIKey != "" {
		safe.Backend.APIKey = "[REDACTED]"
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
