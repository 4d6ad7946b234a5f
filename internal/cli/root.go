// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	backend    string
	model      string
	stream     bool
	logLevel   string

	// streamSet is true when --stream was given explicitly.
	streamSet bool
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	return 1
}

// NewRootCmd builds the command tree. Streams are injected for tests.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "chatdesk",
		Short:         "Chat with a local or remote model from the terminal",
		Long:          "chatdesk is a terminal chat client. It sends each message to a backend (a\nlocal script, Ollama or an OpenAI-compatible server) and shows the reply,\neither all at once or streamed as it is generated.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.streamSet = cmd.Flags().Changed("stream")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.chatdesk/config.toml)")
	pf.StringVarP(&opts.backend, "backend", "b", "", "backend kind: process, ollama, openai")
	pf.StringVarP(&opts.model, "model", "m", "", "model name for the ollama and openai backends")
	pf.BoolVarP(&opts.stream, "stream", "s", false, "start in streaming mode")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newTUICmd(opts),
		newChatCmd(opts),
		newAskCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the configuration file (or defaults) and applies the
// persistent flags on top.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cfg, opts); err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// applyFlags overrides cfg with explicitly given flags. Flags win over
// environment variables, which win over the file.
func applyFlags(cfg *config.Config, opts *globalOptions) error {
	if opts.backend != "" {
		if !strings.EqualFold(opts.backend, cfg.Backend.Kind) {
			cfg.Backend.BaseURL = ""
			cfg.Backend.Model = ""
		}
		cfg.Backend.Kind = opts.backend
	}
	if opts.model != "" {
		cfg.Backend.Model = opts.model
	}
	if opts.streamSet {
		cfg.Chat.Streaming = opts.stream
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// configFilePath returns the file the configuration came from, or "".
func configFilePath(opts *globalOptions) string {
	if opts.configPath != "" {
		return opts.configPath
	}
	return config.FindConfigFile()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatdesk %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
