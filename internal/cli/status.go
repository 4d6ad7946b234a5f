// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/model"
)

// StatusReport is the machine-readable status output.
type StatusReport struct {
	Backend    string             `json:"backend"`
	Status     model.SystemStatus `json:"status"`
	Hint       string             `json:"hint,omitempty"`
	Mode       string             `json:"mode"`
	ConfigFile string             `json:"config_file,omitempty"`
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the backend is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, logSink(opts), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			status := rt.checkAvailability(cmd.Context())
			report := StatusReport{
				Backend:    rt.backend.Name(),
				Status:     status,
				Mode:       rt.session.Snapshot().ModeName(),
				ConfigFile: configFilePath(opts),
			}
			if !status.BackendAvailable {
				report.Hint = rt.backend.InstallHint()
			}

			if asJSON {
				err = writeStatusJSON(cmd.OutOrStdout(), report)
			} else {
				writeStatus(cmd.OutOrStdout(), cfg, report)
			}
			if err != nil {
				return err
			}
			if !status.BackendAvailable {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func writeStatus(w io.Writer, cfg *config.Config, r StatusReport) {
	fmt.Fprintln(w, TitleStyle.Render("chatdesk status"))
	fmt.Fprintln(w, renderField("Backend", r.Backend))

	state := SuccessStyle.Render("available")
	if !r.Status.BackendAvailable {
		state = ErrorStyle.Render("unavailable")
	}
	fmt.Fprintln(w, LabelStyle.Render("Status")+state)
	if r.Status.BackendInfo != "" {
		fmt.Fprintln(w, renderField("Info", r.Status.BackendInfo))
	}
	fmt.Fprintln(w, renderField("Mode", r.Mode))
	fmt.Fprintln(w, renderField("Timeouts", fmt.Sprintf("warn %s, give up %s", cfg.Chat.SoftWarning(), cfg.Chat.HardTimeout())))

	configFile := r.ConfigFile
	if configFile == "" {
		configFile = "(defaults)"
	}
	fmt.Fprintln(w, renderField("Config", configFile))

	if r.Hint != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, WarningStyle.Render(r.Hint))
	}
}

func writeStatusJSON(w io.Writer, r StatusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
