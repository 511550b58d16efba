package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hamed0406/flvexporter/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration before deploying",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		return preflight(cmd.OutOrStdout(), cfg)
	},
}

// preflight prints one line per finding and returns the validation errors.
// Warnings never fail.
func preflight(w io.Writer, cfg *config.Config) error {
	ok := func(msg string, a ...any) { fmt.Fprintln(w, color.GreenString("✔"), fmt.Sprintf(msg, a...)) }
	warn := func(msg string, a ...any) { fmt.Fprintln(w, color.YellowString("⚠"), fmt.Sprintf(msg, a...)) }
	fail := func(msg string, a ...any) { fmt.Fprintln(w, color.RedString("✖"), fmt.Sprintf(msg, a...)) }

	if cfg.File == "" {
		warn("no config file found, using defaults and environment")
	} else {
		ok("config file %s", cfg.File)
	}

	err := cfg.Validate()
	for _, e := range multierr.Errors(err) {
		fail("%v", e)
	}

	targets := cfg.Targets()
	switch {
	case len(targets) == 0:
		warn("flv.urls is empty, nothing will be monitored")
	case err == nil:
		ok("%d streams in %d projects", len(targets), len(cfg.Flv.URLs))
	}

	for _, e := range cfg.URLWarnings() {
		warn("%v (will report down)", e)
	}

	chk := cfg.Flv.Check
	if chk.InsecureSkipVerify {
		warn("TLS certificate verification is disabled (flv.check.insecure_skip_verify)")
	}
	if chk.RoundDeadline() < chk.Timeout() {
		warn("round deadline %s is shorter than the check timeout %s", chk.RoundDeadline(), chk.Timeout())
	}
	if cfg.Notify.SlackWebhook == "" {
		warn("notify.slack_webhook is empty, alerts are disabled")
	} else {
		ok("slack alerts enabled")
	}
	if cfg.Server.APIRatePerMin == 0 {
		warn("API rate limiting is disabled (server.api_rate_per_min = 0)")
	}

	if err != nil {
		return fmt.Errorf("configuration has %d problem(s)", len(multierr.Errors(err)))
	}
	return nil
}
