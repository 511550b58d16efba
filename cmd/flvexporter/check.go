package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/config"
	"github.com/hamed0406/flvexporter/internal/logging"
	"github.com/hamed0406/flvexporter/internal/scheduler"
)

var (
	checkDeadline time.Duration
	checkVerbose  bool
)

var errUnhealthy = errors.New("one or more streams are unhealthy")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single round of checks and print the result",
	Long: "check probes every configured stream once and prints a per-project summary. " +
		"It exits non-zero when any stream is down.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := config.LogLevelWarn
		if checkVerbose {
			level = cfg.Logging.Level
		}
		logger, err := logging.NewLogger(cfg.Logging.Dir, level)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		deadline := checkDeadline
		if deadline <= 0 {
			deadline = fullRoundDeadline(cfg.Flv.Check, len(cfg.Targets()))
		}
		a := newApp(cfg, logger, deadline, false)
		sum := a.scheduler.RunOnce(cmd.Context())
		if err := a.scheduler.Stop(); err != nil {
			logger.Warn("scheduler_stop", zap.Error(err))
		}

		printSummary(cmd.OutOrStdout(), sum)
		if sum.Unhealthy > 0 {
			return errUnhealthy
		}
		if sum.TimedOut {
			return multierr.Append(errUnhealthy, fmt.Errorf("round did not finish within %s", deadline))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().DurationVar(&checkDeadline, "deadline", 0, "how long to wait for the round (default: long enough for every retry)")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "log at the configured level instead of warn")
}

// fullRoundDeadline is the worst case for a round where every stream uses
// all its attempts: each attempt is bounded by 3 x timeout.
func fullRoundDeadline(c config.CheckConfig, streams int) time.Duration {
	if streams == 0 {
		return c.Timeout()
	}
	waves := (streams + c.Threads - 1) / c.Threads
	perStream := time.Duration(c.Retries)*3*c.Timeout() + time.Duration(c.Retries-1)*c.RetryDelay()
	return time.Duration(waves)*perStream + c.Timeout()
}

func printSummary(w io.Writer, sum scheduler.RoundSummary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, p := range sum.Projects {
		rate := fmt.Sprintf("%.1f%%", p.SuccessRate)
		if p.Unhealthy > 0 {
			rate = red(rate)
		} else {
			rate = green(rate)
		}
		fmt.Fprintf(w, "%s  %d/%d healthy  %s\n", bold(p.Project), p.Healthy, p.Total, rate)
		for _, s := range sum.Streams {
			if s.Project != p.Project {
				continue
			}
			if s.Healthy {
				fmt.Fprintf(w, "  %s %s (%.0fms)\n", green("UP  "), s.Name, s.ResponseTimeMS)
			} else {
				fmt.Fprintf(w, "  %s %s %s\n", red("DOWN"), s.Name, s.URL)
			}
		}
	}
	fmt.Fprintf(w, "\n%d streams, %s, %s in %s\n",
		sum.Total,
		green(fmt.Sprintf("%d healthy", sum.Healthy)),
		red(fmt.Sprintf("%d unhealthy", sum.Unhealthy)),
		sum.Elapsed.Round(time.Millisecond),
	)
}
