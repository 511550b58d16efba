package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/flvexporter/internal/config"
	"github.com/hamed0406/flvexporter/internal/scheduler"
)

func init() {
	color.NoColor = true
}

func validConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Address: ":8080", APIRatePerMin: 120, APIBurst: 60},
		Logging: config.LoggingConfig{Dir: "logs", Level: config.LogLevelInfo},
		Flv: config.FlvConfig{
			Check: config.CheckConfig{
				TimeoutMS:       1000,
				Threads:         2,
				Retries:         3,
				IntervalMS:      30000,
				RetryDelayMS:    500,
				ShutdownGraceMS: 5000,
			},
			URLs: map[string][]string{
				"P": {"https://cdn.example.com/live/a.flv", "https://cdn.example.com/live/b.flv"},
			},
		},
		File: "config.yaml",
	}
}

func TestFullRoundDeadline(t *testing.T) {
	c := validConfig().Flv.Check

	// 3 streams on 2 workers: two waves of 3 x (3 x 1s) + 2 x 0.5s, plus 1s.
	assert.Equal(t, 2*(9*time.Second+time.Second)+time.Second, fullRoundDeadline(c, 3))
	assert.Equal(t, c.Timeout(), fullRoundDeadline(c, 0))
}

func TestPrintSummary(t *testing.T) {
	sum := scheduler.RoundSummary{
		Total: 2, Healthy: 1, Unhealthy: 1,
		Projects: []scheduler.ProjectSummary{{Project: "P", Total: 2, Healthy: 1, Unhealthy: 1, SuccessRate: 50}},
		Streams: []scheduler.StreamReport{
			{Name: "P_live_a", Project: "P", URL: "https://cdn.example.com/live/a.flv", Healthy: true, ResponseTimeMS: 12},
			{Name: "P_live_b", Project: "P", URL: "https://cdn.example.com/live/b.flv"},
		},
		Elapsed: 1500 * time.Millisecond,
	}
	var buf bytes.Buffer
	printSummary(&buf, sum)

	out := buf.String()
	assert.Contains(t, out, "P  1/2 healthy  50.0%")
	assert.Contains(t, out, "UP   P_live_a (12ms)")
	assert.Contains(t, out, "DOWN P_live_b https://cdn.example.com/live/b.flv")
	assert.Contains(t, out, "2 streams, 1 healthy, 1 unhealthy in 1.5s")
}

func TestPreflight(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, preflight(&buf, validConfig()))
		assert.Contains(t, buf.String(), "✔ 2 streams in 1 projects")
		assert.Contains(t, buf.String(), "⚠ notify.slack_webhook is empty")
	})

	t.Run("invalid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flv.Check.Threads = 0
		cfg.Flv.URLs["P"] = append(cfg.Flv.URLs["P"], "ftp://cdn.example.com/live/c.flv")

		var buf bytes.Buffer
		err := preflight(&buf, cfg)
		require.Error(t, err)
		assert.Contains(t, buf.String(), "✖")
		assert.NotContains(t, buf.String(), "✖ flv.urls")
	})

	t.Run("malformed url only warns", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flv.URLs["P"] = append(cfg.Flv.URLs["P"], "not-a-url")

		var buf bytes.Buffer
		require.NoError(t, preflight(&buf, cfg))
		assert.Contains(t, buf.String(), `⚠ flv.urls.P: "not-a-url" (P_STREAM_177485449)`)
	})
}
