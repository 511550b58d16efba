package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/config"
	"github.com/hamed0406/flvexporter/internal/domain"
	"github.com/hamed0406/flvexporter/internal/metrics"
	"github.com/hamed0406/flvexporter/internal/notify"
	"github.com/hamed0406/flvexporter/internal/probe"
	"github.com/hamed0406/flvexporter/internal/repo/memory"
	"github.com/hamed0406/flvexporter/internal/scheduler"
)

// app is the wired set of components shared by serve and check.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	targets   []domain.StreamTarget
	store     *memory.StatusStore
	exporter  *metrics.Exporter
	scheduler *scheduler.Scheduler
}

// newApp builds the store, metrics, prober and scheduler. A round deadline
// of zero keeps the configured one. Transition alerts are only wired when
// withAlerts is set.
func newApp(cfg *config.Config, logger *zap.Logger, roundDeadline time.Duration, withAlerts bool) *app {
	chk := cfg.Flv.Check
	if chk.InsecureSkipVerify {
		logger.Warn("tls_verification_disabled")
	}

	targets := cfg.Targets()
	store := memory.NewStatusStore()
	exporter := metrics.NewExporter(store)

	prober := probe.NewHTTPProber(chk.Timeout(), chk.InsecureSkipVerify)
	retrier := probe.NewRetrier(prober, chk.Retries, chk.RetryDelay(), logger)

	if roundDeadline <= 0 {
		roundDeadline = chk.RoundDeadline()
	}
	var observers []scheduler.Observer
	if withAlerts {
		notifiers := notify.Multi{notify.Log{Logger: logger}}
		if slack := notify.NewSlack(cfg.Notify.SlackWebhook); slack != nil {
			notifiers = append(notifiers, slack)
			logger.Info("slack_alerts_enabled")
		}
		observers = append(observers, scheduler.NewAlerter(logger, memory.NewAlertStore(), notifiers, scheduler.AlerterConfig{
			AlertOnRecovery: cfg.Notify.AlertOnRecovery,
			Cooldown:        cfg.Notify.Cooldown(),
		}))
	}

	sched := scheduler.New(logger, targets, retrier, store, exporter, scheduler.Options{
		Workers:       chk.Threads,
		Interval:      chk.Interval(),
		RoundDeadline: roundDeadline,
		ShutdownGrace: chk.ShutdownGrace(),
	}, observers...)

	return &app{
		cfg:       cfg,
		logger:    logger,
		targets:   targets,
		store:     store,
		exporter:  exporter,
		scheduler: sched,
	}
}
