package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/notify"
	"github.com/hamed0406/flvexporter/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	// Cooldown suppresses a DOWN alert sent within this long of the previous
	// alert for the same stream. Recoveries are never suppressed.
	Cooldown    time.Duration
	SendTimeout time.Duration
}

// Alerter is a round Observer that notifies when a stream goes down or
// recovers between two summaries.
type Alerter struct {
	logger   *zap.Logger
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	now      func() time.Time
}

func NewAlerter(logger *zap.Logger, alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		logger:   logger,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

type alertAction int

const (
	alertNone   alertAction = iota
	alertRecord             // remember the new state, send nothing
	alertSend
)

// decide compares a stream's current health with the last recorded one.
func (a *Alerter) decide(rec *repo.AlertRecord, healthy bool, now time.Time) alertAction {
	if rec == nil {
		// a stream seen healthy first has nothing to recover from
		if healthy {
			return alertRecord
		}
		return alertSend
	}
	if rec.LastHealthy == healthy {
		return alertNone
	}
	if healthy {
		if a.cfg.AlertOnRecovery {
			return alertSend
		}
		return alertRecord
	}
	if rec.LastAlertAt != nil && now.Sub(*rec.LastAlertAt) < a.cfg.Cooldown {
		return alertRecord
	}
	return alertSend
}

func (a *Alerter) RoundCompleted(ctx context.Context, sum RoundSummary) {
	now := a.now()
	for _, s := range sum.Streams {
		// still at the registered default: its first check has not landed
		if s.CheckedAt.IsZero() {
			continue
		}
		rec, err := a.alertDB.Get(ctx, s.Name)
		if err != nil {
			a.logger.Warn("alert_state_error", zap.String("stream", s.Name), zap.Error(err))
			continue
		}

		var sentAt time.Time
		switch a.decide(rec, s.Healthy, now) {
		case alertNone:
			continue
		case alertSend:
			a.send(ctx, transitionMessage(s, sum.ID, now))
			sentAt = now
		}
		if err := a.alertDB.Set(ctx, s.Name, s.Healthy, sentAt); err != nil {
			a.logger.Warn("alert_state_error", zap.String("stream", s.Name), zap.Error(err))
		}
	}
}

func (a *Alerter) send(ctx context.Context, msg notify.Message) {
	sctx, cancel := context.WithTimeout(ctx, a.cfg.SendTimeout)
	defer cancel()
	if err := a.notifier.Send(sctx, msg); err != nil {
		a.logger.Warn("alert_send_failed", zap.String("title", msg.Title), zap.Error(err))
		return
	}
	a.logger.Info("alert_sent", zap.String("title", msg.Title), zap.Bool("healthy", msg.Healthy))
}

func transitionMessage(s StreamReport, roundID string, now time.Time) notify.Message {
	title := "Stream DOWN: " + s.Name
	latency := "n/a"
	if s.Healthy {
		title = "Stream RECOVERED: " + s.Name
		latency = fmt.Sprintf("%.0f ms", s.ResponseTimeMS)
	}
	return notify.Message{
		Title:   title,
		Healthy: s.Healthy,
		Fields: []notify.Field{
			{Name: "stream", Value: s.Name},
			{Name: "project", Value: s.Project},
			{Name: "url", Value: s.URL},
			{Name: "latency", Value: latency},
			{Name: "round_id", Value: roundID},
			{Name: "checked_at", Value: now.UTC().Format(time.RFC3339)},
		},
	}
}
