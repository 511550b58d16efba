package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Verdict is the result of a full retry sequence.
type Verdict struct {
	Healthy   bool
	Attempts  int
	LatencyMS float64 // wall time of the sequence; 0 unless Healthy
	Last      Outcome
}

// Retrier runs a Prober up to MaxAttempts times, sequentially, sleeping
// Delay between a failed attempt and the next one.
type Retrier struct {
	Inner       Prober
	MaxAttempts int
	Delay       time.Duration
	Logger      *zap.Logger

	// wait blocks for d or until ctx is done; tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

func NewRetrier(inner Prober, maxAttempts int, delay time.Duration, logger *zap.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		Inner:       inner,
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Logger:      logger,
		wait:        sleepCtx,
	}
}

// Do returns a healthy verdict on the first successful attempt. Cancellation
// of ctx during the inter-attempt wait ends the sequence immediately with an
// unhealthy verdict.
func (r *Retrier) Do(ctx context.Context, url string) Verdict {
	start := time.Now()
	var v Verdict
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		v.Attempts = attempt
		v.Last = r.attempt(ctx, url)
		if v.Last.Success {
			if attempt > 1 {
				r.Logger.Info("probe_recovered_after_retry",
					zap.String("url", url),
					zap.Int("attempt", attempt),
				)
			}
			v.Healthy = true
			v.LatencyMS = float64(time.Since(start).Nanoseconds()) / 1e6
			return v
		}
		if attempt == r.MaxAttempts {
			break
		}
		r.Logger.Warn("probe_attempt_failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("status", v.Last.StatusCode),
			zap.String("reason", v.Last.Reason),
			zap.Error(v.Last.Err),
		)
		if err := r.wait(ctx, r.Delay); err != nil {
			v.Last = Outcome{Reason: ReasonCanceled, Err: err}
			return v
		}
	}
	return v
}

// attempt shields the loop from a panicking prober.
func (r *Retrier) attempt(ctx context.Context, url string) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Reason: ReasonPanic, Err: fmt.Errorf("probe panic: %v", p)}
		}
	}()
	return r.Inner.Probe(ctx, url)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
