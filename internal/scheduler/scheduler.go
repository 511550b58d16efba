package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/flvexporter/internal/domain"
	"github.com/hamed0406/flvexporter/internal/metrics"
	"github.com/hamed0406/flvexporter/internal/probe"
	"github.com/hamed0406/flvexporter/internal/repo"
)

// Checker runs a full (retried) check against one URL.
type Checker interface {
	Do(ctx context.Context, url string) probe.Verdict
}

// Observer is notified after every round summary.
type Observer interface {
	RoundCompleted(ctx context.Context, sum RoundSummary)
}

// Registrar is the metrics side of a target registration.
type Registrar interface {
	metrics.Recorder
	Register(t domain.StreamTarget) bool
}

type Options struct {
	Workers       int           // pool size
	Interval      time.Duration // delay between the end of a round and the next start
	RoundDeadline time.Duration // how long a round waits for its checks
	ShutdownGrace time.Duration // how long Stop waits for in-flight checks
}

func (o *Options) setDefaults() {
	if o.Workers < 1 {
		o.Workers = 10
	}
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.RoundDeadline <= 0 {
		o.RoundDeadline = 20 * time.Second
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = 5 * time.Second
	}
}

type job struct {
	target domain.StreamTarget
	log    *zap.Logger
	done   func()
}

// Scheduler runs rounds of checks over a fixed target set on a long-lived
// worker pool. Rounds never overlap.
type Scheduler struct {
	logger    *zap.Logger
	targets   []domain.StreamTarget
	checker   Checker
	store     repo.StatusStore
	metrics   Registrar
	observers []Observer
	opts      Options

	jobs     chan job
	inflight sync.Map // stream name -> struct{}
	mu       sync.Mutex
	closed   bool

	workers     sync.WaitGroup
	workersOnce sync.Once
	startOnce   sync.Once
	stopOnce    sync.Once
	stopLoop    context.CancelFunc
	loopDone    chan struct{}

	taskCtx     context.Context
	cancelTasks context.CancelFunc
}

// New registers every target in the store and with the metrics registrar.
// reg may be nil.
func New(
	logger *zap.Logger,
	targets []domain.StreamTarget,
	checker Checker,
	store repo.StatusStore,
	reg Registrar,
	opts Options,
	observers ...Observer,
) *Scheduler {
	opts.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = nopRegistrar{}
	}
	for _, t := range targets {
		store.Register(t.Name)
		reg.Register(t)
	}
	taskCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:      logger,
		targets:     targets,
		checker:     checker,
		store:       store,
		metrics:     reg,
		observers:   observers,
		opts:        opts,
		jobs:        make(chan job, len(targets)+1),
		loopDone:    make(chan struct{}),
		taskCtx:     taskCtx,
		cancelTasks: cancel,
	}
}

// Start launches the worker pool and the round loop. The first round runs
// immediately. The loop ends when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.startWorkers()
		loopCtx, stop := context.WithCancel(ctx)
		s.mu.Lock()
		s.stopLoop = stop
		s.mu.Unlock()
		s.logger.Info("scheduler_started",
			zap.Int("streams", len(s.targets)),
			zap.Int("workers", s.opts.Workers),
			zap.Duration("interval", s.opts.Interval),
			zap.Duration("round_deadline", s.opts.RoundDeadline),
		)
		go s.loop(loopCtx)
	})
}

// RunOnce runs a single round on the pool and returns its summary. It must
// not be called concurrently with Stop.
func (s *Scheduler) RunOnce(ctx context.Context) RoundSummary {
	s.startWorkers()
	return s.runRound(ctx)
}

// Stop ends the round loop, stops accepting work and waits up to
// ShutdownGrace for in-flight checks. Checks still running after that are
// cancelled and an error is returned.
func (s *Scheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		stop := s.stopLoop
		s.mu.Unlock()
		if stop != nil {
			stop()
			<-s.loopDone
		}

		s.mu.Lock()
		s.closed = true
		close(s.jobs)
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.workers.Wait()
			close(done)
		}()

		t := time.NewTimer(s.opts.ShutdownGrace)
		defer t.Stop()
		select {
		case <-done:
			s.logger.Info("worker_pool_stopped")
		case <-t.C:
			s.logger.Warn("worker_pool_forced_stop", zap.Duration("grace", s.opts.ShutdownGrace))
			s.cancelTasks()
			<-done
			err = fmt.Errorf("scheduler: checks still running after %s were cancelled", s.opts.ShutdownGrace)
		}
		s.cancelTasks()
	})
	return err
}

func (s *Scheduler) startWorkers() {
	s.workersOnce.Do(func() {
		for i := 0; i < s.opts.Workers; i++ {
			s.workers.Add(1)
			go s.worker()
		}
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)
	for {
		s.runRound(ctx)

		t := time.NewTimer(s.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			s.logger.Info("scheduler_stopped")
			return
		case <-t.C:
		}
	}
}

func (s *Scheduler) runRound(ctx context.Context) (sum RoundSummary) {
	id := uuid.NewString()
	log := s.logger.With(zap.String("round_id", id))
	if len(s.targets) == 0 {
		log.Warn("round_skipped_no_targets")
		return RoundSummary{ID: id}
	}

	start := time.Now()
	log.Info("round_started", zap.Int("streams", len(s.targets)))

	var wg sync.WaitGroup
	dispatched := 0
	for _, t := range s.targets {
		if s.dispatch(t, &wg, log) {
			dispatched++
		}
	}
	timedOut := s.wait(ctx, &wg, log)

	defer func() {
		if p := recover(); p != nil {
			log.Error("round_panic", zap.Any("panic", p))
		}
	}()
	sum = Summarize(s.targets, s.store)
	sum.ID = id
	sum.Dispatched = dispatched
	sum.Elapsed = time.Since(start)
	sum.TimedOut = timedOut
	Report(log, sum)

	for _, o := range s.observers {
		s.notify(ctx, log, o, sum)
	}
	return sum
}

func (s *Scheduler) notify(ctx context.Context, log *zap.Logger, o Observer, sum RoundSummary) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("observer_panic", zap.Any("panic", p))
		}
	}()
	o.RoundCompleted(ctx, sum)
}

// dispatch queues one check for t unless the previous one is still queued
// or running.
func (s *Scheduler) dispatch(t domain.StreamTarget, wg *sync.WaitGroup, log *zap.Logger) bool {
	if _, busy := s.inflight.LoadOrStore(t.Name, struct{}{}); busy {
		log.Debug("check_still_running", zap.String("stream", t.Name))
		return false
	}
	wg.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.inflight.Delete(t.Name)
		wg.Done()
		return false
	}
	select {
	case s.jobs <- job{target: t, log: log, done: wg.Done}:
		return true
	default:
		s.inflight.Delete(t.Name)
		wg.Done()
		log.Warn("job_queue_full", zap.String("stream", t.Name))
		return false
	}
}

// wait reports whether the round deadline elapsed before all checks ended.
// Checks still running keep going and write their results later.
func (s *Scheduler) wait(ctx context.Context, wg *sync.WaitGroup, log *zap.Logger) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	t := time.NewTimer(s.opts.RoundDeadline)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		log.Warn("round_timeout", zap.Duration("deadline", s.opts.RoundDeadline))
		return true
	case <-ctx.Done():
		log.Warn("round_interrupted", zap.Error(ctx.Err()))
		return true
	}
}

func (s *Scheduler) worker() {
	defer s.workers.Done()
	for j := range s.jobs {
		s.runJob(j)
	}
}

func (s *Scheduler) runJob(j job) {
	t := j.target
	defer j.done()
	defer s.inflight.Delete(t.Name)

	// forced shutdown: drop queued checks
	if s.taskCtx.Err() != nil {
		return
	}

	s.metrics.CheckStarted(t.Project)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			j.log.Error("job_panic", zap.String("stream", t.Name), zap.Any("panic", p))
			s.store.Write(t.Name, false, 0)
			s.metrics.CheckFinished(t, false, time.Since(start))
		}
	}()

	v := s.checker.Do(s.taskCtx, t.URL)
	took := time.Since(start)

	if s.taskCtx.Err() != nil {
		j.log.Debug("check_cancelled", zap.String("stream", t.Name))
		s.metrics.CheckFinished(t, false, took)
		return
	}

	s.store.Write(t.Name, v.Healthy, v.LatencyMS)
	s.metrics.CheckFinished(t, v.Healthy, took)

	if v.Healthy {
		j.log.Debug("check_succeeded",
			zap.String("stream", t.Name),
			zap.String("project", t.Project),
			zap.Float64("latency_ms", v.LatencyMS),
			zap.Int("attempts", v.Attempts),
		)
		return
	}
	j.log.Warn("check_failed",
		zap.String("stream", t.Name),
		zap.String("project", t.Project),
		zap.String("url", t.URL),
		zap.Int("attempts", v.Attempts),
		zap.Int("status", v.Last.StatusCode),
		zap.String("reason", v.Last.Reason),
		zap.Error(v.Last.Err),
	)
}

type nopRegistrar struct{}

func (nopRegistrar) Register(domain.StreamTarget) bool { return true }

func (nopRegistrar) CheckStarted(string) {}

func (nopRegistrar) CheckFinished(domain.StreamTarget, bool, time.Duration) {}
