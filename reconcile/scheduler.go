// Package reconcile settles pending authorizations against the payment
// network. A scheduler sweeps the pending set on a fixed interval and a
// resolver validates each record, retrying transient network failures
// before reporting the outcome to the collaborator.
package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-paytoken/core"
)

// Scheduler drives periodic reconciliation cycles. Cycles never overlap:
// a tick that fires while the previous cycle is still running is
// skipped. The scheduler stops itself when a cycle finds nothing
// pending; calling Start again arms a fresh timer.
type Scheduler struct {
	config   core.Config
	store    core.OrderStore
	resolver *Resolver
	interval time.Duration
	logger   core.Logger
	metrics  core.MetricsRecorder
	now      func() time.Time

	inFlight atomic.Bool

	mu       sync.Mutex
	running  bool
	stopOnce *sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SchedulerOption configures optional scheduler collaborators.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger overrides the scheduler logger.
func WithSchedulerLogger(logger core.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSchedulerLoggerProvider resolves the scheduler logger from a
// provider.
func WithSchedulerLoggerProvider(provider core.LoggerProvider) SchedulerOption {
	return func(s *Scheduler) {
		if provider != nil {
			s.logger = glog.Ensure(provider.GetLogger("reconcile"))
		}
	}
}

// WithInterval overrides the sweep interval from the configuration.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithSchedulerMetrics overrides the scheduler metrics recorder.
func WithSchedulerMetrics(metrics core.MetricsRecorder) SchedulerOption {
	return func(s *Scheduler) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithSchedulerNow overrides the clock used for cycle timing.
func WithSchedulerNow(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler builds a scheduler that sweeps the store's pending set
// and settles each record through the resolver.
func NewScheduler(cfg core.Config, store core.OrderStore, resolver *Resolver, options ...SchedulerOption) (*Scheduler, error) {
	if store == nil {
		return nil, core.NewBadInputError("reconcile: order store is required")
	}
	if resolver == nil {
		return nil, core.NewBadInputError("reconcile: resolver is required")
	}

	cfg = cfg.Normalized()
	scheduler := &Scheduler{
		config:   cfg,
		store:    store,
		resolver: resolver,
		interval: cfg.Reconcile.Interval,
		logger:   glog.Ensure(nil),
		metrics:  core.NopMetricsRecorder{},
		now:      time.Now,
	}

	for _, option := range options {
		option(scheduler)
	}

	return scheduler, nil
}

// Start arms the sweep timer. Calling Start on a running scheduler is a
// no-op. The context bounds the background loop: cancelling it stops
// the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.running = true
	s.stopOnce = &sync.Once{}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.stopOnce, s.stopCh, s.doneCh)

	core.LogWith(ctx, s.logger, "info", "reconciliation scheduler started", map[string]any{
		"interval": s.interval.String(),
	})
	return nil
}

// Stop disarms the timer and waits for any in-flight cycle to finish.
// Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopOnce, stopCh, doneCh := s.stopOnce, s.stopCh, s.doneCh
	s.mu.Unlock()

	stopOnce.Do(func() { close(stopCh) })
	<-doneCh
}

// Running reports whether the sweep timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stopOnce *sync.Once, stopCh, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining, err := s.sweep(ctx)
			if err != nil {
				core.LogWith(ctx, s.logger, "error", "reconciliation cycle failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if remaining == 0 {
				core.LogWith(ctx, s.logger, "info", "pending set drained, scheduler stopping", nil)
				stopOnce.Do(func() { close(stopCh) })
				return
			}
		}
	}
}

// RunCycle performs a single sweep outside the timer, for job-driven
// deployments that schedule cycles externally. It shares the
// single-flight guard with the timer loop: a cycle already in progress
// makes RunCycle return immediately.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	_, err := s.sweep(ctx)
	return err
}

func (s *Scheduler) sweep(ctx context.Context) (int, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return -1, nil
	}
	defer s.inFlight.Store(false)

	started := s.now()
	pending, err := s.store.PendingAuthorizations(ctx)
	if err != nil {
		return 0, core.NewProcessAuthorizeError(err, "", "")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	for _, record := range pending {
		if ctx.Err() != nil {
			return len(pending), ctx.Err()
		}
		if err := s.resolver.Resolve(ctx, record); err != nil {
			core.LogWith(ctx, s.logger, "warn", "pending authorization not settled", map[string]any{
				"authorization_uuid": record.AuthorizationUUID,
				"error":              err.Error(),
			})
		}
	}

	s.metrics.IncCounter(ctx, "paytoken.reconcile.cycle", 1, nil)
	s.metrics.ObserveHistogram(ctx, "paytoken.reconcile.cycle_duration_ms", float64(s.now().Sub(started).Milliseconds()), nil)
	return len(pending), nil
}
