// Package gojob wires the reconciliation and webhook pipelines into go-job
// queue primitives. It builds execution messages, bounds nack retries,
// bridges glog loggers into the go-job logging contracts, and surfaces
// worker lifecycle events through the module's logger and metrics.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-paytoken/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDReconcileCycle = "paytoken.reconcile.cycle"
	JobIDWebhookProcess = "paytoken.webhook.process"
)

// NewReconcileCycleMessage builds the execution message for one pending
// authorization sweep. cycleKey deduplicates concurrent triggers of the
// same sweep window.
func NewReconcileCycleMessage(cycleKey string) *job.ExecutionMessage {
	cycleKey = strings.TrimSpace(cycleKey)
	return &job.ExecutionMessage{
		JobID:      JobIDReconcileCycle,
		ScriptPath: JobIDReconcileCycle,
		Parameters: map[string]any{
			"cycle_key": cycleKey,
		},
		IdempotencyKey: cycleKey,
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// NewWebhookProcessMessage builds the execution message that defers webhook
// processing onto the queue. The authorization operation UUID keys the
// message so redelivered webhooks collapse into one execution.
func NewWebhookProcessMessage(webhook core.WebhookPreAuthorization) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDWebhookProcess,
		ScriptPath:     JobIDWebhookProcess,
		Parameters:     webhook.Payload(),
		IdempotencyKey: strings.TrimSpace(webhook.Operations.AuthorizationUUID),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// RetryPolicy defines queue retry bounds to avoid unbounded redelivery loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces the policy's bounds on a nack operation for the given
// attempt number.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// CycleEnqueuer pushes reconcile cycle triggers onto a go-job queue.
type CycleEnqueuer struct {
	enqueuer queue.Enqueuer
}

func NewCycleEnqueuer(enqueuer queue.Enqueuer) *CycleEnqueuer {
	return &CycleEnqueuer{enqueuer: enqueuer}
}

func (e *CycleEnqueuer) EnqueueCycle(ctx context.Context, cycleKey string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(cycleKey) == "" {
		return fmt.Errorf("gojob: cycle key is required")
	}
	return e.enqueuer.Enqueue(ctx, NewReconcileCycleMessage(cycleKey))
}

func (e *CycleEnqueuer) EnqueueWebhook(ctx context.Context, webhook core.WebhookPreAuthorization) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if err := webhook.Validate(); err != nil {
		return err
	}
	return e.enqueuer.Enqueue(ctx, NewWebhookProcessMessage(webhook))
}

// BoundedDelivery wraps a queue delivery so every nack passes through the
// retry policy before reaching the broker.
type BoundedDelivery struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewBoundedDelivery(delivery queue.Delivery, policy RetryPolicy) *BoundedDelivery {
	return &BoundedDelivery{delivery: delivery, policy: policy}
}

func (d *BoundedDelivery) Message() *job.ExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return d.delivery.Message()
}

func (d *BoundedDelivery) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *BoundedDelivery) Nack(ctx context.Context, opts queue.NackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *BoundedDelivery) NackForAttempt(ctx context.Context, opts queue.NackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Nack(ctx, d.policy.Normalize(opts, attempt))
}

// BoundedDequeuer wraps deliveries from the underlying dequeuer with the
// retry policy.
type BoundedDequeuer struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewBoundedDequeuer(dequeuer queue.Dequeuer, policy RetryPolicy) *BoundedDequeuer {
	return &BoundedDequeuer{dequeuer: dequeuer, policy: policy}
}

func (q *BoundedDequeuer) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if q == nil || q.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := q.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewBoundedDelivery(delivery, q.policy), nil
}

// WorkerLogging bundles the resolved glog collaborators with their go-job
// counterparts so queue setup wires both from one call.
type WorkerLogging struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// ResolveWorkerLogging resolves the host's logging collaborators with
// precedence provider > logger > nop, then bridges them into the go-job
// logging contracts. Queue workers end up logging through the same
// provider as the rest of the pipeline.
func ResolveWorkerLogging(name string, provider glog.LoggerProvider, logger glog.Logger) WorkerLogging {
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)
	logging := WorkerLogging{
		Provider: resolvedProvider,
		Logger:   resolvedLogger,
	}
	if resolvedProvider != nil {
		logging.JobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	if resolvedLogger != nil {
		logging.JobLogger = job.GoLogger(resolvedLogger)
	}
	return logging
}

// ObserverHook logs worker lifecycle transitions and records per-job metrics.
type ObserverHook struct {
	logger  core.Logger
	metrics core.MetricsRecorder
}

func NewObserverHook(logger core.Logger, metrics core.MetricsRecorder) *ObserverHook {
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &ObserverHook{logger: logger, metrics: metrics}
}

func (h *ObserverHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observe(ctx, "start", event, "debug", "job started")
}

func (h *ObserverHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observe(ctx, "success", event, "info", "job completed")
}

func (h *ObserverHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observe(ctx, "failure", event, "error", "job failed")
}

func (h *ObserverHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observe(ctx, "retry", event, "warn", "job retry scheduled")
}

func (h *ObserverHook) observe(ctx context.Context, outcome string, event worker.Event, level, message string) {
	jobID := eventJobID(event)
	fields := map[string]any{
		"job_id":  jobID,
		"attempt": event.Attempt,
	}
	if event.Delay > 0 {
		fields["delay"] = event.Delay.String()
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	core.LogWith(ctx, h.logger, level, message, fields)

	tags := map[string]string{"job_id": jobID, "outcome": outcome}
	h.metrics.IncCounter(ctx, "paytoken.job.event", 1, tags)
	if event.Duration > 0 {
		h.metrics.ObserveHistogram(ctx, "paytoken.job.duration_ms", float64(event.Duration.Milliseconds()), tags)
	}
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return message.JobID
}

var (
	_ queue.Delivery = (*BoundedDelivery)(nil)
	_ queue.Dequeuer = (*BoundedDequeuer)(nil)
	_ worker.Hook    = (*ObserverHook)(nil)
)
