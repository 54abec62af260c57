package reconcile

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-paytoken/core"
)

// Resolver settles a single pending authorization: it asks the network
// whether the authorization went through and routes the outcome to the
// collaborator's success or failure handler. Transient network failures
// that report the retryable status code are re-attempted in place, with
// a delay between attempts, before the record is surfaced as failed.
type Resolver struct {
	config    core.Config
	validator core.AuthorizationValidator
	handler   core.EventHandler
	policy    RetryPolicy
	logger    core.Logger
	metrics   core.MetricsRecorder
	sleep     func(ctx context.Context, d time.Duration) error
}

// ResolverOption configures optional resolver collaborators.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the resolver logger.
func WithResolverLogger(logger core.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetryPolicy replaces the fixed-delay policy derived from the
// configuration.
func WithRetryPolicy(policy RetryPolicy) ResolverOption {
	return func(r *Resolver) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// WithResolverMetrics overrides the resolver metrics recorder.
func WithResolverMetrics(metrics core.MetricsRecorder) ResolverOption {
	return func(r *Resolver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// WithSleep replaces the delay between retry attempts. Tests inject a
// recording sleep so retry timing can be asserted without waiting.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ResolverOption {
	return func(r *Resolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewResolver builds a resolver for the given validator and event
// handler. The retry budget defaults to the reconcile section of the
// configuration.
func NewResolver(cfg core.Config, validator core.AuthorizationValidator, handler core.EventHandler, options ...ResolverOption) (*Resolver, error) {
	if validator == nil {
		return nil, core.NewBadInputError("reconcile: authorization validator is required")
	}
	if handler == nil {
		return nil, core.NewBadInputError("reconcile: event handler is required")
	}

	cfg = cfg.Normalized()
	resolver := &Resolver{
		config:    cfg,
		validator: validator,
		handler:   handler,
		policy: FixedDelayRetryPolicy{
			Delay:    cfg.Reconcile.RetryDelay,
			Attempts: cfg.Reconcile.RetryLimit,
		},
		logger:  glog.Ensure(nil),
		metrics: core.NopMetricsRecorder{},
		sleep:   sleepContext,
	}

	for _, option := range options {
		option(resolver)
	}

	return resolver, nil
}

// Resolve validates one pending authorization and dispatches the
// outcome. Retryable network failures are re-attempted up to the policy
// limit before the failure handler runs. The returned error is nil when
// either handler settled the record; a non-nil error means the record is
// still pending, such as when a handler itself failed.
func (r *Resolver) Resolve(ctx context.Context, record core.AuthorizeOrder) error {
	request := core.ValidateAuthorizationRequest{
		AuthorizationUUID: record.AuthorizationUUID,
		UserID:            record.UserID,
	}

	attempt := 0
	for {
		response, err := r.validator.ValidateAuthorization(ctx, request)
		if err == nil {
			return r.dispatchSuccess(ctx, record, response)
		}

		statusCode := core.ErrorStatusCode(err)
		if !r.retryable(err, statusCode) {
			if statusCode == "" {
				statusCode = r.config.StatusCodes.Unknown
			}
			return r.dispatchFailure(ctx, record, statusCode, err)
		}

		if attempt >= r.policy.Limit() {
			core.LogWith(ctx, r.logger, "warn", "authorization retry budget exhausted", map[string]any{
				"authorization_uuid": record.AuthorizationUUID,
				"attempts":           attempt,
			})
			return r.dispatchFailure(ctx, record, r.config.StatusCodes.Retry, err)
		}

		delay := r.policy.NextDelay(attempt)
		core.LogWith(ctx, r.logger, "debug", "retrying authorization validation", map[string]any{
			"authorization_uuid": record.AuthorizationUUID,
			"attempt":            attempt + 1,
			"delay":              delay.String(),
		})
		r.metrics.IncCounter(ctx, "paytoken.reconcile.retry", 1, map[string]string{
			"status_code": statusCode,
		})
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return r.dispatchFailure(ctx, record, r.config.StatusCodes.Retry, sleepErr)
		}
		attempt++
	}
}

func (r *Resolver) retryable(err error, statusCode string) bool {
	return core.IsNetwork(err) && statusCode == r.config.StatusCodes.Retry
}

func (r *Resolver) dispatchSuccess(ctx context.Context, record core.AuthorizeOrder, response core.ValidateAuthorizationResponse) error {
	if err := r.handler.OnAuthorizeSuccess(ctx, record, response.StatusCode); err != nil {
		return core.NewImplementationError(err)
	}
	r.metrics.IncCounter(ctx, "paytoken.reconcile.resolved", 1, map[string]string{"outcome": "success"})
	return nil
}

func (r *Resolver) dispatchFailure(ctx context.Context, record core.AuthorizeOrder, statusCode string, cause error) error {
	core.LogWith(ctx, r.logger, "warn", "authorization validation failed", map[string]any{
		"authorization_uuid": record.AuthorizationUUID,
		"status_code":        statusCode,
		"error":              cause.Error(),
	})
	if err := r.handler.OnAuthorizeFailure(ctx, record, statusCode); err != nil {
		return core.NewImplementationError(err)
	}
	r.metrics.IncCounter(ctx, "paytoken.reconcile.resolved", 1, map[string]string{"outcome": "failure"})
	// The record reached a terminal failed state, so the cycle has
	// nothing left to do with it.
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
