package webhooks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-paytoken/core"
	"github.com/goliatone/go-paytoken/integrity"
)

type Processor struct {
	config  core.Config
	store   core.OrderStore
	handler core.EventHandler
	counter core.AuthorizationCounter
	logger  core.Logger
	metrics core.MetricsRecorder
	now     func() time.Time
}

type Option func(*Processor)

func WithLogger(logger core.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(p *Processor) {
		if provider != nil {
			if named := provider.GetLogger("webhooks"); named != nil {
				p.logger = glog.Ensure(named)
			}
		}
	}
}

// WithAuthorizationCounter enables the reuse-limit check. Without a counter
// (or when the counter reports ReuseUnknown) the check is disabled.
func WithAuthorizationCounter(counter core.AuthorizationCounter) Option {
	return func(p *Processor) {
		p.counter = counter
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(p *Processor) {
		p.metrics = recorder
	}
}

func WithNow(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(cfg core.Config, store core.OrderStore, handler core.EventHandler, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, core.NewBadInputError("webhooks: order store is required")
	}
	if handler == nil {
		return nil, core.NewBadInputError("webhooks: event handler is required")
	}
	cfg = cfg.Normalized()
	if strings.TrimSpace(cfg.Secrets.Integrity) == "" {
		return nil, core.NewBadInputError("webhooks: integrity secret is required")
	}

	processor := &Processor{
		config:  cfg,
		store:   store,
		handler: handler,
		logger:  glog.Ensure(nil),
		metrics: core.NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(processor)
	}
	return processor, nil
}

// ParseWebhook decodes a raw request body into the typed payload.
func ParseWebhook(body []byte) (core.WebhookPreAuthorization, error) {
	var webhook core.WebhookPreAuthorization
	if err := json.Unmarshal(body, &webhook); err != nil {
		return core.WebhookPreAuthorization{}, core.NewBadInputError("webhooks: decode payload: " + err.Error())
	}
	return webhook, nil
}

// Process runs one webhook through the validation pipeline. The signature is
// checked before any state is touched; a webhook whose status code is not the
// network's OK sentinel routes to the informational handler with no further
// checks.
func (p *Processor) Process(ctx context.Context, webhook core.WebhookPreAuthorization) error {
	if p == nil || p.store == nil || p.handler == nil {
		return core.NewInternalError("webhooks: processor is not configured")
	}
	startedAt := p.now()

	if err := webhook.Validate(); err != nil {
		return err
	}
	if err := integrity.VerifyOrFail(webhook.Payload(), p.config.Secrets.Integrity); err != nil {
		p.observe(ctx, startedAt, "rejected_signature", webhook, err)
		return err
	}

	order, err := p.store.GetOrder(ctx, webhook.TokenUUID)
	if err != nil {
		p.observe(ctx, startedAt, "order_lookup_failed", webhook, err)
		return err
	}

	if webhook.StatusCode != p.config.StatusCodes.OK {
		if err := p.handler.OnInfo(ctx, webhook); err != nil {
			return core.NewImplementationError(err)
		}
		p.observe(ctx, startedAt, "informational", webhook, nil)
		return nil
	}

	if order.IsRevoked() {
		err := core.NewOrderRevokedError()
		p.observe(ctx, startedAt, "rejected_revoked", webhook, err)
		return err
	}
	if err := p.checkReuseLimit(ctx, order); err != nil {
		p.observe(ctx, startedAt, "rejected_reuse_limit", webhook, err)
		return err
	}

	if err := p.handler.OnPreAuthorize(ctx, webhook, order); err != nil {
		return core.NewImplementationError(err)
	}
	p.observe(ctx, startedAt, "pre_authorized", webhook, nil)
	return nil
}

func (p *Processor) checkReuseLimit(ctx context.Context, order core.Order) error {
	if p.counter == nil {
		return nil
	}
	count, err := p.counter.CountAuthorizations(ctx, order.TokenUUID)
	if err != nil {
		return core.NewImplementationError(err)
	}
	if count.Exceeds(order.Reusability) {
		return core.NewOrderReuseLimitError()
	}
	return nil
}

func (p *Processor) observe(ctx context.Context, startedAt time.Time, outcome string, webhook core.WebhookPreAuthorization, err error) {
	fields := map[string]any{
		"token_uuid":         webhook.TokenUUID,
		"authorization_uuid": webhook.Operations.AuthorizationUUID,
		"status_code":        webhook.StatusCode,
		"outcome":            outcome,
		"duration_ms":        time.Since(startedAt).Milliseconds(),
	}
	tags := map[string]string{"outcome": outcome}
	p.metrics.IncCounter(ctx, "paytoken.webhook.total", 1, tags)
	p.metrics.ObserveHistogram(ctx, "paytoken.webhook.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		fields["error"] = err.Error()
		core.LogWith(ctx, p.logger, "error", "webhook rejected", fields)
		return
	}
	core.LogWith(ctx, p.logger, "info", "webhook processed", fields)
}
