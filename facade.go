// Package paytoken assembles the authorization integrity pipeline: the
// webhook processor, the reconciliation scheduler, and the signing HTTP
// client, behind one Manager the host constructs with its own collaborators.
package paytoken

import (
	"context"
	"net/http"

	"github.com/goliatone/go-paytoken/client"
	paytokencommand "github.com/goliatone/go-paytoken/command"
	"github.com/goliatone/go-paytoken/core"
	"github.com/goliatone/go-paytoken/reconcile"
	"github.com/goliatone/go-paytoken/webhooks"
)

// Commands exposes the go-command handlers bound to this manager.
type Commands struct {
	ProcessWebhook        *paytokencommand.ProcessWebhookCommand
	ResolveAuthorization  *paytokencommand.ResolveAuthorizationCommand
	RunReconcileCycle     *paytokencommand.RunReconcileCycleCommand
	ValidateAuthorization *paytokencommand.ValidateAuthorizationCommand
}

// Manager ties the webhook pipeline and the reconciliation loop to one
// order store and event handler pair.
type Manager struct {
	config    core.Config
	processor *webhooks.Processor
	resolver  *reconcile.Resolver
	scheduler *reconcile.Scheduler
	validator core.AuthorizationValidator
	client    *client.Client
	commands  Commands
}

type ManagerOption func(*managerOptions)

type managerOptions struct {
	logger     core.Logger
	provider   core.LoggerProvider
	metrics    core.MetricsRecorder
	counter    core.AuthorizationCounter
	validator  core.AuthorizationValidator
	httpClient *http.Client
}

func WithManagerLogger(logger core.Logger) ManagerOption {
	return func(options *managerOptions) {
		options.logger = logger
	}
}

func WithManagerLoggerProvider(provider core.LoggerProvider) ManagerOption {
	return func(options *managerOptions) {
		options.provider = provider
	}
}

func WithManagerMetrics(metrics core.MetricsRecorder) ManagerOption {
	return func(options *managerOptions) {
		options.metrics = metrics
	}
}

// WithManagerAuthorizationCounter enables the reuse-limit check on inbound
// webhooks.
func WithManagerAuthorizationCounter(counter core.AuthorizationCounter) ManagerOption {
	return func(options *managerOptions) {
		options.counter = counter
	}
}

// WithManagerValidator replaces the network-backed authorization validator.
// When set, the manager does not construct an HTTP client and the API
// base URL may stay empty.
func WithManagerValidator(validator core.AuthorizationValidator) ManagerOption {
	return func(options *managerOptions) {
		options.validator = validator
	}
}

// WithManagerHTTPClient passes a pre-configured transport (mTLS stays
// host-owned) to the network client.
func WithManagerHTTPClient(httpClient *http.Client) ManagerOption {
	return func(options *managerOptions) {
		options.httpClient = httpClient
	}
}

// NewManager validates the config and wires the processor, resolver, and
// scheduler around the given store and event handler.
func NewManager(cfg core.Config, store core.OrderStore, handler core.EventHandler, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, core.NewBadInputError("paytoken: order store is required")
	}
	if handler == nil {
		return nil, core.NewBadInputError("paytoken: event handler is required")
	}
	options := managerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	manager := &Manager{config: cfg, validator: options.validator}

	if manager.validator == nil {
		clientOpts := []client.Option{
			client.WithClientLogger(options.logger),
			client.WithClientLoggerProvider(options.provider),
			client.WithClientMetrics(options.metrics),
			client.WithHTTPClient(options.httpClient),
		}
		networkClient, err := client.New(cfg, clientOpts...)
		if err != nil {
			return nil, err
		}
		manager.client = networkClient
		manager.validator = networkClient
	}

	processorOpts := []webhooks.Option{}
	if options.logger != nil {
		processorOpts = append(processorOpts, webhooks.WithLogger(options.logger))
	}
	if options.provider != nil {
		processorOpts = append(processorOpts, webhooks.WithLoggerProvider(options.provider))
	}
	if options.metrics != nil {
		processorOpts = append(processorOpts, webhooks.WithMetricsRecorder(options.metrics))
	}
	if options.counter != nil {
		processorOpts = append(processorOpts, webhooks.WithAuthorizationCounter(options.counter))
	}
	processor, err := webhooks.NewProcessor(cfg, store, handler, processorOpts...)
	if err != nil {
		return nil, err
	}
	manager.processor = processor

	resolver, err := reconcile.NewResolver(cfg, manager.validator, handler,
		reconcile.WithResolverLogger(options.logger),
		reconcile.WithResolverMetrics(options.metrics),
	)
	if err != nil {
		return nil, err
	}
	manager.resolver = resolver

	schedulerOpts := []reconcile.SchedulerOption{
		reconcile.WithSchedulerLogger(options.logger),
		reconcile.WithSchedulerMetrics(options.metrics),
	}
	if options.provider != nil {
		schedulerOpts = append(schedulerOpts, reconcile.WithSchedulerLoggerProvider(options.provider))
	}
	scheduler, err := reconcile.NewScheduler(cfg, store, resolver, schedulerOpts...)
	if err != nil {
		return nil, err
	}
	manager.scheduler = scheduler

	manager.commands = Commands{
		ProcessWebhook:        paytokencommand.NewProcessWebhookCommand(manager),
		ResolveAuthorization:  paytokencommand.NewResolveAuthorizationCommand(resolver),
		RunReconcileCycle:     paytokencommand.NewRunReconcileCycleCommand(manager),
		ValidateAuthorization: paytokencommand.NewValidateAuthorizationCommand(manager.validator),
	}

	return manager, nil
}

// Process verifies and dispatches one inbound pre-authorization webhook.
func (m *Manager) Process(ctx context.Context, webhook core.WebhookPreAuthorization) error {
	if m == nil || m.processor == nil {
		return core.NewInternalError("paytoken: manager is not initialized")
	}
	return m.processor.Process(ctx, webhook)
}

// ProcessWebhook parses a raw webhook body and runs it through Process.
func (m *Manager) ProcessWebhook(ctx context.Context, body []byte) error {
	webhook, err := webhooks.ParseWebhook(body)
	if err != nil {
		return err
	}
	return m.Process(ctx, webhook)
}

// Start launches the reconciliation scheduler.
func (m *Manager) Start(ctx context.Context) error {
	if m == nil || m.scheduler == nil {
		return core.NewInternalError("paytoken: manager is not initialized")
	}
	return m.scheduler.Start(ctx)
}

// Stop halts the reconciliation scheduler and waits for the loop to drain.
func (m *Manager) Stop() {
	if m == nil || m.scheduler == nil {
		return
	}
	m.scheduler.Stop()
}

// RunCycle executes one reconciliation sweep without the timer.
func (m *Manager) RunCycle(ctx context.Context) error {
	if m == nil || m.scheduler == nil {
		return core.NewInternalError("paytoken: manager is not initialized")
	}
	return m.scheduler.RunCycle(ctx)
}

// Running reports whether the scheduler loop is active.
func (m *Manager) Running() bool {
	if m == nil || m.scheduler == nil {
		return false
	}
	return m.scheduler.Running()
}

// Client returns the network client, or nil when a custom validator was
// injected.
func (m *Manager) Client() *client.Client {
	if m == nil {
		return nil
	}
	return m.client
}

func (m *Manager) Commands() Commands {
	if m == nil {
		return Commands{}
	}
	return m.commands
}

func (m *Manager) Config() core.Config {
	if m == nil {
		return core.Config{}
	}
	return m.config
}

var (
	_ paytokencommand.WebhookService   = (*Manager)(nil)
	_ paytokencommand.ReconcileService = (*Manager)(nil)
)
