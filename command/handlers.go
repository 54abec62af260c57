package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-paytoken/core"
)

// WebhookService is the webhook pipeline surface commands delegate to.
type WebhookService interface {
	Process(ctx context.Context, webhook core.WebhookPreAuthorization) error
}

// ReconcileService runs settlement cycles on demand.
type ReconcileService interface {
	RunCycle(ctx context.Context) error
}

// AuthorizationResolver settles a single pending authorization.
type AuthorizationResolver interface {
	Resolve(ctx context.Context, record core.AuthorizeOrder) error
}

type ProcessWebhookCommand struct {
	service WebhookService
}

func NewProcessWebhookCommand(service WebhookService) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{service: service}
}

func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: webhook service is required")
	}
	return c.service.Process(ctx, msg.Webhook)
}

type ResolveAuthorizationCommand struct {
	resolver AuthorizationResolver
}

func NewResolveAuthorizationCommand(resolver AuthorizationResolver) *ResolveAuthorizationCommand {
	return &ResolveAuthorizationCommand{resolver: resolver}
}

func (c *ResolveAuthorizationCommand) Execute(ctx context.Context, msg ResolveAuthorizationMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: authorization resolver is required")
	}
	return c.resolver.Resolve(ctx, msg.Record)
}

type RunReconcileCycleCommand struct {
	service ReconcileService
}

func NewRunReconcileCycleCommand(service ReconcileService) *RunReconcileCycleCommand {
	return &RunReconcileCycleCommand{service: service}
}

func (c *RunReconcileCycleCommand) Execute(ctx context.Context, _ RunReconcileCycleMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	return c.service.RunCycle(ctx)
}

type ValidateAuthorizationCommand struct {
	validator core.AuthorizationValidator
}

func NewValidateAuthorizationCommand(validator core.AuthorizationValidator) *ValidateAuthorizationCommand {
	return &ValidateAuthorizationCommand{validator: validator}
}

func (c *ValidateAuthorizationCommand) Execute(ctx context.Context, msg ValidateAuthorizationMessage) error {
	if c == nil || c.validator == nil {
		return commandDependencyError("command: authorization validator is required")
	}
	out, err := c.validator.ValidateAuthorization(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
