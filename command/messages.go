// Package command exposes the webhook and reconciliation operations as
// go-command messages so hosts can dispatch them through a command bus.
package command

import (
	"strings"

	"github.com/goliatone/go-paytoken/core"
)

const (
	TypeProcessWebhook        = "paytoken.command.webhook.process"
	TypeResolveAuthorization  = "paytoken.command.authorization.resolve"
	TypeRunReconcileCycle     = "paytoken.command.reconcile.run_cycle"
	TypeValidateAuthorization = "paytoken.command.authorization.validate"
)

type ProcessWebhookMessage struct {
	Webhook core.WebhookPreAuthorization
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	return m.Webhook.Validate()
}

type ResolveAuthorizationMessage struct {
	Record core.AuthorizeOrder
}

func (ResolveAuthorizationMessage) Type() string { return TypeResolveAuthorization }

func (m ResolveAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.Record.AuthorizationUUID) == "" {
		return commandInvalidInputError("command: authorization uuid is required")
	}
	return nil
}

type RunReconcileCycleMessage struct{}

func (RunReconcileCycleMessage) Type() string { return TypeRunReconcileCycle }

func (RunReconcileCycleMessage) Validate() error { return nil }

type ValidateAuthorizationMessage struct {
	Request core.ValidateAuthorizationRequest
}

func (ValidateAuthorizationMessage) Type() string { return TypeValidateAuthorization }

func (m ValidateAuthorizationMessage) Validate() error {
	if strings.TrimSpace(m.Request.AuthorizationUUID) == "" {
		return commandInvalidInputError("command: authorization uuid is required")
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandInvalidInputError("command: user id is required")
	}
	return nil
}
