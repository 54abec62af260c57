package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessWebhookMessage]        = (*ProcessWebhookCommand)(nil)
	_ gocmd.Commander[ResolveAuthorizationMessage]  = (*ResolveAuthorizationCommand)(nil)
	_ gocmd.Commander[RunReconcileCycleMessage]     = (*RunReconcileCycleCommand)(nil)
	_ gocmd.Commander[ValidateAuthorizationMessage] = (*ValidateAuthorizationCommand)(nil)
)
