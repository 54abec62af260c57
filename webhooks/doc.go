// Package webhooks validates inbound pre-authorization notifications and
// dispatches them to the host's event handlers.
//
// Processing is a fixed pipeline: signature verification, order lookup,
// status-code branch, revocation and reuse-limit checks, then either the
// pre-authorization or the informational handler. Signature and business-rule
// failures surface to the caller; nothing is retried here. Redelivery
// belongs to the webhook transport.
package webhooks
