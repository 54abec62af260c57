package core

import (
	"strings"
	"time"
)

// Order is a previously generated payment token awaiting payer action. The
// token-generation subsystem owns the record; this module only reads it.
type Order struct {
	TokenUUID   string     `json:"token_uuid"`
	UserID      string     `json:"user_id"`
	Amount      int64      `json:"amount"`
	StatusCode  string     `json:"status_code,omitempty"`
	Reusability int        `json:"reusability"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func (o Order) IsRevoked() bool {
	return o.RevokedAt != nil
}

// AuthorizeOrder tracks one in-flight authorization until the network
// confirms or rejects it. IsConfirmed transitions false->true exactly once,
// set by the terminal success or failure handler.
type AuthorizeOrder struct {
	AuthorizationUUID string  `json:"authorization_uuid"`
	TokenUUID         string  `json:"token_uuid"`
	UserID            string  `json:"user_id"`
	IsConfirmed       bool    `json:"is_confirmed"`
	StatusCode        *string `json:"status_code,omitempty"`
}

// WebhookOperations carries the operation identifiers assigned by the network
// for one token lifecycle.
type WebhookOperations struct {
	GenerationUUID    string `json:"generation_uuid"`
	VerificationUUID  string `json:"verification_uuid"`
	AuthorizationUUID string `json:"authorization_uuid"`
}

type WebhookSubscription struct {
	SubscriptionUUID string `json:"subscription_uuid"`
}

// WebhookPreAuthorization is the inbound signed payload pushed by the network
// when a payer tentatively authorizes a token.
type WebhookPreAuthorization struct {
	TokenUUID   string               `json:"token_uuid"`
	IsMed       *bool                `json:"is_med,omitempty"`
	Amount      int64                `json:"amount"`
	Operations  WebhookOperations    `json:"operations"`
	Data        *WebhookSubscription `json:"data,omitempty"`
	CollectorID string               `json:"collector_id,omitempty"`
	PayerID     string               `json:"payer_id,omitempty"`
	Message     string               `json:"message,omitempty"`
	StatusCode  string               `json:"status_code"`
	Status      string               `json:"status,omitempty"`
	ExtraData   string               `json:"extra_data"`
	Timestamp   string               `json:"timestamp"`
	Signature   string               `json:"signature"`
}

// Payload rebuilds the signable wire form of the webhook. Optional fields
// that were absent on the wire stay absent here so the recomputed digest
// matches the one the network produced.
func (w WebhookPreAuthorization) Payload() map[string]any {
	payload := map[string]any{
		"token_uuid": w.TokenUUID,
		"amount":     w.Amount,
		"operations": map[string]any{
			"generation_uuid":    w.Operations.GenerationUUID,
			"verification_uuid":  w.Operations.VerificationUUID,
			"authorization_uuid": w.Operations.AuthorizationUUID,
		},
		"status_code": w.StatusCode,
		"extra_data":  w.ExtraData,
		"timestamp":   w.Timestamp,
		"signature":   w.Signature,
	}
	if w.IsMed != nil {
		payload["is_med"] = *w.IsMed
	}
	if w.Data != nil {
		payload["data"] = map[string]any{
			"subscription_uuid": w.Data.SubscriptionUUID,
		}
	}
	if strings.TrimSpace(w.CollectorID) != "" {
		payload["collector_id"] = w.CollectorID
	}
	if strings.TrimSpace(w.PayerID) != "" {
		payload["payer_id"] = w.PayerID
	}
	if strings.TrimSpace(w.Message) != "" {
		payload["message"] = w.Message
	}
	if strings.TrimSpace(w.Status) != "" {
		payload["status"] = w.Status
	}
	return payload
}

func (w WebhookPreAuthorization) Validate() error {
	if strings.TrimSpace(w.TokenUUID) == "" {
		return badInput("core: webhook token uuid is required", nil)
	}
	if strings.TrimSpace(w.Signature) == "" {
		return badInput("core: webhook signature is required", nil)
	}
	return nil
}

// ReuseCount reports how many authorizations exist for an order. The zero
// value means the counter capability is not implemented and the reuse-limit
// check is disabled; there is no -1 sentinel.
type ReuseCount struct {
	known bool
	n     int
}

// ReuseUnknown disables the reuse-limit check.
func ReuseUnknown() ReuseCount {
	return ReuseCount{}
}

func ReuseCountOf(n int) ReuseCount {
	if n < 0 {
		n = 0
	}
	return ReuseCount{known: true, n: n}
}

func (c ReuseCount) Known() bool {
	return c.known
}

func (c ReuseCount) Count() int {
	if !c.known {
		return 0
	}
	return c.n
}

// Exceeds reports whether the counted authorizations leave no room under the
// order's reusability budget. Unknown counts never exceed.
func (c ReuseCount) Exceeds(reusability int) bool {
	if !c.known {
		return false
	}
	if reusability < 1 {
		reusability = 1
	}
	return c.n >= reusability
}
