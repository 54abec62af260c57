package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// OrderStore is the read side of the host-owned persistence. GetOrder must
// fail with an order-not-found envelope when the token is unknown.
type OrderStore interface {
	GetOrder(ctx context.Context, tokenUUID string) (Order, error)
	PendingAuthorizations(ctx context.Context) ([]AuthorizeOrder, error)
}

// AuthorizationCounter is an optional capability of the host store. Returning
// ReuseUnknown disables the reuse-limit check.
type AuthorizationCounter interface {
	CountAuthorizations(ctx context.Context, tokenUUID string) (ReuseCount, error)
}

// EventHandler receives the terminal outcomes of webhook processing and
// reconciliation. Implementations own durability:
//
//   - OnPreAuthorize persists a new pending authorization and must tolerate
//     duplicate calls for the same authorization_uuid (webhooks redeliver).
//   - OnAuthorizeSuccess / OnAuthorizeFailure durably mark the record
//     confirmed/failed and retire it from the pending set.
type EventHandler interface {
	OnPreAuthorize(ctx context.Context, webhook WebhookPreAuthorization, order Order) error
	OnInfo(ctx context.Context, webhook WebhookPreAuthorization) error
	OnAuthorizeSuccess(ctx context.Context, order AuthorizeOrder, statusCode string) error
	OnAuthorizeFailure(ctx context.Context, order AuthorizeOrder, statusCode string) error
}

type ValidateAuthorizationRequest struct {
	AuthorizationUUID string `json:"authorization_uuid"`
	UserID            string `json:"user_id"`
}

type ValidateAuthorizationResponse struct {
	OperationUUID     string `json:"operation_uuid,omitempty"`
	AuthorizationUUID string `json:"authorization_uuid,omitempty"`
	StatusCode        string `json:"status_code"`
	ExtraData         string `json:"extra_data,omitempty"`
}

// AuthorizationValidator is the network edge the reconciliation resolver
// drives. A transient state surfaces as an error envelope whose metadata
// carries the retry sentinel status code.
type AuthorizationValidator interface {
	ValidateAuthorization(ctx context.Context, req ValidateAuthorizationRequest) (ValidateAuthorizationResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}
