package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-paytoken/core"
	"github.com/goliatone/go-paytoken/integrity"
)

const testSecret = "f441bb4d-9cd3-410a-8ede-cefd33cf3fa0"

type stubStore struct {
	order core.Order
	err   error
	calls int
}

func (s *stubStore) GetOrder(_ context.Context, tokenUUID string) (core.Order, error) {
	s.calls++
	if s.err != nil {
		return core.Order{}, s.err
	}
	if s.order.TokenUUID != tokenUUID {
		return core.Order{}, core.NewOrderNotFoundError(tokenUUID)
	}
	return s.order, nil
}

func (s *stubStore) PendingAuthorizations(context.Context) ([]core.AuthorizeOrder, error) {
	return nil, nil
}

type stubHandler struct {
	preAuthorize int
	info         int
	err          error
	lastWebhook  core.WebhookPreAuthorization
	lastOrder    core.Order
}

func (h *stubHandler) OnPreAuthorize(_ context.Context, webhook core.WebhookPreAuthorization, order core.Order) error {
	h.preAuthorize++
	h.lastWebhook = webhook
	h.lastOrder = order
	return h.err
}

func (h *stubHandler) OnInfo(_ context.Context, webhook core.WebhookPreAuthorization) error {
	h.info++
	h.lastWebhook = webhook
	return h.err
}

func (h *stubHandler) OnAuthorizeSuccess(context.Context, core.AuthorizeOrder, string) error {
	return nil
}

func (h *stubHandler) OnAuthorizeFailure(context.Context, core.AuthorizeOrder, string) error {
	return nil
}

type fixedCounter struct {
	count core.ReuseCount
	err   error
}

func (c fixedCounter) CountAuthorizations(context.Context, string) (core.ReuseCount, error) {
	return c.count, c.err
}

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Secrets.Integrity = testSecret
	return cfg
}

func signedWebhook(t *testing.T, statusCode string) core.WebhookPreAuthorization {
	t.Helper()
	webhook := core.WebhookPreAuthorization{
		TokenUUID: "tok-1",
		Amount:    1500,
		Operations: core.WebhookOperations{
			GenerationUUID:    "gen-1",
			VerificationUUID:  "ver-1",
			AuthorizationUUID: "auth-1",
		},
		StatusCode: statusCode,
		ExtraData:  "order-42",
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
	digest, err := integrity.Sign(webhook.Payload(), testSecret)
	if err != nil {
		t.Fatalf("sign webhook fixture: %v", err)
	}
	webhook.Signature = digest
	return webhook
}

func TestProcessor_AcceptsValidPreAuthorization(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", UserID: "usr-1", Reusability: 1}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	webhook := signedWebhook(t, core.DefaultStatusCodeOK)
	if err := processor.Process(context.Background(), webhook); err != nil {
		t.Fatalf("process webhook: %v", err)
	}
	if handler.preAuthorize != 1 {
		t.Fatalf("expected one pre-authorize dispatch, got %d", handler.preAuthorize)
	}
	if handler.info != 0 {
		t.Fatalf("expected no informational dispatch")
	}
	if handler.lastOrder.UserID != "usr-1" {
		t.Fatalf("expected loaded order passed to handler")
	}
}

func TestProcessor_RejectsInvalidSignatureBeforeStateIsTouched(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-1"}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	webhook := signedWebhook(t, core.DefaultStatusCodeOK)
	webhook.Amount = 9999 // tamper after signing

	err = processor.Process(context.Background(), webhook)
	if !core.IsInvalidSignature(err) {
		t.Fatalf("expected invalid-signature error, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("expected no order lookup after signature rejection")
	}
	if handler.preAuthorize != 0 || handler.info != 0 {
		t.Fatalf("expected no handler dispatch")
	}
}

func TestProcessor_PropagatesOrderNotFound(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-other"}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	err = processor.Process(context.Background(), signedWebhook(t, core.DefaultStatusCodeOK))
	if !core.IsOrderNotFound(err) {
		t.Fatalf("expected order-not-found error, got %v", err)
	}
}

func TestProcessor_RoutesNonOKStatusToInformationalHandler(t *testing.T) {
	// Revoked order: the informational path must never reach the
	// revocation or reuse checks.
	revokedAt := time.Now().UTC()
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", RevokedAt: &revokedAt}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler, WithAuthorizationCounter(fixedCounter{count: core.ReuseCountOf(10)}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	if err := processor.Process(context.Background(), signedWebhook(t, "05")); err != nil {
		t.Fatalf("process informational webhook: %v", err)
	}
	if handler.info != 1 {
		t.Fatalf("expected informational dispatch, got %d", handler.info)
	}
	if handler.preAuthorize != 0 {
		t.Fatalf("expected no pre-authorize dispatch")
	}
}

func TestProcessor_RejectsRevokedOrder(t *testing.T) {
	revokedAt := time.Now().UTC()
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", Reusability: 1, RevokedAt: &revokedAt}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	err = processor.Process(context.Background(), signedWebhook(t, core.DefaultStatusCodeOK))
	if !core.IsOrderRevoked(err) {
		t.Fatalf("expected order-revoked error, got %v", err)
	}
	if handler.preAuthorize != 0 {
		t.Fatalf("expected no pre-authorize dispatch for revoked order")
	}
}

func TestProcessor_RejectsWhenReuseLimitReached(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", Reusability: 1}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler,
		WithAuthorizationCounter(fixedCounter{count: core.ReuseCountOf(1)}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	err = processor.Process(context.Background(), signedWebhook(t, core.DefaultStatusCodeOK))
	if !core.IsOrderReuseLimit(err) {
		t.Fatalf("expected reuse-limit error, got %v", err)
	}
}

func TestProcessor_UnknownReuseCountDisablesCheck(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", Reusability: 1}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler,
		WithAuthorizationCounter(fixedCounter{count: core.ReuseUnknown()}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	if err := processor.Process(context.Background(), signedWebhook(t, core.DefaultStatusCodeOK)); err != nil {
		t.Fatalf("expected unknown count to bypass reuse check: %v", err)
	}
	if handler.preAuthorize != 1 {
		t.Fatalf("expected pre-authorize dispatch")
	}
}

func TestProcessor_WrapsHandlerFailureAsImplementationError(t *testing.T) {
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", Reusability: 1}}
	handler := &stubHandler{err: errors.New("persistence down")}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	err = processor.Process(context.Background(), signedWebhook(t, core.DefaultStatusCodeOK))
	if !core.IsImplementation(err) {
		t.Fatalf("expected implementation error, got %v", err)
	}
}

func TestProcessor_DuplicateDeliveryDispatchesAgain(t *testing.T) {
	// Redelivered webhooks reach the handler each time; idempotency for the
	// same authorization_uuid is the handler's contract.
	store := &stubStore{order: core.Order{TokenUUID: "tok-1", Reusability: 1}}
	handler := &stubHandler{}
	processor, err := NewProcessor(testConfig(), store, handler)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	webhook := signedWebhook(t, core.DefaultStatusCodeOK)
	for i := 0; i < 2; i++ {
		if err := processor.Process(context.Background(), webhook); err != nil {
			t.Fatalf("process delivery %d: %v", i+1, err)
		}
	}
	if handler.preAuthorize != 2 {
		t.Fatalf("expected handler to see both deliveries, got %d", handler.preAuthorize)
	}
}

func TestParseWebhook_RejectsMalformedBody(t *testing.T) {
	if _, err := ParseWebhook([]byte("{not-json")); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestNewProcessor_RequiresIntegritySecret(t *testing.T) {
	cfg := core.DefaultConfig()
	if _, err := NewProcessor(cfg, &stubStore{}, &stubHandler{}); err == nil {
		t.Fatalf("expected missing integrity secret rejection")
	}
}
