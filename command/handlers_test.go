package command

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-paytoken/core"
)

type stubWebhookService struct {
	processFn func(ctx context.Context, webhook core.WebhookPreAuthorization) error
}

func (s stubWebhookService) Process(ctx context.Context, webhook core.WebhookPreAuthorization) error {
	return s.processFn(ctx, webhook)
}

type stubReconcileService struct {
	runCycleFn func(ctx context.Context) error
}

func (s stubReconcileService) RunCycle(ctx context.Context) error {
	return s.runCycleFn(ctx)
}

type stubResolver struct {
	resolveFn func(ctx context.Context, record core.AuthorizeOrder) error
}

func (s stubResolver) Resolve(ctx context.Context, record core.AuthorizeOrder) error {
	return s.resolveFn(ctx, record)
}

type stubValidator struct {
	validateFn func(ctx context.Context, req core.ValidateAuthorizationRequest) (core.ValidateAuthorizationResponse, error)
}

func (s stubValidator) ValidateAuthorization(ctx context.Context, req core.ValidateAuthorizationRequest) (core.ValidateAuthorizationResponse, error) {
	return s.validateFn(ctx, req)
}

func TestProcessWebhookCommand_DelegatesToService(t *testing.T) {
	called := false
	svc := stubWebhookService{
		processFn: func(_ context.Context, webhook core.WebhookPreAuthorization) error {
			called = true
			if webhook.TokenUUID != "tok-1" {
				t.Fatalf("expected token tok-1, got %q", webhook.TokenUUID)
			}
			return nil
		},
	}

	cmd := NewProcessWebhookCommand(svc)
	err := cmd.Execute(context.Background(), ProcessWebhookMessage{Webhook: core.WebhookPreAuthorization{
		TokenUUID: "tok-1",
		Signature: "abc",
	}})
	if err != nil {
		t.Fatalf("execute process webhook: %v", err)
	}
	if !called {
		t.Fatalf("expected webhook service invocation")
	}
}

func TestProcessWebhookCommand_RequiresService(t *testing.T) {
	cmd := NewProcessWebhookCommand(nil)
	if err := cmd.Execute(context.Background(), ProcessWebhookMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestResolveAuthorizationCommand_DelegatesToResolver(t *testing.T) {
	called := false
	resolver := stubResolver{
		resolveFn: func(_ context.Context, record core.AuthorizeOrder) error {
			called = true
			if record.AuthorizationUUID != "auth-1" {
				t.Fatalf("unexpected record: %+v", record)
			}
			return nil
		},
	}

	cmd := NewResolveAuthorizationCommand(resolver)
	err := cmd.Execute(context.Background(), ResolveAuthorizationMessage{Record: core.AuthorizeOrder{
		AuthorizationUUID: "auth-1",
	}})
	if err != nil {
		t.Fatalf("execute resolve: %v", err)
	}
	if !called {
		t.Fatalf("expected resolver invocation")
	}
}

func TestRunReconcileCycleCommand_PropagatesServiceError(t *testing.T) {
	wantErr := errors.New("cycle failed")
	svc := stubReconcileService{
		runCycleFn: func(context.Context) error { return wantErr },
	}

	cmd := NewRunReconcileCycleCommand(svc)
	if err := cmd.Execute(context.Background(), RunReconcileCycleMessage{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestValidateAuthorizationCommand_StoresResult(t *testing.T) {
	expected := core.ValidateAuthorizationResponse{
		OperationUUID:     "op-1",
		AuthorizationUUID: "auth-1",
		StatusCode:        core.DefaultStatusCodeOK,
	}
	validator := stubValidator{
		validateFn: func(_ context.Context, req core.ValidateAuthorizationRequest) (core.ValidateAuthorizationResponse, error) {
			if req.UserID != "usr-1" {
				t.Fatalf("unexpected request: %+v", req)
			}
			return expected, nil
		},
	}

	cmd := NewValidateAuthorizationCommand(validator)
	collector := gocmd.NewResult[core.ValidateAuthorizationResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ValidateAuthorizationMessage{Request: core.ValidateAuthorizationRequest{
		AuthorizationUUID: "auth-1",
		UserID:            "usr-1",
	}})
	if err != nil {
		t.Fatalf("execute validate: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.OperationUUID != expected.OperationUUID || result.StatusCode != expected.StatusCode {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (ProcessWebhookMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty webhook rejection")
	}
	if err := (ResolveAuthorizationMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty record rejection")
	}
	if err := (ValidateAuthorizationMessage{}).Validate(); err == nil {
		t.Fatalf("expected empty request rejection")
	}
	if err := (RunReconcileCycleMessage{}).Validate(); err != nil {
		t.Fatalf("expected run-cycle message to validate, got %v", err)
	}
	msg := ValidateAuthorizationMessage{Request: core.ValidateAuthorizationRequest{
		AuthorizationUUID: "auth-1",
		UserID:            "usr-1",
	}}
	if err := msg.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}
