// Package client is the signed HTTP client for the payment network.
// Every request body is signed with the integrity secret before it
// leaves the process and every response signature is verified before
// the payload is handed back to the caller. TLS material, including
// mutual TLS, belongs to the host: pass a pre-configured *http.Client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-paytoken/core"
	"github.com/goliatone/go-paytoken/integrity"
)

// Network endpoint paths.
const (
	PathGenerate              = "/payment-token/generate"
	PathRevoke                = "/payment-token/revoke"
	PathValidateToken         = "/payment-token/check"
	PathAuthorize             = "/payment-token/authorize"
	PathValidateAuthorization = "/authorization/check"
	PathChargeback            = "/chargeback"
	PathUser                  = "/user"
	PathUserVerify            = "/user/verify-enrollment"
)

const maxResponseBody = 1 << 20

// Client talks to the payment network over signed JSON.
type Client struct {
	config     core.Config
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	metrics    core.MetricsRecorder
	userType   string
}

// Option configures optional client collaborators.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport. Hosts that talk to
// the production network use this to install their mTLS certificates.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithClientLogger overrides the client logger.
func WithClientLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientLoggerProvider resolves the client logger from a provider.
func WithClientLoggerProvider(provider core.LoggerProvider) Option {
	return func(c *Client) {
		if provider != nil {
			c.logger = glog.Ensure(provider.GetLogger("client"))
		}
	}
}

// WithClientMetrics overrides the client metrics recorder.
func WithClientMetrics(metrics core.MetricsRecorder) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithUserType sets the enroller role reported on authorization
// validation calls. Defaults to "collector".
func WithUserType(userType string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userType) != "" {
			c.userType = userType
		}
	}
}

// New builds a client for the configured environment. The base URL and
// the integrity secret are required.
func New(cfg core.Config, options ...Option) (*Client, error) {
	cfg = cfg.Normalized()
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return nil, core.NewBadInputError("client: api base_url is required")
	}
	if strings.TrimSpace(cfg.Secrets.Integrity) == "" {
		return nil, core.NewBadInputError("client: integrity secret is required")
	}

	client := &Client{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		logger:     glog.Ensure(nil),
		metrics:    core.NopMetricsRecorder{},
		userType:   "collector",
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

// GenerateToken asks the network to mint a payment token.
func (c *Client) GenerateToken(ctx context.Context, req GenerateTokenRequest) (GenerateTokenResponse, error) {
	var resp GenerateTokenResponse
	err := c.post(ctx, PathGenerate, req, &resp)
	return resp, err
}

// RevokeToken invalidates a token before its natural expiry.
func (c *Client) RevokeToken(ctx context.Context, req RevokeTokenRequest) (RevokeTokenResponse, error) {
	var resp RevokeTokenResponse
	err := c.post(ctx, PathRevoke, req, &resp)
	return resp, err
}

// CheckToken validates a token's current state on the network.
func (c *Client) CheckToken(ctx context.Context, req CheckTokenRequest) (CheckTokenResponse, error) {
	var resp CheckTokenResponse
	err := c.post(ctx, PathValidateToken, req, &resp)
	return resp, err
}

// Authorize submits a payment authorization against a token.
func (c *Client) Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResponse, error) {
	var resp AuthorizeResponse
	err := c.post(ctx, PathAuthorize, req, &resp)
	return resp, err
}

// Chargeback reverses a settled authorization.
func (c *Client) Chargeback(ctx context.Context, req ChargebackRequest) (ChargebackResponse, error) {
	var resp ChargebackResponse
	err := c.post(ctx, PathChargeback, req, &resp)
	return resp, err
}

// ValidateAuthorization checks whether an authorization settled on the
// network side.
func (c *Client) ValidateAuthorization(ctx context.Context, req core.ValidateAuthorizationRequest) (core.ValidateAuthorizationResponse, error) {
	body := validateAuthorizationBody{
		EnrollerUserID:    req.UserID,
		UserType:          c.userType,
		AuthorizationUUID: req.AuthorizationUUID,
	}
	var wire validateAuthorizationWire
	if err := c.post(ctx, PathValidateAuthorization, body, &wire); err != nil {
		return core.ValidateAuthorizationResponse{}, err
	}
	return core.ValidateAuthorizationResponse{
		OperationUUID:     wire.OperationUUID,
		AuthorizationUUID: wire.AuthorizationUUID,
		StatusCode:        wire.StatusCode,
		ExtraData:         wire.ExtraData,
	}, nil
}

// CreateUser enrolls a collector or payer on the network.
func (c *Client) CreateUser(ctx context.Context, req UserRequest) (UserResponse, error) {
	var resp UserResponse
	err := c.send(ctx, http.MethodPost, PathUser, req, &resp)
	return resp, err
}

// UpdateUser replaces an enrolled user's record.
func (c *Client) UpdateUser(ctx context.Context, req UserRequest) (UserResponse, error) {
	var resp UserResponse
	err := c.send(ctx, http.MethodPut, PathUser, req, &resp)
	return resp, err
}

// VerifyEnrollment checks whether a user is enrolled. The identifying
// parameters travel as signed query parameters.
func (c *Client) VerifyEnrollment(ctx context.Context, enrollerUserID string) (UserResponse, error) {
	var resp UserResponse
	err := c.get(ctx, PathUserVerify, map[string]any{
		"enroller_user_id": enrollerUserID,
		"user_type":        c.userType,
	}, &resp)
	return resp, err
}

var _ core.AuthorizationValidator = (*Client)(nil)

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body any, out any) error {
	started := time.Now()

	signed, err := integrity.SignedPayloadAny(body, c.config.Secrets.Integrity)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(signed)
	if err != nil {
		return core.NewInternalError("client: encode request: " + err.Error())
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return core.NewInternalError("client: build request: " + err.Error())
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	return c.exchange(ctx, request, path, started, out)
}

// get signs the query parameters the same way request bodies are signed.
func (c *Client) get(ctx context.Context, path string, params map[string]any, out any) error {
	started := time.Now()

	signed, err := integrity.SignedPayloadAny(params, c.config.Secrets.Integrity)
	if err != nil {
		return err
	}
	query := url.Values{}
	for key, value := range signed {
		query.Set(key, fmt.Sprint(value))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return core.NewInternalError("client: build request: " + err.Error())
	}
	request.Header.Set("Accept", "application/json")

	return c.exchange(ctx, request, path, started, out)
}

func (c *Client) exchange(ctx context.Context, request *http.Request, path string, started time.Time, out any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.observe(ctx, path, "transport_error", started)
		return core.NewNetworkError("client: request failed: "+err.Error(), "", "")
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBody))
	if err != nil {
		c.observe(ctx, path, "transport_error", started)
		return core.NewNetworkError("client: read response: "+err.Error(), "", "")
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		c.observe(ctx, path, fmt.Sprintf("http_%d", response.StatusCode), started)
		return c.apiError(response.StatusCode, payload)
	}

	fields, err := integrity.Canonicalize(json.RawMessage(payload))
	if err != nil {
		return core.NewInternalError("client: decode response: " + err.Error())
	}
	if !integrity.Verify(fields, c.config.Secrets.Integrity) {
		c.observe(ctx, path, "invalid_signature", started)
		return core.NewInvalidSignatureError()
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return core.NewInternalError("client: decode response: " + err.Error())
		}
	}

	c.observe(ctx, path, "ok", started)
	return nil
}

// apiError maps the network's error envelope into the error taxonomy,
// keeping status_code and operation_uuid readable for the reconciler.
func (c *Client) apiError(httpStatus int, payload []byte) error {
	var envelope struct {
		Message       string `json:"message"`
		StatusCode    string `json:"status_code"`
		OperationUUID string `json:"operation_uuid"`
	}
	_ = json.Unmarshal(payload, &envelope)

	message := envelope.Message
	if message == "" {
		message = fmt.Sprintf("client: network request rejected with HTTP %d", httpStatus)
	}
	return core.NewNetworkError(message, envelope.OperationUUID, envelope.StatusCode)
}

func (c *Client) observe(ctx context.Context, path, outcome string, started time.Time) {
	tags := map[string]string{"path": path, "outcome": outcome}
	c.metrics.IncCounter(ctx, "paytoken.client.request", 1, tags)
	c.metrics.ObserveHistogram(ctx, "paytoken.client.request_duration_ms", float64(time.Since(started).Milliseconds()), tags)
	if outcome != "ok" {
		core.LogWith(ctx, c.logger, "warn", "network request failed", map[string]any{
			"path":    path,
			"outcome": outcome,
		})
	}
}
