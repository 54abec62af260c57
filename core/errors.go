package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorInvalidSignature  = "PAYTOKEN_INVALID_SIGNATURE"
	ErrorOrderNotFound     = "PAYTOKEN_ORDER_NOT_FOUND"
	ErrorOrderRevoked      = "PAYTOKEN_ORDER_REVOKED"
	ErrorOrderReuseLimit   = "PAYTOKEN_ORDER_REUSE_LIMIT"
	ErrorProcessAuthorize  = "PAYTOKEN_PROCESS_AUTHORIZE"
	ErrorImplementation    = "PAYTOKEN_IMPLEMENTATION"
	ErrorNetwork           = "PAYTOKEN_NETWORK"
	ErrorBadInput          = "PAYTOKEN_BAD_INPUT"
	ErrorInternal          = "PAYTOKEN_INTERNAL"
)

// MetadataKeyStatusCode carries the network-assigned outcome code inside an
// error envelope so the reconciliation resolver can branch on it.
const (
	MetadataKeyStatusCode    = "status_code"
	MetadataKeyOperationUUID = "operation_uuid"
)

func NewInvalidSignatureError() error {
	return goerrors.New("Invalid signature", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorInvalidSignature)
}

func NewOrderNotFoundError(tokenUUID string) error {
	return goerrors.New("Order not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorOrderNotFound).
		WithMetadata(map[string]any{"token_uuid": strings.TrimSpace(tokenUUID)})
}

func NewOrderRevokedError() error {
	return goerrors.New("Order is revoked", goerrors.CategoryOperation).
		WithCode(http.StatusNotAcceptable).
		WithTextCode(ErrorOrderRevoked)
}

func NewOrderReuseLimitError() error {
	return goerrors.New("Order reuse limit reached", goerrors.CategoryOperation).
		WithCode(http.StatusNotAcceptable).
		WithTextCode(ErrorOrderReuseLimit)
}

// NewProcessAuthorizeError wraps an unexpected failure inside a
// reconciliation cycle. The cycle aborts for that tick; the scheduler keeps
// running.
func NewProcessAuthorizeError(source error, operationUUID string, statusCode string) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, "Failed to authorize process").
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorProcessAuthorize)
	metadata := map[string]any{}
	if strings.TrimSpace(operationUUID) != "" {
		metadata[MetadataKeyOperationUUID] = operationUUID
	}
	if strings.TrimSpace(statusCode) != "" {
		metadata[MetadataKeyStatusCode] = statusCode
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// NewImplementationError marks a defect in a collaborator-supplied handler.
// It is never retried: re-running a failed persistence write cannot be
// assumed safe.
func NewImplementationError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "An error occurred in your implementation").
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorImplementation)
}

// NewNetworkError represents an error reported by the payment network. The
// reported status code rides in metadata for the retry policy to inspect.
func NewNetworkError(message string, operationUUID string, statusCode string) error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorNetwork)
	metadata := map[string]any{}
	if strings.TrimSpace(operationUUID) != "" {
		metadata[MetadataKeyOperationUUID] = operationUUID
	}
	if strings.TrimSpace(statusCode) != "" {
		metadata[MetadataKeyStatusCode] = statusCode
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func badInput(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// NewBadInputError reports invalid caller-supplied input.
func NewBadInputError(message string) error {
	return badInput(message, nil)
}

func NewInternalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func IsInvalidSignature(err error) bool {
	return hasTextCode(err, ErrorInvalidSignature)
}

func IsOrderNotFound(err error) bool {
	return hasTextCode(err, ErrorOrderNotFound)
}

func IsOrderRevoked(err error) bool {
	return hasTextCode(err, ErrorOrderRevoked)
}

func IsOrderReuseLimit(err error) bool {
	return hasTextCode(err, ErrorOrderReuseLimit)
}

func IsProcessAuthorize(err error) bool {
	return hasTextCode(err, ErrorProcessAuthorize)
}

func IsImplementation(err error) bool {
	return hasTextCode(err, ErrorImplementation)
}

func IsNetwork(err error) bool {
	return hasTextCode(err, ErrorNetwork)
}

func IsBadInput(err error) bool {
	return hasTextCode(err, ErrorBadInput)
}

// ErrorStatusCode extracts the network-reported outcome code from an error
// envelope; it returns the empty string when none was supplied.
func ErrorStatusCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ""
	}
	if richErr.Metadata == nil {
		return ""
	}
	if value, ok := richErr.Metadata[MetadataKeyStatusCode].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// MapError normalizes any error into a paytoken go-errors envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryAuth, err.Error()).
			WithTextCode(ErrorInvalidSignature))
	case strings.Contains(msg, "not found"):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryNotFound, err.Error()).
			WithTextCode(ErrorOrderNotFound))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
			WithTextCode(ErrorBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth:
		return ErrorInvalidSignature
	case goerrors.CategoryNotFound:
		return ErrorOrderNotFound
	case goerrors.CategoryExternal:
		return ErrorNetwork
	default:
		return ErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		return http.StatusNotAcceptable
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
