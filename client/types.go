package client

// GenerateTokenRequest mints a payment token for an enrolled commerce.
type GenerateTokenRequest struct {
	EnrollerUserID string         `json:"enroller_user_id"`
	TokenType      string         `json:"token_type,omitempty"`
	Detail         string         `json:"detail,omitempty"`
	ExtraData      string         `json:"extra_data,omitempty"`
	Reusability    int            `json:"reusability,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

type GenerateTokenResponse struct {
	TokenUUID     string `json:"token_uuid"`
	TokenURL      string `json:"token_url,omitempty"`
	OperationUUID string `json:"operation_uuid"`
	StatusCode    string `json:"status_code"`
	Signature     string `json:"signature"`
}

// RevokeTokenRequest invalidates a token on the network.
type RevokeTokenRequest struct {
	EnrollerUserID string `json:"enroller_user_id"`
	TokenUUID      string `json:"token_uuid"`
}

type RevokeTokenResponse struct {
	TokenUUID     string `json:"token_uuid"`
	OperationUUID string `json:"operation_uuid"`
	StatusCode    string `json:"status_code"`
	Signature     string `json:"signature"`
}

// CheckTokenRequest validates a token's current network state.
type CheckTokenRequest struct {
	TokenUUID      string `json:"token_uuid"`
	EnrollerUserID string `json:"enroller_user_id"`
	UserType       string `json:"user_type,omitempty"`
}

type CheckTokenResponse struct {
	TokenUUID     string         `json:"token_uuid"`
	OperationUUID string         `json:"operation_uuid"`
	StatusCode    string         `json:"status_code"`
	ExtraData     string         `json:"extra_data,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	Signature     string         `json:"signature"`
}

// AuthorizeRequest submits a payment authorization against a token. The
// Data map carries the amount fields for the token type in play.
type AuthorizeRequest struct {
	EnrollerUserID string         `json:"enroller_user_id"`
	TokenUUID      string         `json:"token_uuid"`
	ParentUUID     string         `json:"parent_uuid,omitempty"`
	TokenType      string         `json:"token_type,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

type AuthorizeResponse struct {
	AuthorizationUUID string `json:"authorization_uuid"`
	OperationUUID     string `json:"operation_uuid"`
	StatusCode        string `json:"status_code"`
	Signature         string `json:"signature"`
}

// ChargebackRequest reverses a settled authorization.
type ChargebackRequest struct {
	EnrollerUserID    string `json:"enroller_user_id"`
	AuthorizationUUID string `json:"authorization_uuid"`
	Amount            int64  `json:"amount,omitempty"`
}

type ChargebackResponse struct {
	ChargebackUUID string `json:"chargeback_uuid,omitempty"`
	OperationUUID  string `json:"operation_uuid"`
	StatusCode     string `json:"status_code"`
	Signature      string `json:"signature"`
}

// UserAccount is the settlement bank account attached to an enrollment.
type UserAccount struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Type    string `json:"type"`
	TaxID   string `json:"tax_id"`
}

// UserRequest enrolls or updates a user on the network. UserType is
// "collector" or "payer".
type UserRequest struct {
	EnrollerUserID string      `json:"enroller_user_id"`
	UserType       string      `json:"user_type"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	TaxID          string      `json:"tax_id"`
	TaxAddress     string      `json:"tax_address,omitempty"`
	Gloss          string      `json:"gloss,omitempty"`
	Account        UserAccount `json:"account"`
}

type UserResponse struct {
	EnrollerUserID     string         `json:"enroller_user_id"`
	UserType           string         `json:"user_type"`
	Name               string         `json:"name,omitempty"`
	Email              string         `json:"email,omitempty"`
	TaxID              string         `json:"tax_id,omitempty"`
	Account            map[string]any `json:"account,omitempty"`
	RequiredActivation bool           `json:"required_activation,omitempty"`
	OperationUUID      string         `json:"operation_uuid"`
	StatusCode         string         `json:"status_code"`
	Signature          string         `json:"signature"`
}

type validateAuthorizationBody struct {
	EnrollerUserID    string `json:"enroller_user_id"`
	UserType          string `json:"user_type"`
	AuthorizationUUID string `json:"authorization_uuid"`
}

type validateAuthorizationWire struct {
	OperationUUID     string `json:"operation_uuid"`
	AuthorizationUUID string `json:"authorization_uuid"`
	StatusCode        string `json:"status_code"`
	ExtraData         string `json:"extra_data,omitempty"`
	Signature         string `json:"signature"`
}
