package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies an integration failure.
type Code string

const (
	// CodeConfiguration means server-side client credentials are missing.
	// Fatal per request, never retried.
	CodeConfiguration Code = "configuration_error"
	// CodeNotConnected means no usable record is stored for the user.
	CodeNotConnected Code = "not_connected"
	// CodeReauthorizationRequired means the stored record has no refresh
	// token, so the user must go through the consent flow again.
	CodeReauthorizationRequired Code = "reauthorization_required"
	// CodeRefreshFailed means the refresh call succeeded at the transport
	// level but yielded no usable access token.
	CodeRefreshFailed Code = "refresh_failed"
	// CodeUpstreamAuth means the provider rejected the request. The upstream
	// status and raw body are kept for diagnosing invalid_grant and friends.
	CodeUpstreamAuth Code = "upstream_auth_error"
	// CodeNetwork is a transport-level failure (DNS, timeout, reset).
	CodeNetwork Code = "network_error"
	// CodeStore is a persistence-layer failure, surfaced and never masked.
	CodeStore Code = "store_error"
)

// IntegrationError carries enough context (provider, stage) to log a failure
// without leaking token material. Token values never appear in it.
type IntegrationError struct {
	Code        Code
	Provider    string
	Stage       string
	Description string

	// Upstream holds the provider's HTTP status and raw body when the
	// provider itself rejected the call.
	StatusCode int
	Body       string

	Err error
}

func (e *IntegrationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Description)
	if e.Provider != "" {
		msg = fmt.Sprintf("%s [provider=%s stage=%s]", msg, e.Provider, e.Stage)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s upstream=%d", msg, e.StatusCode)
	}
	return msg
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err (or anything it wraps) is an IntegrationError
// with the given code.
func HasCode(err error, code Code) bool {
	var ie *IntegrationError
	return stderrors.As(err, &ie) && ie.Code == code
}

// AsIntegrationError unwraps err into an *IntegrationError if possible.
func AsIntegrationError(err error) (*IntegrationError, bool) {
	var ie *IntegrationError
	ok := stderrors.As(err, &ie)
	return ie, ok
}

func NewConfiguration(provider, description string) *IntegrationError {
	return &IntegrationError{
		Code:        CodeConfiguration,
		Provider:    provider,
		Stage:       "configuration",
		Description: description,
	}
}

func NewNotConnected(provider string) *IntegrationError {
	return &IntegrationError{
		Code:        CodeNotConnected,
		Provider:    provider,
		Stage:       "load",
		Description: "no integration stored for user",
	}
}

func NewReauthorizationRequired(provider string) *IntegrationError {
	return &IntegrationError{
		Code:        CodeReauthorizationRequired,
		Provider:    provider,
		Stage:       "refresh",
		Description: "refresh token missing; user must reconnect",
	}
}

func NewRefreshFailed(provider string) *IntegrationError {
	return &IntegrationError{
		Code:        CodeRefreshFailed,
		Provider:    provider,
		Stage:       "refresh",
		Description: "refresh produced no usable access token",
	}
}

func NewUpstreamAuth(provider, stage string, status int, body string) *IntegrationError {
	return &IntegrationError{
		Code:        CodeUpstreamAuth,
		Provider:    provider,
		Stage:       stage,
		Description: "provider rejected the request",
		StatusCode:  status,
		Body:        body,
	}
}

func NewNetwork(provider, stage string, err error) *IntegrationError {
	return &IntegrationError{
		Code:        CodeNetwork,
		Provider:    provider,
		Stage:       stage,
		Description: "transport failure talking to provider",
		Err:         err,
	}
}

func NewStore(provider, stage string, err error) *IntegrationError {
	return &IntegrationError{
		Code:        CodeStore,
		Provider:    provider,
		Stage:       stage,
		Description: "integration store failure",
		Err:         err,
	}
}
