package messenger

import (
	"errors"
	"fmt"
)

// ErrorCode classifies provider failures for the connection state machine
// and the reply dispatcher.
type ErrorCode string

const (
	CodeAuthorizationDenied  ErrorCode = "authorization_denied"
	CodeAuthorizationExpired ErrorCode = "authorization_expired"
	CodeProviderUnavailable  ErrorCode = "provider_unavailable"
	CodeTokenInvalid         ErrorCode = "token_invalid"
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeProviderAPIError     ErrorCode = "provider_api_error"
)

// ProviderError wraps a Graph API failure with its classification
type ProviderError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a classified provider error
func NewProviderError(code ErrorCode, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// IsCode reports whether err is a ProviderError with the given code
func IsCode(err error, code ErrorCode) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}

// CodeOf extracts the classification, defaulting to ProviderAPIError
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeProviderAPIError
}
