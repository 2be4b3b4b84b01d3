package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ProviderError is returned by every adapter failure: non-2xx status,
// malformed payload, empty result or timeout.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       ErrorType
	Message    string
}

type ErrorType int

const (
	ErrorTypeGeneral ErrorType = iota
	ErrorTypeTokenLimit
	ErrorTypeInvalidAPIKey
	ErrorTypeRateLimit
	ErrorTypeModelNotFound
	ErrorTypeQuotaExceeded
	ErrorTypeTimeout
	ErrorTypeMalformedResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTokenLimit:
		return "token_limit"
	case ErrorTypeInvalidAPIKey:
		return "invalid_api_key"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeModelNotFound:
		return "model_not_found"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeMalformedResponse:
		return "malformed_response"
	}
	return "general"
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (status %d, %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
}

// IsTokenLimitError checks if the error is related to token limits
func IsTokenLimitError(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Type == ErrorTypeTokenLimit
	}
	return false
}

// NewProviderError creates an error classified from the HTTP status code.
func NewProviderError(provider string, statusCode int, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Type:       classifyStatus(statusCode),
		Message:    message,
	}
}

// NewMalformedResponseError is used when a 2xx body cannot be decoded or has no content.
func NewMalformedResponseError(provider, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: http.StatusBadGateway,
		Type:       ErrorTypeMalformedResponse,
		Message:    message,
	}
}

// newTransportError converts a failed round trip into a ProviderError.
// Deadline expiry is reported as 408 so the orchestrator treats it as an
// ordinary provider failure.
func newTransportError(provider string, err error) *ProviderError {
	// url.Error の文字列には URL 全体が含まれるため、原因だけを残す
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			err = fmt.Errorf("%s: %w", urlErr.Op, timeoutError{urlErr.Err})
		} else {
			err = fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &ProviderError{
			Provider:   provider,
			StatusCode: http.StatusRequestTimeout,
			Type:       ErrorTypeTimeout,
			Message:    fmt.Sprintf("request timed out: %v", err),
		}
	}
	return &ProviderError{
		Provider:   provider,
		StatusCode: http.StatusBadGateway,
		Type:       ErrorTypeGeneral,
		Message:    fmt.Sprintf("failed to send request: %v", err),
	}
}

// timeoutError keeps the Timeout() signal of an unwrapped url.Error.
type timeoutError struct{ error }

func (timeoutError) Timeout() bool { return true }

func (e timeoutError) Unwrap() error { return e.error }

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func classifyStatus(statusCode int) ErrorType {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeInvalidAPIKey
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusNotFound:
		return ErrorTypeModelNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusPaymentRequired:
		return ErrorTypeQuotaExceeded
	}
	return ErrorTypeGeneral
}
