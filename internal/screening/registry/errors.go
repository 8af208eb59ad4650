package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory is the normalized failure taxonomy for registry calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorForbidden      ErrorCategory = "forbidden"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorInternal       ErrorCategory = "internal"
)

// Caller-facing messages for the outcomes that need operator action.
const (
	MsgNotConfigured = "OpenSanctions API key not configured"
	MsgAuthFailed    = "OpenSanctions API authentication failed - invalid API key"
	MsgForbidden     = "OpenSanctions API access forbidden - check your subscription"
	MsgRateLimited   = "OpenSanctions API rate limit exceeded for this month. Please try again later or upgrade your subscription."
	MsgUnavailable   = "OpenSanctions API temporarily unavailable"
	MsgTimedOut      = "OpenSanctions API request timed out"
)

// ProviderError wraps a registry failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	// Retryable is false for failures that need operator action.
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registry [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registry [%s]: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a ProviderError, deriving Retryable from category.
func NewProviderError(category ErrorCategory, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  !isTerminal(category),
	}
}

func isTerminal(c ErrorCategory) bool {
	return c == ErrorAuthentication || c == ErrorForbidden || c == ErrorRateLimited
}

// IsTerminal reports whether err should stop every further attempt against
// the registry for this request.
func IsTerminal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && isTerminal(pe.Category)
}

// GetCategory extracts the category from err, defaulting to internal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// classifyStatus maps a non-2xx HTTP status to a ProviderError.
func classifyStatus(status int) *ProviderError {
	switch {
	case status == http.StatusUnauthorized:
		return NewProviderError(ErrorAuthentication, MsgAuthFailed, nil)
	case status == http.StatusForbidden:
		return NewProviderError(ErrorForbidden, MsgForbidden, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, MsgRateLimited, nil)
	case status == http.StatusNotFound:
		return NewProviderError(ErrorNotFound, "record not found", nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, fmt.Sprintf("OpenSanctions API returned status %d", status), nil)
	default:
		return NewProviderError(ErrorBadData, fmt.Sprintf("OpenSanctions API returned status %d", status), nil)
	}
}

// classifyTransport maps a transport error to a ProviderError.
func classifyTransport(err error) *ProviderError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return NewProviderError(ErrorTimeout, "request timed out", err)
	}
	return NewProviderError(ErrorProviderOutage, "request failed", err)
}

// outcomeMessage is the text placed in a failed RegistryOutcome.
func outcomeMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if isTerminal(pe.Category) {
			return pe.Message
		}
		if pe.Underlying != nil {
			return fmt.Sprintf("%s: %v", pe.Message, pe.Underlying)
		}
		return pe.Message
	}
	return err.Error()
}
