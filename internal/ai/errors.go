package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a failed briefing call
type ErrorType string

const (
	ErrTypeProvider         ErrorType = "provider"
	ErrTypeConfiguration    ErrorType = "configuration"
	ErrTypeAuthentication   ErrorType = "authentication"
	ErrTypeRateLimit        ErrorType = "rate_limit"
	ErrTypeNetwork          ErrorType = "network"
	ErrTypeTimeout          ErrorType = "timeout"
	ErrTypeValidation       ErrorType = "validation"
	ErrTypeModelUnavailable ErrorType = "model_unavailable"
	ErrTypeInternal         ErrorType = "internal"
)

// ProviderError is returned by every Provider method. Field is only set
// for configuration errors and names the offending ai.* setting.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	Field      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Type))
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status=%d)", e.StatusCode)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " ai.%s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches another ProviderError of the same type
func (e *ProviderError) Is(target error) bool {
	pe, ok := target.(*ProviderError)
	return ok && e.Type == pe.Type
}

func NewProviderError(errType ErrorType, message, provider string) *ProviderError {
	return &ProviderError{Type: errType, Message: message, Provider: provider}
}

func NewProviderErrorWithCause(errType ErrorType, message, provider string, cause error) *ProviderError {
	return &ProviderError{Type: errType, Message: message, Provider: provider, Cause: cause}
}

// NewHTTPError records a non-2xx answer from the endpoint
func NewHTTPError(errType ErrorType, status int, message, provider string) *ProviderError {
	return &ProviderError{Type: errType, StatusCode: status, Message: message, Provider: provider}
}

// NewConfigurationError reports an unusable ai.<field> setting
func NewConfigurationError(provider, field, message string) *ProviderError {
	return &ProviderError{Type: ErrTypeConfiguration, Field: field, Message: message, Provider: provider}
}

func typeOf(err error) ErrorType {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// IsConfigurationError reports whether the ai settings are at fault
func IsConfigurationError(err error) bool {
	return typeOf(err) == ErrTypeConfiguration
}

// IsAuthenticationError reports whether the endpoint rejected the API key
func IsAuthenticationError(err error) bool {
	return typeOf(err) == ErrTypeAuthentication
}

// Hint returns a one-line suggestion for the user, or "" when there is none
func Hint(err error) string {
	switch typeOf(err) {
	case ErrTypeConfiguration:
		return "check the ai section with 'attendsum config show'"
	case ErrTypeAuthentication:
		return "the endpoint rejected the API key; set ATTENDSUM_AI_API_KEY"
	case ErrTypeModelUnavailable:
		return "the configured ai.model is not served by this endpoint"
	case ErrTypeNetwork, ErrTypeTimeout:
		return "the AI endpoint did not answer; check ai.base_url"
	case ErrTypeRateLimit:
		return "the AI endpoint is rate limiting requests; try again later"
	}
	return ""
}
