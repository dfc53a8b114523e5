package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind categorizes a failed request
type ErrorKind string

const (
	// ErrKindNetwork means no response arrived
	ErrKindNetwork ErrorKind = "network"

	// ErrKindRequest means the request could not be built
	ErrKindRequest ErrorKind = "request"

	// ErrKindUnauthorized is a 401
	ErrKindUnauthorized ErrorKind = "unauthorized"

	// ErrKindNotFound is a 404, usually no data for the filters
	ErrKindNotFound ErrorKind = "not_found"

	// ErrKindClient is any other 4xx
	ErrKindClient ErrorKind = "client"

	// ErrKindUnavailable is a 503 while the backend initializes
	ErrKindUnavailable ErrorKind = "unavailable"

	// ErrKindServer is any other 5xx
	ErrKindServer ErrorKind = "server"

	// ErrKindDecode means the response body was not understood
	ErrKindDecode ErrorKind = "decode"

	// ErrKindUnknown covers anything else
	ErrKindUnknown ErrorKind = "unknown"
)

// User-facing messages
const (
	MsgNotFound    = "No data found for the selected filters."
	MsgUnavailable = "Server is still initializing. Please try again in a moment."
	MsgNoResponse  = "No response from server. Please check your connection."
	MsgUnexpected  = "An unexpected error occurred"
)

// Error is a failed API call
type Error struct {
	// Kind categorizes the failure
	Kind ErrorKind `json:"kind"`

	// Message is safe to show to the user
	Message string `json:"message"`

	// Path is the request path
	Path string `json:"path,omitempty"`

	// StatusCode is set when a response arrived
	StatusCode int `json:"status_code,omitempty"`

	// PromptLogin is set on a 401 that should send the user to log in again
	PromptLogin bool `json:"prompt_login,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("type=%s", e.Kind))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func newError(kind ErrorKind, path, message string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Cause: cause}
}

// fromResponse maps a non-2xx response body to an Error. A "detail" string
// from the backend takes precedence over the generic status messages.
func fromResponse(status int, path string, body []byte) *Error {
	e := &Error{StatusCode: status, Path: path}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = ErrKindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = ErrKindNotFound
	case status == http.StatusServiceUnavailable:
		e.Kind = ErrKindUnavailable
	case status >= 500:
		e.Kind = ErrKindServer
	case status >= 400:
		e.Kind = ErrKindClient
	default:
		e.Kind = ErrKindUnknown
	}

	if detail := detailOf(body); detail != "" {
		e.Message = detail
		return e
	}

	switch status {
	case http.StatusNotFound:
		e.Message = MsgNotFound
	case http.StatusServiceUnavailable:
		e.Message = MsgUnavailable
	default:
		e.Message = fmt.Sprintf("Server error: %d", status)
	}
	return e
}

func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Message returns the user-facing text for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return fmt.Sprintf("Request error: %s", err.Error())
}

// KindOf returns the kind of err, ErrKindUnknown for foreign errors
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrKindUnknown
}

// IsUnauthorized reports a 401
func IsUnauthorized(err error) bool {
	return KindOf(err) == ErrKindUnauthorized
}

// IsNotFound reports a 404
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsNetworkError reports a request that got no response
func IsNetworkError(err error) bool {
	return KindOf(err) == ErrKindNetwork
}

// IsServerError reports any 5xx
func IsServerError(err error) bool {
	k := KindOf(err)
	return k == ErrKindServer || k == ErrKindUnavailable
}

// NeedsLogin reports a 401 that should send the user back to log in
func NeedsLogin(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.PromptLogin
}
