package graphapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure so callers can branch on data
// instead of parsing messages.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindRateLimited ErrorKind = "rate_limited"
	KindHTTP        ErrorKind = "http"
	KindDecode      ErrorKind = "decode"
	KindRemote      ErrorKind = "remote"
)

const maxErrorBody = 500

// APIError carries the status code, a truncated response body and the
// originating query for diagnostics.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Body       string
	Query      string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("graph api: %s (%s)", e.Message, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func newAPIError(kind ErrorKind, message string, status int, body, query string) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return &APIError{Kind: kind, Message: message, StatusCode: status, Body: body, Query: query}
}

// KindOf extracts the error kind, or empty for non-API errors.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
