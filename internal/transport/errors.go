// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Outbound failures fall into three classes the UI treats differently:
//
//   - ErrTimeout: the request exceeded the client timeout. The user gets a
//     retry-oriented message, never a server-driven one.
//   - ErrNoResponse: the connection failed before any response arrived.
//   - *APIError: the server responded with an error status; its message
//     (or structured field errors) is surfaced to the user.
var (
	// ErrTimeout classifies requests that exceeded the client timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrNoResponse classifies connection-level failures with no response.
	ErrNoResponse = errors.New("no response from server")
)

// TimeoutMessage is shown for ErrTimeout so users retry instead of reading
// a server error that never existed.
const TimeoutMessage = "Request timed out. Please try again."

// FieldError is one structured validation error from the server.
type FieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param,omitempty"`
}

// errorBody is the remote API's error payload: either a single message or
// a list of field-level validation errors.
type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// APIError is an error response from the remote API.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail())
}

// Detail returns the most specific human-readable description available:
// joined field-level messages, else the server message, else the HTTP
// status text.
func (e *APIError) Detail() string {
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, fe := range e.Fields {
			if fe.Msg != "" {
				msgs = append(msgs, fe.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, ", ")
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Unauthorized reports whether the server rejected the credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// UserMessage maps any transport-layer error to the string shown to the
// user: the timeout message for timeouts, the server's detail for API
// errors, and the caller's fallback for everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrTimeout) {
		return TimeoutMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return fallback
}
