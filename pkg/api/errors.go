package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrCanceled is returned by requests that were abandoned by the caller.
var ErrCanceled = errors.New("request canceled")

// Kind classifies a failed request.
type Kind int

// These constants refer to the failure classes surfaced to the user.
const (
	KindOther Kind = iota
	// KindConnectivity means no response was received.
	KindConnectivity
	// KindValidation is an HTTP 400.
	KindValidation
	// KindNotFound is an HTTP 404.
	KindNotFound
	// KindServer is any HTTP status >= 500.
	KindServer
	// KindAPI is an error payload delivered with a success status.
	KindAPI
	// KindUnavailable means the circuit breaker rejected the request without sending it.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindAPI:
		return "api"
	case KindUnavailable:
		return "unavailable"
	}

	return "other"
}

const (
	defaultErrorMessage    = "An error occurred while executing the request"
	connectivityMessage    = "Failed to connect to the server. Check the connection."
	defaultAPIErrorMessage = "API error"
	unavailableMessage     = "The server is failing repeatedly. Requests are paused for a few seconds."
)

// Error is a classified request failure.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Notification is the message shown to the user for this failure.
func (e *Error) Notification() string {
	switch e.Kind {
	case KindConnectivity:
		return connectivityMessage
	case KindValidation:
		return "Incorrect data: " + e.Message
	case KindNotFound:
		return "Source not found: " + e.Message
	case KindServer:
		return "Server Error: " + e.Message
	case KindUnavailable:
		return unavailableMessage
	}

	return e.Message
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error

	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// errorBody is the shape of error responses: {error, message}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseErrorBody returns the error payload if data is an object whose "error"
// field is a string.
func parseErrorBody(data []byte) (*errorBody, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}

	raw, ok := fields["error"]
	if !ok {
		return nil, false
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body.Error); err != nil {
		return nil, false
	}

	if msg, ok := fields["message"]; ok {
		_ = json.Unmarshal(msg, &body.Message)
	}

	return &body, true
}

// statusError classifies a non-2xx response.
func statusError(status int, data []byte) *Error {
	e := &Error{Status: status, Message: defaultErrorMessage}

	if body, ok := parseErrorBody(data); ok {
		e.Code = body.Error
		if body.Message != "" {
			e.Message = body.Message
		}
	}

	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindValidation
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= http.StatusInternalServerError:
		e.Kind = KindServer
	default:
		e.Kind = KindOther
	}

	return e
}

// payloadError converts an error payload that arrived with a success status.
func payloadError(status int, body *errorBody) *Error {
	msg := body.Message
	if msg == "" {
		msg = defaultAPIErrorMessage
	}

	return &Error{Kind: KindAPI, Status: status, Code: body.Error, Message: msg}
}
