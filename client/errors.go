package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors surfaced by the client.
var (
	// ErrSessionExpired means the access token was rejected and the refresh
	// attempt failed; the local session has been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotAuthenticated means an operation that needs a session was called
	// without one.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a structured error parsed from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// errorEnvelope mirrors the server's error response format.
type errorEnvelope struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// parseResponseError reads the body of a non-2xx response and translates it
// into an APIError. Structured envelopes keep their code and message; anything
// else becomes a generic error carrying the status and raw body. The body is
// fully consumed and closed.
func parseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("failed to read error body: %v", err),
		}
	}

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Fields:  envelope.Error.Fields,
		}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: string(body),
	}
}

// retryableStatus reports whether a response status is eligible for the
// bounded-retry helper: 5xx and 429, never any other 4xx.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
