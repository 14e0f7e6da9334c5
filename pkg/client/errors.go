package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// TransportError is a failure below HTTP semantics: connection failure,
// timeout, unreadable or malformed body.
type TransportError struct {
	URL        string
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s error for %s: %v", e.ErrorClass, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx response from the catalogue.
type RemoteError struct {
	URL        string
	StatusCode int
	ErrorClass ErrorClass

	// Message is the decoded "detail" of the error body, or the status text.
	Message string

	// RetryAfter is the server's Retry-After hint, 0 when absent.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx responses will not change on retry
		return false
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode == http.StatusRequestTimeout:
		return ErrorClassNetwork
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// classifyError returns the class carried by a client error.
func classifyError(err error) ErrorClass {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.ErrorClass
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.ErrorClass
	}
	return ErrorClassNetwork
}

// newRemoteError builds a RemoteError from a non-2xx response.
func newRemoteError(url string, resp *http.Response, body []byte) *RemoteError {
	return &RemoteError{
		URL:        url,
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    errorMessage(resp, body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// errorMessage extracts a readable message from an error body.
// The catalogue answers errors as {"detail": "..."}.
func errorMessage(resp *http.Response, body []byte) string {
	var decoded struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && len(decoded.Detail) > 0 {
		var s string
		if err := json.Unmarshal(decoded.Detail, &s); err == nil {
			return s
		}
		return string(decoded.Detail)
	}
	if text := strings.TrimSpace(http.StatusText(resp.StatusCode)); text != "" {
		return text
	}
	return resp.Status
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
