package github

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrAuthentication is returned on HTTP 401. It is never retried and
	// must abort the whole run.
	ErrAuthentication = errors.New("github authentication failed")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassAuth represents 401 authentication failures.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassRateLimit represents quota exhaustion (403 with rate limit
	// text, or a GraphQL rate-limit error).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassHTTP represents other non-200 HTTP statuses.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassGraphQL represents GraphQL-level errors in a 200 response.
	ErrorClassGraphQL ErrorClass = "graphql"

	// ErrorClassNetwork represents transport-level failures (connection
	// errors, timeouts).
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents a GitHub API error with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("github %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classOf extracts the error class from an error chain.
// Unclassified errors are treated as network failures.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// isRateLimitText reports whether an error body or message indicates
// quota exhaustion. GitHub phrases it "API rate limit exceeded".
func isRateLimitText(s string) bool {
	return strings.Contains(strings.ToLower(s), "rate limit")
}
