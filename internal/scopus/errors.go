package scopus

import (
	"errors"
	"fmt"
)

// Common errors returned by the Scopus client.
var (
	// ErrNotFound indicates the remote reported RESOURCE_NOT_FOUND for the
	// requested ids. Callers treat this as "no data", not a failure.
	ErrNotFound = errors.New("resource not found in Scopus")

	// ErrRetriesExhausted indicates too many consecutive transient failures.
	ErrRetriesExhausted = errors.New("consecutive transient Scopus failures exceeded retry limit")

	// ErrInvalidResponse indicates an unexpected or malformed API response.
	ErrInvalidResponse = errors.New("invalid response from Scopus")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Scopus")
)

// APIError represents a hard error from the Scopus API: a non-success HTTP
// status outside the transient family, or an error-bearing payload.
type APIError struct {
	StatusCode int
	Code       string // service-error statusCode, e.g. "INVALID_INPUT"
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Scopus API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("Scopus API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "RESOURCE_NOT_FOUND"
	}
	return false
}
