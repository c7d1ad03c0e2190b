package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by catalog clients.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found in catalog")

	// ErrRateLimited indicates the catalog throttled the request.
	ErrRateLimited = errors.New("catalog rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with catalog")

	// ErrInvalidResponse indicates a body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from catalog")

	// ErrUnknownProvider is returned by NewProvider for unregistered names.
	ErrUnknownProvider = errors.New("unknown provider")
)

// APIError represents an unexpected HTTP status from a catalog.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
