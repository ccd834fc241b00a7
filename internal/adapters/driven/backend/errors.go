package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// RateLimitError is returned when the backend answers 429.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("backend: rate limited, retry at %s", e.RetryAt.Format(time.RFC3339))
}

// Unwrap lets errors.Is match domain.ErrBackendRejected.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrBackendRejected
}

// APIError is a non-2xx response or a success:false body.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: API error %d (URL: %s)", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("backend: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap lets errors.Is match domain.ErrBackendRejected, or domain.ErrNotFound for 404.
func (e *APIError) Unwrap() error {
	if e.StatusCode == 404 {
		return domain.ErrNotFound
	}
	return domain.ErrBackendRejected
}

// IsUnauthorized checks if the error indicates the session is not signed in.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}
