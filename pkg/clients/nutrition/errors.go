package nutrition

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned by New when neither an API key nor an email and PIN pair is set.
	ErrMissingCredentials = errors.New("missing credentials: provide an api key or an email and pin")

	// ErrUnsupportedOperation is returned when an accessor does not apply to the client's auth mode.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrMissingCountryContext is returned when no country id was supplied and none could be detected.
	ErrMissingCountryContext = errors.New("country id is required")

	// ErrAuthenticationFailed matches every *AuthError.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrFeedNotFound matches every *FeedNotFoundError.
	ErrFeedNotFound = errors.New("feed not found")
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed: %d - %s", e.Op, e.Status, e.Body)
}

// AuthError is a failed login exchange. Status is zero when the request never got a response
// or when the response body was malformed.
type AuthError struct {
	Status int
	Body   string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case e.Reason != "":
		return fmt.Sprintf("authentication failed: %s: %s", e.Reason, e.Body)
	default:
		return fmt.Sprintf("authentication failed: %d - %s", e.Status, e.Body)
	}
}

func (e *AuthError) Is(target error) bool { return target == ErrAuthenticationFailed }

func (e *AuthError) Unwrap() error { return e.Err }

// FeedNotFoundError is a failed single-feed lookup.
type FeedNotFoundError struct {
	FeedID string
	*HTTPError
}

func (e *FeedNotFoundError) Error() string {
	return fmt.Sprintf("feed %s not found: %d - %s", e.FeedID, e.Status, e.Body)
}

func (e *FeedNotFoundError) Is(target error) bool { return target == ErrFeedNotFound }

func (e *FeedNotFoundError) Unwrap() error { return e.HTTPError }

// StatusCode extracts the backend HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}
	return 0
}
