package metadata

import (
	"context"
	"fmt"
)

// Client is the interface for metadata providers. Implementations return
// the raw decoded payload; normalization into diffable records happens in
// the core package.
type Client interface {
	FetchMovie(ctx context.Context, id int) (map[string]interface{}, error)
	FetchShow(ctx context.Context, id int) (map[string]interface{}, error)
}

// AuthError means the provider rejected the configured credential. It is a
// fatal startup condition, not a per-item failure.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx provider response after retries are exhausted.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
