package llm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("upstream rejected the API key")
	ErrInsufficientCredits = errors.New("upstream account has insufficient credits")
	ErrUpstreamThrottled   = errors.New("upstream rate limit reached")
)

// UpstreamError is any other non-success status returned by the upstream API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %d %s", e.Status, e.Body)
}

// NetworkError wraps transport-level failures (dial, DNS, timeout, broken
// stream) so callers can tell them apart from upstream HTTP errors.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
