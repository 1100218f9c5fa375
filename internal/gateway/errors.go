package gateway

import (
	"errors"
	"fmt"
)

// ErrRetryable matches every gateway failure that leaves the batch dirty for the next pass.
var ErrRetryable = errors.New("retryable sync failure")

// NetworkError covers timeouts, refused connections, non-2xx answers and bodies
// that could not be decoded.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrRetryable }

// RejectionError is a well-formed answer whose status is not "success".
type RejectionError struct {
	Op     string
	Status string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: server answered status %q", e.Op, e.Status)
}

func (e *RejectionError) Is(target error) bool { return target == ErrRetryable }
