package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Sentinel errors used to classify submission failures. Availability errors
// are recovered by queueing and retry; rejections propagate to the caller.
var (
	ErrUnavailable = errors.New("orchestrator unavailable")
	ErrRejected    = errors.New("orchestrator rejected request")
)

// RejectionError carries the validation detail returned with a 4xx response.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("orchestrator rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("orchestrator rejected request (status %d): %s", e.StatusCode, e.Message)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

// IsUnavailable reports whether an error belongs to the availability class:
// transport failures, timeouts, and 5xx responses. These are the only errors
// that justify queueing a start request for later retry.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, ErrRejected) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsRejected reports whether an error is an application-level rejection that
// must never be queued.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

func classifyStatus(statusCode int, message string) error {
	switch {
	case statusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, statusCode)
	case statusCode >= 400:
		return &RejectionError{StatusCode: statusCode, Message: message}
	default:
		return fmt.Errorf("unexpected status %d", statusCode)
	}
}
