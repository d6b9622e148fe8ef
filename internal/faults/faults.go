// Package faults provides the standardized error taxonomy for pipeline
// failure handling: configuration errors fail fast, transient errors are
// retried, permanent call errors are not, and cache write errors never fail
// a request.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a fault for retry and propagation decisions.
type Kind string

// Fault kinds.
const (
	// KindConfiguration marks missing or invalid credentials. Fatal for the
	// affected stage, surfaced immediately, never retried.
	KindConfiguration Kind = "configuration"
	// KindTransient marks network failures, timeouts, rate limits and 5xx
	// responses. Retried with backoff up to the attempt bound.
	KindTransient Kind = "transient"
	// KindPermanentCall marks bad requests, auth failures, quota exhaustion
	// and unparseable structured responses. Not retried.
	KindPermanentCall Kind = "permanent_call"
	// KindCacheWrite marks storage I/O errors on cache writes. Logged and
	// swallowed: the pipeline proceeds with the in-memory result.
	KindCacheWrite Kind = "cache_write"
)

// Fault is a classified pipeline error.
type Fault struct {
	Kind    Kind
	Op      string // logical operation, e.g. "search.query", "llm.generate"
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// Retryable reports whether the fault may be retried.
func (f *Fault) Retryable() bool {
	return f.Kind == KindTransient
}

// Configuration creates a fatal configuration fault.
func Configuration(op, message string) *Fault {
	return &Fault{Kind: KindConfiguration, Op: op, Message: message}
}

// Transient creates a retryable fault.
func Transient(op, message string, cause error) *Fault {
	return &Fault{Kind: KindTransient, Op: op, Message: message, Cause: cause}
}

// Permanent creates a non-retryable call fault.
func Permanent(op, message string, cause error) *Fault {
	return &Fault{Kind: KindPermanentCall, Op: op, Message: message, Cause: cause}
}

// CacheWrite creates a cache write fault.
func CacheWrite(op string, cause error) *Fault {
	return &Fault{Kind: KindCacheWrite, Op: op, Message: "cache write failed", Cause: cause}
}

// Timeout creates a transient fault for an exhausted call deadline.
func Timeout(op string, cause error) *Fault {
	return &Fault{Kind: KindTransient, Op: op, Message: "deadline exceeded", Cause: cause}
}

// KindOf returns the fault kind of err, or "" if err carries no Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsRetryable reports whether err should be retried. Unclassified errors
// are treated as transient so an unknown I/O failure still gets its bounded
// retries; classification errs on the side of retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return true
}

// IsConfiguration reports whether err is a configuration fault.
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}

// FromStatusCode classifies an HTTP response status into a fault.
// Returns nil for 2xx.
func FromStatusCode(op string, status int) *Fault {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return Transient(op, fmt.Sprintf("rate limited (HTTP %d)", status), nil)
	case status >= 500:
		return Transient(op, fmt.Sprintf("server error (HTTP %d)", status), nil)
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusPaymentRequired:
		return Permanent(op, fmt.Sprintf("auth or quota failure (HTTP %d)", status), nil)
	default:
		return Permanent(op, fmt.Sprintf("bad request (HTTP %d)", status), nil)
	}
}
