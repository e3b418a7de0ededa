// Package resilience classifies failures of outbound provider calls into a
// small closed set of kinds that callers can switch over.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind is the classification of a failed outbound call.
type Kind int

const (
	// KindRetryable means a different candidate may succeed (429, 500, 503,
	// network failures).
	KindRetryable Kind = iota
	// KindTimeout means the per-attempt deadline fired before a response.
	KindTimeout
	// KindFatal means switching candidates will not help (bad request,
	// auth, missing credentials).
	KindFatal
	// KindCanceled means the caller's own context ended.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "fatal"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ProviderError is the error transports return for a non-success call. The
// kind is fixed when the error is built, so classification never depends on
// message text.
type ProviderError struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": " + e.Kind.String()
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewStatusError builds a ProviderError from an HTTP status, classifying it
// with RetryableStatus.
func NewStatusError(provider string, statusCode int, body string) *ProviderError {
	kind := KindFatal
	if RetryableStatus(statusCode) {
		kind = KindRetryable
	}
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewFatalError marks err as fatal for provider, e.g. a missing credential.
func NewFatalError(provider string, err error) *ProviderError {
	return &ProviderError{Kind: KindFatal, Provider: provider, Err: err}
}

// RetryableStatus reports whether an HTTP status is worth trying on another
// candidate model.
func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// KindOf classifies err. ProviderError kinds win; context errors map to
// timeout or canceled; everything else is a transport failure and therefore
// retryable.
func KindOf(err error) Kind {
	if err == nil {
		return KindRetryable
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindRetryable
}

// IsTransient returns true if the error looks like a network-level failure
// (timeouts, connection resets, DNS) rather than a provider response.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
