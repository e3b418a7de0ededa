package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestNewStatusError_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{429, KindRetryable},
		{500, KindRetryable},
		{503, KindRetryable},
		{400, KindFatal},
		{401, KindFatal},
		{403, KindFatal},
		{404, KindFatal},
		{502, KindFatal},
		{504, KindFatal},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewStatusError("gemini", tt.status, "body")
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestKindOf_WrappedProviderError(t *testing.T) {
	inner := NewStatusError("gemini", 429, "quota")
	wrapped := eris.Wrap(inner, "invoke gemini-2.0-flash")
	assert.Equal(t, KindRetryable, KindOf(wrapped))

	fatal := fmt.Errorf("call: %w", NewFatalError("gemini", errors.New("GEMINI_API_KEY no configurada")))
	assert.Equal(t, KindFatal, KindOf(fatal))
}

func TestKindOf_ContextErrors(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("post: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindCanceled, KindOf(context.Canceled))
}

func TestKindOf_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestKindOf_TransportFailureIsRetryable(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	assert.Equal(t, KindRetryable, KindOf(err))
	assert.Equal(t, KindRetryable, KindOf(errors.New("unexpected EOF")))
}

func TestProviderError_Message(t *testing.T) {
	assert.Equal(t, "gemini 400: bad request", NewStatusError("gemini", 400, "bad request").Error())
	assert.Equal(t, "gemini 503", NewStatusError("gemini", 503, "").Error())
	assert.Equal(t, "anthropic: no key", NewFatalError("anthropic", errors.New("no key")).Error())
}

func TestProviderError_Unwrap(t *testing.T) {
	base := errors.New("root cause")
	err := NewFatalError("gemini", base)
	assert.True(t, errors.Is(err, base))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "retryable", KindRetryable.String())
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "fatal", KindFatal.String())
	assert.Equal(t, "canceled", KindCanceled.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid input: missing field")))
	assert.True(t, IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}))

	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		assert.True(t, IsTransient(errors.New(p)), p)
	}
}
