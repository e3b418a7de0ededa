// Package acquire turns unreliable model output into typed structured data.
//
// A request runs through four stages:
//   - Scheduler: tries candidate models in order under a per-attempt timeout
//     and a global budget, stopping early on fatal errors.
//   - Unwrap: pulls the completion text out of the provider envelope.
//   - Decode: parses the text through progressively more forgiving tiers.
//   - Assemble: combines everything into an Outcome with diagnostics.
//
// Nothing here keeps state between requests.
package acquire

import (
	"context"
	"encoding/json"
	"fmt"
)

// Known provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Candidate is one callable model variant with its invocation settings.
type Candidate struct {
	Provider        string          `mapstructure:"provider"`
	Model           string          `mapstructure:"model"`
	Temperature     *float64        `mapstructure:"temperature"`
	MaxOutputTokens int             `mapstructure:"max_output_tokens"`
	Thinking        string          `mapstructure:"thinking"`
	ResponseMIME    string          `mapstructure:"response_mime"`
	ResponseSchema  json.RawMessage `mapstructure:"-"`
}

// String returns "provider/model", or just the model for Gemini.
func (c Candidate) String() string {
	if c.Provider == "" || c.Provider == ProviderGemini {
		return c.Model
	}
	return fmt.Sprintf("%s/%s", c.Provider, c.Model)
}

// WithShape returns a copy of c carrying the response-shape hint.
func (c Candidate) WithShape(mime string, schema json.RawMessage) Candidate {
	c.ResponseMIME = mime
	c.ResponseSchema = schema
	return c
}

// Media is an inline binary attachment, e.g. a shelf photo.
type Media struct {
	MIMEType string
	Data     []byte
}

// Request is the prompt sent to every candidate of one acquisition.
type Request struct {
	System string
	Prompt string
	Media  *Media
}

// Invoker performs one model call and returns the raw provider envelope.
// Failures should be *resilience.ProviderError values so the scheduler can
// classify them.
type Invoker interface {
	Invoke(ctx context.Context, c Candidate, req Request) (Envelope, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, c Candidate, req Request) (Envelope, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, c Candidate, req Request) (Envelope, error) {
	return f(ctx, c, req)
}
