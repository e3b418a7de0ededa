// Package provider adapts the model clients to the acquisition engine.
package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/resilience"
	"github.com/vinylscout/vinylscout-api/pkg/anthropic"
	"github.com/vinylscout/vinylscout-api/pkg/gemini"
)

// GeminiShape locates the completion in a generateContent envelope.
var GeminiShape = acquire.EnvelopeShape{
	Provider:          acquire.ProviderGemini,
	TextPath:          "candidates.0.content.parts.0.text",
	FinishPath:        "candidates.0.finishReason",
	BlockPath:         "promptFeedback.blockReason",
	TruncationReasons: []string{"MAX_TOKENS"},
}

// AnthropicShape locates the completion in a Messages response.
var AnthropicShape = acquire.EnvelopeShape{
	Provider:          acquire.ProviderAnthropic,
	TextPath:          `content.#(type=="text").text`,
	FinishPath:        "stop_reason",
	TruncationReasons: []string{"max_tokens"},
}

// defaultAnthropicMaxTokens is used when a candidate sets no cap; the
// Messages API requires one.
const defaultAnthropicMaxTokens = 1024

// Router dispatches each candidate to the client for its provider.
type Router struct {
	gemini    gemini.Client
	anthropic anthropic.Client
}

// NewRouter returns a router. A nil client makes candidates of that provider
// fail fatally.
func NewRouter(g gemini.Client, a anthropic.Client) *Router {
	return &Router{gemini: g, anthropic: a}
}

// Supports reports whether c names a provider with a configured client.
func (r *Router) Supports(c acquire.Candidate) bool {
	switch c.Provider {
	case "", acquire.ProviderGemini:
		return r.gemini != nil
	case acquire.ProviderAnthropic:
		return r.anthropic != nil
	default:
		return false
	}
}

// Usable returns the candidates r can call, in order.
func (r *Router) Usable(candidates []acquire.Candidate) []acquire.Candidate {
	out := make([]acquire.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if r.Supports(c) {
			out = append(out, c)
		}
	}
	return out
}

// Invoke implements acquire.Invoker.
func (r *Router) Invoke(ctx context.Context, c acquire.Candidate, req acquire.Request) (acquire.Envelope, error) {
	switch c.Provider {
	case "", acquire.ProviderGemini:
		return r.invokeGemini(ctx, c, req)
	case acquire.ProviderAnthropic:
		return r.invokeAnthropic(ctx, c, req)
	default:
		return acquire.Envelope{}, resilience.NewFatalError(c.Provider, eris.Errorf("unknown provider %q", c.Provider))
	}
}

func (r *Router) invokeGemini(ctx context.Context, c acquire.Candidate, req acquire.Request) (acquire.Envelope, error) {
	if r.gemini == nil {
		return acquire.Envelope{}, resilience.NewFatalError(gemini.Provider, gemini.ErrNoAPIKey)
	}

	raw, err := r.gemini.GenerateContent(ctx, c.Model, GeminiRequest(c, req))
	if err != nil {
		return acquire.Envelope{}, err
	}

	if usage := gjson.GetBytes(raw, "usageMetadata"); usage.Exists() {
		zap.L().Debug("gemini: usage",
			zap.String("model", c.Model),
			zap.Int64("prompt_tokens", usage.Get("promptTokenCount").Int()),
			zap.Int64("output_tokens", usage.Get("candidatesTokenCount").Int()),
			zap.Int64("thought_tokens", usage.Get("thoughtsTokenCount").Int()),
		)
	}
	return acquire.Envelope{Shape: GeminiShape, Raw: raw}, nil
}

// GeminiRequest builds the generateContent body for one candidate. The
// prompt text comes first, then any inline media.
func GeminiRequest(c acquire.Candidate, req acquire.Request) *gemini.GenerateRequest {
	parts := []gemini.Part{{Text: req.Prompt}}
	if req.Media != nil {
		parts = append(parts, gemini.Part{InlineData: &gemini.InlineData{
			MimeType: req.Media.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Media.Data),
		}})
	}

	cfg := &gemini.GenerationConfig{
		Temperature:      c.Temperature,
		ResponseMimeType: c.ResponseMIME,
		ResponseSchema:   c.ResponseSchema,
		ThinkingConfig:   gemini.ThinkingFor(c.Model, c.Thinking),
	}
	if c.MaxOutputTokens > 0 {
		n := c.MaxOutputTokens
		cfg.MaxOutputTokens = &n
	}

	out := &gemini.GenerateRequest{
		Contents:         []gemini.Content{{Role: "user", Parts: parts}},
		GenerationConfig: cfg,
	}
	if req.System != "" {
		out.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: req.System}}}
	}
	return out
}

func (r *Router) invokeAnthropic(ctx context.Context, c acquire.Candidate, req acquire.Request) (acquire.Envelope, error) {
	if r.anthropic == nil {
		return acquire.Envelope{}, resilience.NewFatalError(anthropic.Provider, anthropic.ErrNoAPIKey)
	}

	msg := anthropic.Message{Role: "user", Content: req.Prompt}
	if req.Media != nil {
		msg.Images = []anthropic.Image{{MediaType: req.Media.MIMEType, Data: req.Media.Data}}
	}
	maxTokens := int64(c.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := r.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{msg},
		Temperature: c.Temperature,
	})
	if err != nil {
		return acquire.Envelope{}, err
	}
	resp.Usage.LogCost(c.Model, "acquire")

	raw, err := json.Marshal(resp)
	if err != nil {
		return acquire.Envelope{}, resilience.NewFatalError(anthropic.Provider, eris.Wrap(err, "encode envelope"))
	}
	return acquire.Envelope{Shape: AnthropicShape, Raw: raw}, nil
}
