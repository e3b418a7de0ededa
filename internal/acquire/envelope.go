package acquire

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// EnvelopeShape tells Unwrap where a provider keeps its completion.
type EnvelopeShape struct {
	Provider string
	// TextPath is a gjson path to the first completion's text.
	TextPath string
	// FinishPath is a gjson path to the completion reason.
	FinishPath string
	// BlockPath is consulted when FinishPath is absent, e.g. a prompt that
	// was rejected before any candidate was produced.
	BlockPath string
	// TruncationReasons are completion reasons that mean the output was cut.
	TruncationReasons []string
}

// Envelope is a provider response body together with its shape.
type Envelope struct {
	Shape EnvelopeShape
	Raw   []byte
}

// Payload is the content extracted from an envelope.
type Payload struct {
	// Text is the completion text. Empty when Structured is set.
	Text string
	// Structured holds the completion when the provider already returned a
	// JSON object or array instead of a string.
	Structured json.RawMessage
	// FinishReason is the provider's completion reason, if reported.
	FinishReason string
	// Truncated is set when FinishReason signals a length cut-off.
	Truncated bool
	// Empty is set when the call succeeded but carried no usable content.
	Empty bool
}

// FinishInvalidEnvelope is reported when the envelope is not JSON at all.
const FinishInvalidEnvelope = "invalid_envelope"

// Unwrap extracts the payload from env. A missing completion is an empty
// payload, never an error.
func Unwrap(env Envelope) Payload {
	if !gjson.ValidBytes(env.Raw) {
		return Payload{Empty: true, FinishReason: FinishInvalidEnvelope}
	}

	var p Payload
	if env.Shape.FinishPath != "" {
		p.FinishReason = gjson.GetBytes(env.Raw, env.Shape.FinishPath).String()
	}
	if p.FinishReason == "" && env.Shape.BlockPath != "" {
		p.FinishReason = gjson.GetBytes(env.Raw, env.Shape.BlockPath).String()
	}
	p.Truncated = p.FinishReason != "" && slices.Contains(env.Shape.TruncationReasons, p.FinishReason)

	res := gjson.GetBytes(env.Raw, env.Shape.TextPath)
	switch {
	case !res.Exists(), res.Type == gjson.Null:
		p.Empty = true
	case res.IsObject(), res.IsArray():
		p.Structured = json.RawMessage(res.Raw)
	case res.Type == gjson.String:
		p.Text = res.String()
		if strings.TrimSpace(p.Text) == "" {
			p.Text = ""
			p.Empty = true
		}
	default:
		p.Text = res.Raw
	}
	return p
}
