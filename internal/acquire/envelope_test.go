package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var geminiTestShape = EnvelopeShape{
	Provider:          ProviderGemini,
	TextPath:          "candidates.0.content.parts.0.text",
	FinishPath:        "candidates.0.finishReason",
	BlockPath:         "promptFeedback.blockReason",
	TruncationReasons: []string{"MAX_TOKENS"},
}

func geminiEnvelope(raw string) Envelope {
	return Envelope{Shape: geminiTestShape, Raw: []byte(raw)}
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Payload
	}{
		{
			name: "text completion",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"{\"a\":1}"}]},"finishReason":"STOP"}]}`,
			want: Payload{Text: `{"a":1}`, FinishReason: "STOP"},
		},
		{
			name: "truncated completion",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"{\"albums\":["}]},"finishReason":"MAX_TOKENS"}]}`,
			want: Payload{Text: `{"albums":[`, FinishReason: "MAX_TOKENS", Truncated: true},
		},
		{
			name: "no text with normal completion",
			raw:  `{"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`,
			want: Payload{FinishReason: "STOP", Empty: true},
		},
		{
			name: "whitespace text",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"  \n "}]},"finishReason":"STOP"}]}`,
			want: Payload{FinishReason: "STOP", Empty: true},
		},
		{
			name: "null text",
			raw:  `{"candidates":[{"content":{"parts":[{"text":null}]}}]}`,
			want: Payload{Empty: true},
		},
		{
			name: "blocked prompt",
			raw:  `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			want: Payload{FinishReason: "SAFETY", Empty: true},
		},
		{
			name: "structured value",
			raw:  `{"candidates":[{"content":{"parts":[{"text":{"genres":["Jazz"]}}]},"finishReason":"STOP"}]}`,
			want: Payload{Structured: []byte(`{"genres":["Jazz"]}`), FinishReason: "STOP"},
		},
		{
			name: "scalar value",
			raw:  `{"candidates":[{"content":{"parts":[{"text":42}]}}]}`,
			want: Payload{Text: "42"},
		},
		{
			name: "not json",
			raw:  `<html>Bad Gateway</html>`,
			want: Payload{FinishReason: FinishInvalidEnvelope, Empty: true},
		},
		{
			name: "empty body",
			raw:  ``,
			want: Payload{FinishReason: FinishInvalidEnvelope, Empty: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unwrap(geminiEnvelope(tt.raw))
			assert.Equal(t, tt.want.Text, got.Text)
			assert.Equal(t, string(tt.want.Structured), string(got.Structured))
			assert.Equal(t, tt.want.FinishReason, got.FinishReason)
			assert.Equal(t, tt.want.Truncated, got.Truncated)
			assert.Equal(t, tt.want.Empty, got.Empty)
		})
	}
}

func TestUnwrap_AnthropicShape(t *testing.T) {
	shape := EnvelopeShape{
		Provider:          ProviderAnthropic,
		TextPath:          `content.#(type=="text").text`,
		FinishPath:        "stop_reason",
		TruncationReasons: []string{"max_tokens"},
	}
	raw := `{"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"[]"}],"stop_reason":"max_tokens"}`

	got := Unwrap(Envelope{Shape: shape, Raw: []byte(raw)})

	assert.Equal(t, "[]", got.Text)
	assert.Equal(t, "max_tokens", got.FinishReason)
	assert.True(t, got.Truncated)
	assert.False(t, got.Empty)
}
