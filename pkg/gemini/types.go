package gemini

import (
	"encoding/json"
	"strings"
)

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a role plus its parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text or inline-data part.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is base64-encoded binary content such as an image.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig holds sampling and output-shape parameters.
type GenerationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
	ThinkingConfig   *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig controls reasoning. Gemini 3 models take a level; 2.5
// models take a token budget, where 0 disables thinking.
type ThinkingConfig struct {
	ThinkingBudget *int   `json:"thinkingBudget,omitempty"`
	ThinkingLevel  string `json:"thinkingLevel,omitempty"`
}

// Thinking overrides accepted by ThinkingFor.
const (
	ThinkingAuto = ""
	// ThinkingNone sends no thinking config at all.
	ThinkingNone = "none"
	// ThinkingOff sends a zero thinking budget.
	ThinkingOff = "off"
)

// ThinkingFor returns the thinking config for model. With ThinkingAuto the
// model family decides: gemini-3 gets the minimal level, gemini-2.5 a zero
// budget, and older models nothing since they reject the field. Any other
// override is sent as a thinking level.
func ThinkingFor(model, override string) *ThinkingConfig {
	switch override {
	case ThinkingNone:
		return nil
	case ThinkingOff:
		zero := 0
		return &ThinkingConfig{ThinkingBudget: &zero}
	case ThinkingAuto:
	default:
		return &ThinkingConfig{ThinkingLevel: override}
	}

	switch {
	case strings.Contains(model, "gemini-3"):
		return &ThinkingConfig{ThinkingLevel: "minimal"}
	case strings.Contains(model, "gemini-2.5"):
		zero := 0
		return &ThinkingConfig{ThinkingBudget: &zero}
	default:
		return nil
	}
}

// GenerateResponse is the generateContent envelope. The engine reads the
// raw bytes by path; this type serves callers that want typed access.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// PromptFeedback reports a prompt rejected before generation.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata is token accounting for one call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text returns the first part text of the first candidate, if any.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}
