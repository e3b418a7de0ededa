// Package intent turns a free-text listening request into catalog filters.
package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
)

// Energy levels the model may choose from.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Intent is the structured reading of a request, in Discogs vocabulary.
type Intent struct {
	Genres          []string `json:"genres"`
	Styles          []string `json:"styles"`
	YearStart       *int     `json:"year_start"`
	YearEnd         *int     `json:"year_end"`
	MoodDescription string   `json:"mood_description"`
	Energy          string   `json:"energy"`
	Keywords        []string `json:"keywords"`
}

// Schema is the shape an intent response must have.
var Schema = acquire.Schema{
	Name: "intent",
	Fields: []acquire.Field{
		{Name: "genres", Kind: acquire.FieldStringList, Required: true},
		{Name: "styles", Kind: acquire.FieldStringList, Required: true},
		{Name: "year_start", Kind: acquire.FieldInteger, Nullable: true},
		{Name: "year_end", Kind: acquire.FieldInteger, Nullable: true},
		{Name: "mood_description", Kind: acquire.FieldString, Required: true},
		{Name: "energy", Kind: acquire.FieldEnum, Required: true, Enum: []string{EnergyLow, EnergyMedium, EnergyHigh}},
		{Name: "keywords", Kind: acquire.FieldStringList, Required: true},
	},
}

// ErrNotConfigured is the failure message when no model can be called.
const ErrNotConfigured = "GEMINI_API_KEY not configured"

// Service analyzes listening requests.
type Service struct {
	engine     *acquire.Engine
	candidates []acquire.Candidate
}

// NewService creates a Service. Every candidate gets the JSON response hint
// for Schema.
func NewService(engine *acquire.Engine, candidates []acquire.Candidate) *Service {
	hinted := make([]acquire.Candidate, len(candidates))
	schema := Schema.ResponseSchema()
	for i, c := range candidates {
		hinted[i] = c.WithShape("application/json", schema)
	}
	return &Service{engine: engine, candidates: hinted}
}

// Analyze reads the intent behind query. The outcome is strict: callers
// should treat any failure, including an empty response, as an error.
func (s *Service) Analyze(ctx context.Context, query string) acquire.Outcome[Intent] {
	query = strings.TrimSpace(query)
	if query == "" {
		return acquire.Failed[Intent](acquire.FailureInput, "Missing or empty 'query' parameter")
	}
	if len(s.candidates) == 0 {
		return acquire.Failed[Intent](acquire.FailureConfig, ErrNotConfigured)
	}

	return acquire.Acquire[Intent](ctx, s.engine, acquire.Job{
		Candidates: s.candidates,
		Request: acquire.Request{
			System: systemPrompt,
			Prompt: fmt.Sprintf("Petición del usuario: %q", query),
		},
		Schema: Schema,
	})
}
