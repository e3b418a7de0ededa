// Package recommend picks albums from a pre-filtered collection for a
// listening request.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
)

// Album is one record of the user's collection, already filtered by genre.
type Album struct {
	ID     string   `json:"id" validate:"required"`
	Artist string   `json:"artist"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Styles []string `json:"styles,omitempty"`
}

// Recommendation is one chosen album with the model's reasoning.
type Recommendation struct {
	AlbumID string `json:"album_id"`
	Reason  string `json:"reason"`
}

// Result is the smart-recommend response body. Error is set when the
// acquisition failed; the other fields are then empty but present.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	MoodSummary     string           `json:"mood_summary"`
	Error           string           `json:"error,omitempty"`
}

// Schema is the shape a recommendation response must have.
var Schema = acquire.Schema{
	Name: "recommend",
	Fields: []acquire.Field{
		{Name: "mood_summary", Kind: acquire.FieldString, Required: true},
	},
	Records: &acquire.RecordSet{
		Key: "recommendations",
		Fields: []acquire.Field{
			{Name: "album_id", Kind: acquire.FieldString, Required: true},
			{Name: "reason", Kind: acquire.FieldString, Required: true},
		},
	},
}

// ErrNotConfigured is the failure message when no model can be called.
const ErrNotConfigured = "GEMINI_API_KEY not configured"

// Service produces recommendations.
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

// Recommend asks the model to choose among albums. The returned outcome
// carries the raw decoded value; use Shape to build the response body.
func (s *Service) Recommend(ctx context.Context, query string, albums []Album) acquire.Outcome[Result] {
	query = strings.TrimSpace(query)
	if query == "" || len(albums) == 0 {
		return acquire.Failed[Result](acquire.FailureInput, "Missing 'query' or 'albums' array")
	}
	if len(s.candidates) == 0 {
		return acquire.Failed[Result](acquire.FailureConfig, ErrNotConfigured)
	}

	zap.L().Info("recommend: start", zap.Int("albums", len(albums)))
	return acquire.Acquire[Result](ctx, s.engine, acquire.Job{
		Candidates: s.candidates,
		Request: acquire.Request{
			System: systemPrompt,
			Prompt: userPrompt(query, albums),
		},
		Schema: Schema,
	})
}

// Shape turns an outcome into the response body. Failures degrade to an
// empty result carrying the error, and recommendations for albums that were
// not offered are removed.
func Shape(out acquire.Outcome[Result], albums []Album) Result {
	if !out.OK() {
		msg := "recommendation failed"
		if out.Failure != nil {
			msg = out.Failure.Message
		}
		return Result{Recommendations: []Recommendation{}, Error: msg}
	}
	if out.Empty {
		return Result{Recommendations: []Recommendation{}, Error: "Empty response from Gemini"}
	}

	known := make(map[string]struct{}, len(albums))
	for _, a := range albums {
		known[a.ID] = struct{}{}
	}

	res := out.Decoded.Value
	kept := make([]Recommendation, 0, len(res.Recommendations))
	for _, r := range res.Recommendations {
		if _, ok := known[r.AlbumID]; !ok {
			zap.L().Debug("recommend: dropping unknown album", zap.String("album_id", r.AlbumID))
			continue
		}
		kept = append(kept, r)
	}
	res.Recommendations = kept
	return res
}

// albumLine renders one album as "n. [id] artist — title (year) | genres | styles".
func albumLine(i int, a Album) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. [%s] %s — %s", i+1, a.ID, a.Artist, a.Title)
	if a.Year != 0 {
		fmt.Fprintf(&b, " (%d)", a.Year)
	}
	if len(a.Genres) > 0 {
		b.WriteString(" | " + strings.Join(a.Genres, ", "))
	}
	if len(a.Styles) > 0 {
		b.WriteString(" | " + strings.Join(a.Styles, ", "))
	}
	return b.String()
}

func userPrompt(query string, albums []Album) string {
	lines := make([]string, len(albums))
	for i, a := range albums {
		lines[i] = albumLine(i, a)
	}
	return fmt.Sprintf("Petición del usuario: %q\n\nÁlbumes disponibles en su colección (%d discos pre-filtrados):\n%s\n\nElige los mejores para esta ocasión.",
		query, len(albums), strings.Join(lines, "\n"))
}
