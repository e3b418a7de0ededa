package recommend

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/acquire/mocks"
	"github.com/vinylscout/vinylscout-api/internal/provider"
	"github.com/vinylscout/vinylscout-api/internal/resilience"
)

var collection = []Album{
	{ID: "a1", Artist: "Stan Getz", Title: "Getz/Gilberto", Year: 1964, Genres: []string{"Jazz"}, Styles: []string{"Bossa Nova"}},
	{ID: "a2", Artist: "Slowdive", Title: "Souvlaki", Genres: []string{"Rock"}},
	{ID: "a3", Artist: "Nick Drake", Title: "Pink Moon"},
}

func geminiEnvelope(t *testing.T, text, finish string) acquire.Envelope {
	t.Helper()
	b, err := json.Marshal(text)
	require.NoError(t, err)
	raw := `{"candidates":[{"content":{"parts":[{"text":` + string(b) + `}]},"finishReason":"` + finish + `"}]}`
	return acquire.Envelope{Shape: provider.GeminiShape, Raw: []byte(raw)}
}

func newService(inv acquire.Invoker) *Service {
	e := acquire.NewEngine(inv, acquire.WithTimeouts(time.Second, 5*time.Second))
	return NewService(e, []acquire.Candidate{{Model: "gemini-2.0-flash"}})
}

func TestRecommend_FiltersUnknownAlbums(t *testing.T) {
	t.Parallel()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.MatchedBy(func(req acquire.Request) bool {
		return strings.Contains(req.Prompt, "1. [a1] Stan Getz — Getz/Gilberto (1964) | Jazz | Bossa Nova") &&
			strings.Contains(req.Prompt, "3. [a3] Nick Drake — Pink Moon\n") &&
			strings.Contains(req.Prompt, "(3 discos pre-filtrados)")
	})).Return(geminiEnvelope(t, `{"recommendations":[{"album_id":"a1","reason":"suave"},{"album_id":"zz","reason":"inventado"},{"album_id":"a3","reason":"íntimo"}],"mood_summary":"Jazz suave"}`, "STOP"), nil).Once()

	out := newService(inv).Recommend(context.Background(), "cena romántica", collection)
	res := Shape(out, collection)

	assert.Empty(t, res.Error)
	assert.Equal(t, "Jazz suave", res.MoodSummary)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "a1", res.Recommendations[0].AlbumID)
	assert.Equal(t, "a3", res.Recommendations[1].AlbumID)
}

func TestRecommend_TruncatedKeepsCompleteRecords(t *testing.T) {
	t.Parallel()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(geminiEnvelope(t, `{"recommendations":[{"album_id":"a1","reason":"suave"},{"album_id":"a2","rea`, "MAX_TOKENS"), nil).Once()

	out := newService(inv).Recommend(context.Background(), "cena", collection)

	require.True(t, out.OK())
	assert.Equal(t, acquire.TierRepaired, out.Decoded.Tier)
	res := Shape(out, collection)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "a1", res.Recommendations[0].AlbumID)
	assert.Empty(t, res.MoodSummary)
}

func TestRecommend_FailureDegradesToEmptyResult(t *testing.T) {
	t.Parallel()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(acquire.Envelope{}, resilience.NewStatusError("gemini", 503, "overloaded")).Once()

	out := newService(inv).Recommend(context.Background(), "cena", collection)
	res := Shape(out, collection)

	assert.Contains(t, res.Error, "all models exhausted")
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"recommendations":[]`)
	assert.Contains(t, string(b), `"mood_summary":""`)
}

func TestRecommend_GarbageDegradesToEmptyResult(t *testing.T) {
	t.Parallel()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(geminiEnvelope(t, "lo siento, no puedo ayudar", "STOP"), nil).Once()

	out := newService(inv).Recommend(context.Background(), "cena", collection)
	res := Shape(out, collection)

	assert.Equal(t, acquire.FailureDecode, out.Failure.Kind)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Recommendations)
}

func TestRecommend_EmptyResponse(t *testing.T) {
	t.Parallel()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(acquire.Envelope{Shape: provider.GeminiShape, Raw: []byte(`{"candidates":[{"finishReason":"STOP"}]}`)}, nil).Once()

	res := Shape(newService(inv).Recommend(context.Background(), "cena", collection), collection)

	assert.Equal(t, "Empty response from Gemini", res.Error)
	assert.Empty(t, res.Recommendations)
}

func TestRecommend_InputAndConfig(t *testing.T) {
	t.Parallel()

	svc := newService(mocks.NewMockInvoker(t))
	out := svc.Recommend(context.Background(), "", collection)
	assert.Equal(t, acquire.FailureInput, out.Failure.Kind)

	out = svc.Recommend(context.Background(), "cena", nil)
	assert.Equal(t, acquire.FailureInput, out.Failure.Kind)

	unconfigured := NewService(acquire.NewEngine(mocks.NewMockInvoker(t)), nil)
	out = unconfigured.Recommend(context.Background(), "cena", collection)
	assert.Equal(t, acquire.FailureConfig, out.Failure.Kind)
}

func TestAlbumLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		album Album
		want  string
	}{
		{"full", collection[0], "1. [a1] Stan Getz — Getz/Gilberto (1964) | Jazz | Bossa Nova"},
		{"no year", collection[1], "1. [a2] Slowdive — Souvlaki | Rock"},
		{"bare", collection[2], "1. [a3] Nick Drake — Pink Moon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, albumLine(0, tt.album))
		})
	}
}
