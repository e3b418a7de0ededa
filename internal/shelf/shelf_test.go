package shelf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/acquire/mocks"
	"github.com/vinylscout/vinylscout-api/internal/fetcher"
	fetchermocks "github.com/vinylscout/vinylscout-api/internal/fetcher/mocks"
	"github.com/vinylscout/vinylscout-api/internal/provider"
	"github.com/vinylscout/vinylscout-api/internal/resilience"
)

const photoURL = "https://cdn.example.com/shelf.jpg"

var visionModels = []acquire.Candidate{
	{Model: "gemini-2.0-flash", MaxOutputTokens: 32768},
	{Model: "gemini-3-flash-preview", MaxOutputTokens: 32768},
}

func geminiEnvelope(t *testing.T, text, finish string) acquire.Envelope {
	t.Helper()
	b, err := json.Marshal(text)
	require.NoError(t, err)
	raw := `{"candidates":[{"content":{"parts":[{"text":` + string(b) + `}]},"finishReason":"` + finish + `"}]}`
	return acquire.Envelope{Shape: provider.GeminiShape, Raw: []byte(raw)}
}

func photo() *fetcher.Resource {
	return &fetcher.Resource{ContentType: "image/webp", Data: []byte("webp-bytes")}
}

func newService(t *testing.T, inv acquire.Invoker, f fetcher.Fetcher) *Service {
	t.Helper()
	e := acquire.NewEngine(inv, acquire.WithTimeouts(time.Second, 5*time.Second))
	return NewService(e, f, visionModels)
}

func TestProcess_FullShelf(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, http.Header(nil)).Return(photo(), nil).Once()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.MatchedBy(func(req acquire.Request) bool {
		return req.Prompt == fullPrompt &&
			req.Media != nil && req.Media.MIMEType == "image/webp" && string(req.Media.Data) == "webp-bytes"
	})).Return(geminiEnvelope(t, `{"albums":[{"position":1,"artist":"Miles Davis","title":"Kind of Blue","year":1959,"confidence":0.97,"spine_x_start":0.0,"spine_x_end":0.04}]}`, "STOP"), nil).Once()

	res := newService(t, inv, f).Process(context.Background(), Request{ImageURL: photoURL})

	assert.Empty(t, res.Error)
	assert.Equal(t, "gemini-2.0-flash", res.Model)
	assert.Equal(t, photoURL, res.ImageURL)
	assert.Nil(t, res.Debug)
	require.Len(t, res.Albums, 1)
	a := res.Albums[0]
	assert.Equal(t, "Miles Davis", a.Artist)
	assert.Equal(t, 1959, *a.Year)
	assert.InDelta(t, 0.04, *a.SpineXEnd, 1e-9)
}

func TestProcess_FallbackSalvagesTruncatedRecords(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, mock.Anything).Return(photo(), nil)

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.Anything).
		Return(acquire.Envelope{}, resilience.NewStatusError("gemini", 429, "quota")).Once()
	inv.On("Invoke", mock.Anything, visionModels[1], mock.Anything).
		Return(geminiEnvelope(t, "```json\n{\"albums\":[{\"position\":1,\"artist\":\"A\",\"title\":\"B\"},{\"position\":2,\"artist\":\"C\",\"title\":\"D\"},{\"position\":3,\"art", "MAX_TOKENS"), nil).Once()

	res := newService(t, inv, f).Process(context.Background(), Request{ImageURL: photoURL})

	assert.Empty(t, res.Error)
	assert.Equal(t, "gemini-3-flash-preview", res.Model)
	require.Len(t, res.Albums, 2)
	assert.Equal(t, 2, res.Albums[1].Position)
}

func TestProcess_EmptyResponseCarriesDebug(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, mock.Anything).Return(photo(), nil)

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.Anything).
		Return(acquire.Envelope{Shape: provider.GeminiShape, Raw: []byte(`{"candidates":[{"finishReason":"STOP"}]}`)}, nil).Once()

	res := newService(t, inv, f).Process(context.Background(), Request{ImageURL: photoURL})

	assert.Empty(t, res.Error)
	assert.Empty(t, res.Albums)
	require.NotNil(t, res.Debug)
	assert.Equal(t, acquire.DiagEmptyResponse, res.Debug.Error)
	assert.Equal(t, "STOP", res.Debug.FinishReason)
	assert.Contains(t, res.Debug.RawData, "candidates")

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"albums":[]`)
	assert.Contains(t, string(b), `"_debug":{`)
}

func TestProcess_UndecodableIsZeroAlbumSuccess(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, mock.Anything).Return(photo(), nil)

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.Anything).
		Return(geminiEnvelope(t, "I can't read these spines, sorry.", "STOP"), nil).Once()

	res := newService(t, inv, f).Process(context.Background(), Request{ImageURL: photoURL})

	assert.Empty(t, res.Error)
	assert.Empty(t, res.Albums)
	assert.Equal(t, "gemini-2.0-flash", res.Model)
	require.NotNil(t, res.Debug)
	assert.Equal(t, "I can't read these spines, sorry.", res.Debug.ResponsePreview)
	assert.NotEmpty(t, res.Debug.ParseError)
}

func TestProcess_ExhaustedReportsError(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, mock.Anything).Return(photo(), nil)

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, mock.Anything, mock.Anything).
		Return(acquire.Envelope{}, resilience.NewStatusError("gemini", 503, "overloaded")).Twice()

	res := newService(t, inv, f).Process(context.Background(), Request{ImageURL: photoURL})

	assert.Equal(t, "all models exhausted: gemini-2.0-flash: 503; gemini-3-flash-preview: 503", res.Error)
	assert.NotNil(t, res.Albums)
	assert.Empty(t, res.Albums)
}

func TestProcess_DownloadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newService(t, mocks.NewMockInvoker(t), fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}))
	res := svc.Process(context.Background(), Request{ImageURL: srv.URL + "/missing.jpg"})

	assert.Contains(t, res.Error, "image download failed")
	assert.Contains(t, res.Error, "404")
	assert.Empty(t, res.Albums)
}

func TestProcess_DownloadsOverHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.MatchedBy(func(req acquire.Request) bool {
		return string(req.Media.Data) == "jpeg" && req.Media.MIMEType != ""
	})).Return(geminiEnvelope(t, `[{"position":1,"artist":"A","title":"B"}]`, "STOP"), nil).Once()

	res := newService(t, inv, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})).Process(context.Background(), Request{ImageURL: srv.URL})

	require.Len(t, res.Albums, 1)
}

func TestProcess_MissingURLAndConfig(t *testing.T) {
	t.Parallel()

	res := newService(t, mocks.NewMockInvoker(t), fetchermocks.NewMockFetcher(t)).Process(context.Background(), Request{})
	assert.Equal(t, "imageUrl is required", res.Error)

	unconfigured := NewService(acquire.NewEngine(mocks.NewMockInvoker(t)), fetchermocks.NewMockFetcher(t), nil)
	res = unconfigured.Process(context.Background(), Request{ImageURL: photoURL})
	assert.Equal(t, ErrNotConfigured, res.Error)
}

func TestProcess_ReanalyzePrompt(t *testing.T) {
	t.Parallel()

	f := fetchermocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, photoURL, mock.Anything).Return(photo(), nil)

	inv := mocks.NewMockInvoker(t)
	inv.On("Invoke", mock.Anything, visionModels[0], mock.MatchedBy(func(req acquire.Request) bool {
		return strings.Contains(req.Prompt, "- #5: zona 12%-18% horizontal\n- #9")
	})).Return(geminiEnvelope(t, `{"albums":[{"position":5,"artist":"A","title":"B","confidence":0.7}]}`, "STOP"), nil).Once()

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"imageUrl":"`+photoURL+`","reanalyzePositions":[5,9],"spineCoords":{"5":{"xStart":0.12,"xEnd":0.18}}}`), &req))
	require.True(t, req.Reanalyze())

	res := newService(t, inv, f).Process(context.Background(), req)

	require.Len(t, res.Albums, 1)
	assert.Equal(t, 5, res.Albums[0].Position)
}

func TestRequest_Reanalyze(t *testing.T) {
	t.Parallel()

	assert.False(t, Request{ImageURL: photoURL}.Reanalyze())
	assert.False(t, Request{ReanalyzePositions: []int{1}}.Reanalyze())
	assert.False(t, Request{SpineCoords: map[int]SpineCoord{1: {}}}.Reanalyze())
	assert.True(t, Request{ReanalyzePositions: []int{1}, SpineCoords: map[int]SpineCoord{}}.Reanalyze())
}

func TestZoneLine(t *testing.T) {
	t.Parallel()

	coords := map[int]SpineCoord{3: {XStart: 0.3, XEnd: 0.4}}
	assert.Equal(t, "- #3: zona 30%-40% horizontal", zoneLine(3, coords))
	assert.Equal(t, "- #4", zoneLine(4, coords))
}
