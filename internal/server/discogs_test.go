package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vinylscout/vinylscout-api/internal/fetcher"
	"github.com/vinylscout/vinylscout-api/pkg/discogs"
)

func TestDiscogsSearch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.discogs.On("Search", mock.Anything, discogs.SearchParams{Query: "kind of blue", Format: "Vinyl"}).
		Return(json.RawMessage(`{"results":[{"id":1}]}`), nil).Once()

	resp, body := get(t, env.srv.URL+"/discogs-proxy?q="+url.QueryEscape("kind of blue")+"&format=Vinyl")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(body))
}

func TestDiscogsSearch_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no criteria", "year=2024", nil, http.StatusBadRequest, `{"error":"Missing search parameters (q, genre, style, or format)"}`},
		{"no token", "genre=Jazz", discogs.ErrNoToken, http.StatusInternalServerError, `{"error":"DISCOGS_TOKEN not configured"}`},
		{"upstream error", "style=Dub", &discogs.APIError{StatusCode: 429, Status: "Too Many Requests"}, http.StatusOK, `{"error":"Discogs 429: Too Many Requests","results":[]}`},
		{"transport error", "q=x", eris.New("dial tcp: refused"), http.StatusOK, `{"error":"dial tcp: refused","results":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			if tt.err != nil {
				env.discogs.On("Search", mock.Anything, mock.Anything).Return(nil, tt.err).Once()
			}

			resp, body := get(t, env.srv.URL+"/discogs-proxy?"+tt.query)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.JSONEq(t, tt.wantBody, string(body))
		})
	}
}

func TestDiscogsImageProxy(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	auth := http.Header{}
	auth.Set("Authorization", "Discogs token=secret")
	env.discogs.On("AuthHeader").Return(auth).Once()

	const img = "https://i.discogs.com/cover.png"
	env.images.On("Fetch", mock.Anything, img, auth).
		Return(&fetcher.Resource{ContentType: "image/png", Data: []byte("png")}, nil).Once()

	resp, body := get(t, env.srv.URL+"/discogs-proxy?image_url="+url.QueryEscape(img))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "png", string(body))
}

func TestDiscogsImageProxy_OtherHostsGetNoToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	const img = "https://evil.example.com/discogs.com.png"
	env.images.On("Fetch", mock.Anything, img, http.Header(nil)).
		Return(&fetcher.Resource{ContentType: "image/jpeg", Data: []byte("x")}, nil).Once()

	resp, _ := get(t, env.srv.URL+"/discogs-proxy?image_url="+url.QueryEscape(img))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDiscogsImageProxy_UpstreamStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.discogs.On("AuthHeader").Return(http.Header{}).Once()
	env.images.On("Fetch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &fetcher.StatusError{StatusCode: http.StatusNotFound, URL: "u"}).Once()

	resp, body := get(t, env.srv.URL+"/discogs-proxy?image_url="+url.QueryEscape("https://i.discogs.com/missing.jpg"))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Image fetch failed: 404", string(body))
}

func TestImageHeader(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.discogs.On("AuthHeader").Return(http.Header{"Authorization": {"Discogs token=t"}})
	s := &Server{deps: Deps{Discogs: env.discogs}}

	assert.NotNil(t, s.imageHeader("https://i.discogs.com/a.jpg"))
	assert.NotNil(t, s.imageHeader("https://discogs.com/a.jpg"))
	assert.Nil(t, s.imageHeader("https://notdiscogs.com/a.jpg"))
	assert.Nil(t, s.imageHeader("https://discogs.com.evil.io/a.jpg"))
	assert.Nil(t, (&Server{}).imageHeader("https://i.discogs.com/a.jpg"))
}
