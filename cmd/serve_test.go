package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/config"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Server.Port = 8080
	c.Acquire.AttemptTimeout = 2 * time.Second
	c.Acquire.Budget = 5 * time.Second
	c.Discogs.UserAgent = "VinylScout/1.0"
	c.Models.Intent = []acquire.Candidate{{Model: "gemini-2.0-flash"}}
	return c
}

func TestBuildServer_Health(t *testing.T) {
	srv := httptest.NewServer(buildServer(testConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildServer_NoGeminiKeyIsConfigError(t *testing.T) {
	srv := httptest.NewServer(buildServer(testConfig()).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/analyze-music-intent", "application/json", strings.NewReader(`{"query":"fiesta"}`))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "GEMINI_API_KEY not configured", body["error"])
}

func TestBuildServer_UsesGeminiWhenKeySet(t *testing.T) {
	gem := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"genres\":[\"Jazz\"],\"styles\":[],\"mood_description\":\"m\",\"energy\":\"low\",\"keywords\":[]}"}]},"finishReason":"STOP"}]}`))
	}))
	defer gem.Close()

	c := testConfig()
	c.Gemini.Key = "test-key"
	c.Gemini.BaseURL = gem.URL
	srv := httptest.NewServer(buildServer(c).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/analyze-music-intent", "application/json", strings.NewReader(`{"query":"jazz"}`))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Jazz"}, body["genres"])
}
