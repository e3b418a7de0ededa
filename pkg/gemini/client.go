// Package gemini provides a client for the Google Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vinylscout/vinylscout-api/internal/resilience"
)

// Provider is the name used in errors and metrics.
const Provider = "gemini"

// DefaultBaseURL is the public v1beta endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// maxErrorBody bounds the provider body carried in errors.
const maxErrorBody = 200

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// ErrNoAPIKey is returned when the client was built without a key.
var ErrNoAPIKey = eris.New("gemini: api key not configured")

// Client defines the Gemini operations.
type Client interface {
	// GenerateContent calls model and returns the raw response envelope.
	// Non-2xx statuses are returned as *resilience.ProviderError.
	GenerateContent(ctx context.Context, model string, req *GenerateRequest) ([]byte, error)
}

// Option configures the Gemini client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Gemini client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			// Callers bound each call with a context deadline; this is only
			// a backstop for callers that do not.
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GenerateContent(ctx context.Context, model string, req *GenerateRequest) ([]byte, error) {
	if c.apiKey == "" {
		return nil, resilience.NewFatalError(Provider, ErrNoAPIKey)
	}
	if model == "" {
		return nil, resilience.NewFatalError(Provider, eris.New("gemini: model is required"))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, resilience.NewFatalError(Provider, eris.Wrap(err, "gemini: marshal request"))
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, resilience.NewFatalError(Provider, eris.Wrap(err, "gemini: create request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resilience.NewStatusError(Provider, resp.StatusCode, truncate(string(body), maxErrorBody))
	}
	return body, nil
}

// ParseResponse decodes a raw envelope into the typed response.
func ParseResponse(raw []byte) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "gemini: unmarshal response")
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
