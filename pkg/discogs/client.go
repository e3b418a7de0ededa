// Package discogs provides a client for the Discogs database search API.
package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/vinylscout/vinylscout-api/internal/resilience"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.discogs.com"

// DefaultUserAgent identifies the app; Discogs rejects requests without one.
const DefaultUserAgent = "VinylScout/1.0"

// ErrNoToken is returned when the client was built without a token.
var ErrNoToken = eris.New("DISCOGS_TOKEN not configured")

// Client defines the Discogs operations.
type Client interface {
	// Search runs a database search and returns Discogs' JSON unchanged.
	Search(ctx context.Context, params SearchParams) (json.RawMessage, error)
	// AuthHeader returns the headers Discogs expects on every request,
	// including image downloads.
	AuthHeader() http.Header
}

// SearchParams are the supported database search filters.
type SearchParams struct {
	Query     string
	Type      string
	PerPage   string
	Format    string
	Year      string
	Genre     string
	Style     string
	Sort      string
	SortOrder string
}

// HasCriteria reports whether at least one of query, genre, style or
// format is set. Discogs returns the whole catalog otherwise.
func (p SearchParams) HasCriteria() bool {
	return p.Query != "" || p.Genre != "" || p.Style != "" || p.Format != ""
}

// Values encodes p, defaulting type to "release" and per_page to 8.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("q", p.Query)
	v.Set("type", orDefault(p.Type, "release"))
	v.Set("per_page", orDefault(p.PerPage, "8"))
	set("format", p.Format)
	set("year", p.Year)
	set("genre", p.Genre)
	set("style", p.Style)
	set("sort", p.Sort)
	set("sort_order", p.SortOrder)
	return v
}

// APIError is a non-200 Discogs response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Discogs %d: %s", e.StatusCode, e.Status)
}

// Option configures the Discogs client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for search calls. Only 429, 5xx and
// transport failures are retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithRateLimiter replaces the default limiter. Nil disables limiting.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	token     string
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a new Discogs client. The default limiter allows 60
// requests per minute, the authenticated Discogs quota.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:     token,
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) AuthHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", c.userAgent)
	if c.token != "" {
		h.Set("Authorization", "Discogs token="+c.token)
	}
	return h
}

func (c *httpClient) Search(ctx context.Context, params SearchParams) (json.RawMessage, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	reqURL := fmt.Sprintf("%s/database/search?%s", c.baseURL, params.Values().Encode())
	cfg := c.retry
	cfg.ShouldRetry = retryable
	cfg.OnRetry = resilience.RetryLogger("discogs", "search")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (json.RawMessage, error) {
		return c.search(ctx, reqURL)
	})
}

func (c *httpClient) search(ctx context.Context, reqURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "discogs: create request")
	}
	req.Header = c.AuthHeader()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "discogs: rate limiter wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "discogs: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "discogs: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       truncate(string(body), 300),
		}
	}

	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return body, nil
}

var errInvalidJSON = eris.New("discogs: response is not valid JSON")

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return resilience.RetryableStatus(apiErr.StatusCode)
	}
	return !errors.Is(err, errInvalidJSON) && resilience.IsTransient(err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
