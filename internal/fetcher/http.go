package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultContentType is assumed when the server sends none.
const DefaultContentType = "image/jpeg"

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBytes caps the body size. Larger bodies fail with ErrTooLarge.
	MaxBytes     int64
	RateLimiters map[string]*rate.Limiter
}

// ErrTooLarge is returned when a body exceeds MaxBytes.
var ErrTooLarge = eris.New("fetch: body exceeds size limit")

// StatusError is a non-200 response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d from %s", e.StatusCode, e.URL)
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limits.
// It never retries; a failed download is reported to the caller.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the default per-host rate limiters. Discogs
// allows 60 authenticated requests per minute.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"api.discogs.com": rate.NewLimiter(1, 5),
		"i.discogs.com":   rate.NewLimiter(5, 10),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 20 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "VinylScout/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return f.limiters[u.Host]
}

// Fetch downloads rawURL and returns the whole body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, eris.Errorf("fetch: invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if lim := f.limiterFor(rawURL); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, ErrTooLarge
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = DefaultContentType
	}

	zap.L().Debug("fetch: downloaded",
		zap.String("host", u.Host),
		zap.String("content_type", ct),
		zap.Float64("size_kb", float64(len(data))/1024),
		zap.Duration("took", time.Since(start)),
	)

	return &Resource{ContentType: ct, Data: data}, nil
}
