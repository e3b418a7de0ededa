package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/fetcher"
	"github.com/vinylscout/vinylscout-api/pkg/discogs"
)

// imageCacheControl lets clients keep cover art for a day.
const imageCacheControl = "public, max-age=86400"

func (s *Server) handleDiscogsProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if imageURL := q.Get("image_url"); imageURL != "" {
		s.proxyImage(w, r, imageURL)
		return
	}

	params := discogs.SearchParams{
		Query:     q.Get("q"),
		Type:      q.Get("type"),
		PerPage:   q.Get("per_page"),
		Format:    q.Get("format"),
		Year:      q.Get("year"),
		Genre:     q.Get("genre"),
		Style:     q.Get("style"),
		Sort:      q.Get("sort"),
		SortOrder: q.Get("sort_order"),
	}
	if !params.HasCriteria() {
		writeError(w, http.StatusBadRequest, "Missing search parameters (q, genre, style, or format)")
		return
	}
	if s.deps.Discogs == nil {
		writeError(w, http.StatusInternalServerError, discogs.ErrNoToken.Error())
		return
	}

	requestLogger(r).Info("discogs: search",
		zap.String("q", params.Query),
		zap.String("genre", params.Genre),
		zap.String("year", params.Year),
		zap.String("format", params.Format),
	)

	data, err := s.deps.Discogs.Search(r.Context(), params)
	var apiErr *discogs.APIError
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case errors.Is(err, discogs.ErrNoToken):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &apiErr):
		requestLogger(r).Warn("discogs: upstream error", zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		writeSearchFailure(w, apiErr.Error())
	default:
		requestLogger(r).Warn("discogs: search failed", zap.Error(err))
		writeSearchFailure(w, err.Error())
	}
}

// writeSearchFailure answers 200 so clients render an empty result list.
func writeSearchFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]any{"error": msg, "results": []any{}})
}

func (s *Server) proxyImage(w http.ResponseWriter, r *http.Request, imageURL string) {
	if s.deps.Images == nil {
		writeSearchFailure(w, "image proxy not configured")
		return
	}

	img, err := s.deps.Images.Fetch(r.Context(), imageURL, s.imageHeader(imageURL))
	var statusErr *fetcher.StatusError
	switch {
	case errors.As(err, &statusErr):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(statusErr.StatusCode)
		_, _ = fmt.Fprintf(w, "Image fetch failed: %d", statusErr.StatusCode)
		return
	case err != nil:
		requestLogger(r).Warn("discogs: image fetch failed", zap.String("image_url", imageURL), zap.Error(err))
		writeSearchFailure(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// imageHeader returns the Discogs credentials for Discogs hosts only.
func (s *Server) imageHeader(imageURL string) http.Header {
	if s.deps.Discogs == nil {
		return nil
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if host != "discogs.com" && !strings.HasSuffix(host, ".discogs.com") {
		return nil
	}
	return s.deps.Discogs.AuthHeader()
}
