// Package server exposes the VinylScout HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vinylscout/vinylscout-api/internal/fetcher"
	"github.com/vinylscout/vinylscout-api/internal/intent"
	"github.com/vinylscout/vinylscout-api/internal/recommend"
	"github.com/vinylscout/vinylscout-api/internal/shelf"
	"github.com/vinylscout/vinylscout-api/pkg/discogs"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

// Deps are the services behind the routes.
type Deps struct {
	Intent    *intent.Service
	Recommend *recommend.Service
	Shelf     *shelf.Service
	Discogs   discogs.Client
	Images    fetcher.Fetcher
}

// Server routes API requests to the services.
type Server struct {
	deps     Deps
	validate *validator.Validate
	router   chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps, validate: validator.New()}

	r := chi.NewRouter()
	r.Use(
		metricsMiddleware,
		requestIDMiddleware,
		recoveryMiddleware,
		loggingMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}),
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/analyze-music-intent", s.handleAnalyzeIntent)
	r.Post("/smart-recommend", s.handleSmartRecommend)
	r.Post("/process-vinyls", s.handleProcessVinyls)
	r.Get("/discogs-proxy", s.handleDiscogsProxy)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Timeouts bound each connection. Write must cover the acquisition budget.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), t.Write)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
