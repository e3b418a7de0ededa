package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/config"
	"github.com/vinylscout/vinylscout-api/internal/fetcher"
	"github.com/vinylscout/vinylscout-api/internal/intent"
	"github.com/vinylscout/vinylscout-api/internal/provider"
	"github.com/vinylscout/vinylscout-api/internal/recommend"
	"github.com/vinylscout/vinylscout-api/internal/server"
	"github.com/vinylscout/vinylscout-api/internal/shelf"
	"github.com/vinylscout/vinylscout-api/pkg/anthropic"
	"github.com/vinylscout/vinylscout-api/pkg/discogs"
	"github.com/vinylscout/vinylscout-api/pkg/gemini"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv := buildServer(cfg)
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port), server.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
		})
	},
}

// buildServer wires clients and services from configuration. Providers
// without credentials are left out; endpoints that end up with no usable
// model report it per request.
func buildServer(c *config.Config) *server.Server {
	var (
		gem gemini.Client
		ant anthropic.Client
	)
	if c.Gemini.Key != "" {
		gem = gemini.NewClient(c.Gemini.Key, gemini.WithBaseURL(c.Gemini.BaseURL))
	} else {
		zap.L().Warn("gemini: no api key configured")
	}
	if c.Anthropic.Key != "" {
		var opts []anthropic.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(c.Anthropic.BaseURL))
		}
		ant = anthropic.NewClient(c.Anthropic.Key, opts...)
	}

	router := provider.NewRouter(gem, ant)
	engine := acquire.NewEngine(router,
		acquire.WithTimeouts(c.Acquire.AttemptTimeout, c.Acquire.Budget),
		acquire.WithPreviewBytes(c.Acquire.PreviewBytes),
	)

	images := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.Discogs.UserAgent,
		Timeout:      c.Image.FetchTimeout,
		MaxBytes:     c.Image.MaxBytes,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
	dg := discogs.NewClient(c.Discogs.Token,
		discogs.WithBaseURL(c.Discogs.BaseURL),
		discogs.WithUserAgent(c.Discogs.UserAgent),
	)

	vision := router.Usable(c.Models.Vision)
	zap.L().Info("models configured",
		zap.Int("vision", len(vision)),
		zap.Int("intent", len(router.Usable(c.Models.Intent))),
		zap.Int("recommend", len(router.Usable(c.Models.Recommend))),
	)

	return server.New(server.Deps{
		Intent:    intent.NewService(engine, router.Usable(c.Models.Intent)),
		Recommend: recommend.NewService(engine, router.Usable(c.Models.Recommend)),
		Shelf:     shelf.NewService(engine, images, vision),
		Discogs:   dg,
		Images:    images,
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
