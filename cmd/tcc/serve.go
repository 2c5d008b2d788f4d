package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/content"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/events"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/markdown"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := log.With().Str("component", "main").Logger()
		logger.Info().
			Str("version", version).
			Str("commit", commit).
			Str("build_date", buildDate).
			Msg("starting tcc site")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The store is opened lazily so the site still starts, and serves
		// markdown, while the store is unreachable.
		st := kvstore.NewClient(kvstore.URLOpener(cfg.StoreURL))
		defer st.Close()

		publisher, closePublisher := openPublisher(cfg.NATSURL)
		defer closePublisher()

		catalog := content.NewCatalog(st, cfg.ContentDir, publisher)

		if cfg.WatchContent {
			watcher, err := markdown.NewWatcher(cfg.ContentDir, markdown.DefaultDebounce, catalog.Invalidate, logger)
			if err != nil {
				logger.Warn().Err(err).Str("dir", cfg.ContentDir).Msg("content watcher disabled")
			} else {
				watcher.Start(ctx)
				defer watcher.Close()
			}
		}

		srv, err := server.New(catalog, st, cfg, version, commit, buildDate)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		httpServer := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		var serveErr error
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr = <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		logger.Info().Msg("server stopped gracefully")
		return serveErr
	},
}

// openPublisher connects to NATS when url is set. Without it, or when the
// connection fails, content changes are not announced.
func openPublisher(url string) (events.Publisher, func()) {
	if url == "" {
		return events.Noop{}, func() {}
	}
	logger := log.With().Str("component", "events").Logger()
	pub, err := events.ConnectNATS(url, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("NATS unavailable; change events disabled")
		return events.Noop{}, func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close NATS connection")
		}
	}
}
