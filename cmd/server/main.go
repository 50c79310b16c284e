package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savaki/nutricoach-relay/pkg/app"
	"github.com/savaki/nutricoach-relay/pkg/config"
	"github.com/savaki/nutricoach-relay/pkg/logging"
	"github.com/savaki/nutricoach-relay/pkg/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New("")
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Environment)

	gw, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	srv := newServer(cfg, server.NewRouter(logger, gw))

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Environment).
			Str("store", cfg.StoreBackend).
			Msg("starting relay server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// newServer builds the HTTP server. WriteTimeout leaves room for a full round
// of event processing.
func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GetEventTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
