package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwise1/forest_places/config"
	deps "github.com/bwise1/forest_places/internal/debs"
	api "github.com/bwise1/forest_places/internal/http/rest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
	initialLoadTimeout            = 30 * time.Second
)

func main() {
	cfg := config.New()
	setUpLogging(cfg)

	deps, err := deps.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up dependencies")
	}

	ctx, cancel := context.WithTimeout(context.Background(), initialLoadTimeout)
	if err := deps.Places.Refresh(ctx, deps.PlacesAPI); err != nil {
		log.Warn().Err(err).Msg("initial place load failed, starting with an empty map")
	}
	cancel()

	a := &api.API{
		Config: cfg,
		Deps:   deps,
	}
	go deps.WebSocket.Run()
	go func() {
		log.Info().Int("port", cfg.Port).Str("api", cfg.APIBaseURL).Msg("bridge running")
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	log.Info().Dur("wait", allowConnectionsAfterShutdown).Msg("request to shutdown server")
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	log.Info().Msg("shutting down server...")
	if err := a.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	deps.WebSocket.Stop()
	if err := deps.Close(); err != nil {
		log.Error().Err(err).Msg("close state store")
	}
	log.Info().Msg("state store closed")
}

func setUpLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
