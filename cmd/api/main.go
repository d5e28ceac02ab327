package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediaboost/internal/http/handlers"
	httpapi "mediaboost/internal/http/httpapi"
	"mediaboost/internal/infra"
	"mediaboost/internal/probe"
	"mediaboost/internal/storage"
	"mediaboost/internal/topaz"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := topaz.NewClient(topaz.Options{
		APIKey:      cfg.TopazAPIKey,
		BaseURL:     cfg.TopazBaseURL,
		Protocol:    cfg.UploadProtocol,
		Concurrency: cfg.UploadConcurrency,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure enhancement client")
	}

	scratch, err := storage.NewScratch(cfg.ScratchDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare scratch directory")
	}

	prober := probe.New(cfg.FFprobeBin, logger)
	app := handlers.NewApp(logger, *cfg, prober, client, scratch)
	router := httpapi.NewRouter(app, *cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
