package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/yunseo-dev/tubedl/internal/cleanup"
	"github.com/yunseo-dev/tubedl/internal/config"
	"github.com/yunseo-dev/tubedl/internal/download"
	"github.com/yunseo-dev/tubedl/internal/httpapi"
	"github.com/yunseo-dev/tubedl/internal/ledger"
	"github.com/yunseo-dev/tubedl/internal/logging"
	"github.com/yunseo-dev/tubedl/internal/metrics"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logging.Init(logging.Options{
		Level:      cfg.Logging.Level,
		Pretty:     cfg.Logging.Pretty,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to init logging")
	}

	metrics.Init()

	dir := cfg.Storage.DownloadDir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create download directory")
		}
		log.Info().Str("dir", dir).Msg("download directory created")
	}

	led := ledger.New(dir)
	runner := download.NewRunner(cfg.Tool.Path, dir, led)
	sweeper := cleanup.New(dir, led,
		cleanup.WithMaxAge(time.Duration(cfg.Storage.RetentionHours)*time.Hour))

	// One immediate pass, then the recurring schedule. The startup run
	// and a cron tick can in principle coincide; singleflight keeps the
	// sweep single-entrant.
	var sweepGroup singleflight.Group
	runSweep := func() {
		_, _, _ = sweepGroup.Do("sweep", func() (any, error) {
			sweeper.Sweep()
			return nil, nil
		})
	}
	runSweep()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Storage.CleanupCron, runSweep); err != nil {
		log.Fatal().Err(err).Str("cron", cfg.Storage.CleanupCron).Msg("invalid cleanup schedule")
	}
	c.Start()

	srv := httpapi.NewServer(runner, dir)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(cfg.Server.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("server is shutting down")
	c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
