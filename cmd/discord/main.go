package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/taint-fm/internal/config"
	"github.com/keshon/taint-fm/internal/discord"
	"github.com/keshon/taint-fm/internal/logging"
	"github.com/keshon/taint-fm/internal/storage"
	v "github.com/keshon/taint-fm/internal/version"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger, closer, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Logger setup failed")
	}
	defer closer.Close()

	logger.Info().Str("version", v.Version).Msgf("Starting %s bot", v.AppName)

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Storage unavailable")
	}
	defer store.Close()

	bot, err := discord.New(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Bot setup failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("Shutting down")
		cancel()
		err = <-errCh
	case err = <-errCh:
		cancel()
	}

	if err != nil {
		logger.Error().Err(err).Msg("Discord bot error")
		closer.Close()
		store.Close()
		os.Exit(1)
	}
	logger.Info().Msg("Discord bot exited cleanly")
}
