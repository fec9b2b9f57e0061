package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/config"
	kafkax "github.com/growthfarm/market-api/internal/kafka"
	"github.com/growthfarm/market-api/internal/logging"
	"github.com/growthfarm/market-api/internal/outbox"
	"github.com/growthfarm/market-api/internal/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", cfg.ServiceName+"-relay").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	prod := kafkax.NewProducer(cfg.KafkaBrokers)
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("close producer")
		}
	}()

	relay := outbox.NewRelay(&outbox.Repo{DB: db}, prod, log, cfg.RelayInterval, cfg.RelayBatch)
	log.Info().Dur("interval", cfg.RelayInterval).Int("batch", cfg.RelayBatch).Msg("outbox relay started")
	if err := relay.Run(ctx); err != nil {
		log.Error().Err(err).Msg("relay exit")
	}
	log.Info().Msg("outbox relay stopped")
}
