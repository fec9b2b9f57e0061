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
	"github.com/growthfarm/market-api/internal/orders"
	"github.com/growthfarm/market-api/internal/projector"
	"github.com/growthfarm/market-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", cfg.ServiceName+"-projector").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)

	h := projector.NewHandler(redisx.NewCache(rdb), cfg.ProjectorGroup, log)
	topics := []string{orders.TopicOrderPlaced, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, topics, cfg.ProjectorWorkers, log)

	log.Info().Str("group", cfg.ProjectorGroup).Strs("topics", topics).Int("workers", cfg.ProjectorWorkers).
		Msg("projector started")
	err = cons.Start(ctx, h.Handle)
	_ = rdb.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("projector stopped")
}
