package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/auth"
	"github.com/growthfarm/market-api/internal/catalog"
	"github.com/growthfarm/market-api/internal/config"
	"github.com/growthfarm/market-api/internal/farms"
	"github.com/growthfarm/market-api/internal/httpx"
	"github.com/growthfarm/market-api/internal/logging"
	"github.com/growthfarm/market-api/internal/orders"
	"github.com/growthfarm/market-api/internal/postgres"
	"github.com/growthfarm/market-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.CheckSecrets()
	}
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresPool)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// services
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.ServiceName)
	authSvc := auth.NewService(&auth.Repo{DB: db}, auth.Hasher{Cost: cfg.BcryptCost}, tokens, log)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := authSvc.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("seed admin")
		}
	}
	farmSvc := farms.NewService(&farms.Repo{DB: db}, log)
	catalogSvc := catalog.NewService(&catalog.Repo{DB: db}, log, catalog.WithFarms(farmSvc))
	orderRepo := orders.NewRepo(db, postgres.TxRunner{MaxRetries: cfg.TxMaxRetries, Log: log})
	orderSvc := orders.NewService(orderRepo, log, orders.WithServiceName(cfg.ServiceName))

	router := httpx.NewRouter(log, func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return err
		}
		return redisx.Ping(ctx, rdb)
	})
	httpx.API{
		Auth:     &httpx.AuthHandler{Auth: authSvc, Log: log},
		Products: &httpx.ProductsHandler{Catalog: catalogSvc, Log: log},
		Orders: &httpx.OrdersHandler{
			Orders:  orderSvc,
			Cache:   redisx.NewCache(rdb),
			Limiter: httpx.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderRateBurst),
			Log:     log,
		},
		Farms:    &httpx.FarmsHandler{Farms: farmSvc, Log: log},
		Verifier: authSvc,
	}.Mount(router)

	srv := newServer(cfg.HTTPAddr, router)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
