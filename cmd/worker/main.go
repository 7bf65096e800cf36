package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medsafe-api/internal/config"
	"github.com/jwalitptl/medsafe-api/internal/handler/health"
	"github.com/jwalitptl/medsafe-api/internal/repository/postgres"
	accessService "github.com/jwalitptl/medsafe-api/internal/service/access"
	internalworker "github.com/jwalitptl/medsafe-api/internal/worker"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/messaging/redis"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
	"github.com/jwalitptl/medsafe-api/pkg/worker"
)

func setupHealthCheck(port int, checks map[string]health.Check) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(prometheus.DefaultGatherer, checks).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	client, err := redis.NewClient(ctx, cfg.ToBrokerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	broker := redis.NewRedisBroker(client, &log.Logger)
	defer broker.Close()

	workerMetrics := metrics.New("medsafe_worker")
	baseRepo := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)
	tokens := accessService.NewService(postgres.NewAccessTokenRepository(baseRepo), nil, accessService.Config{
		DefaultTTL: cfg.AccessToken.DefaultTTL(),
		MaxTTL:     cfg.AccessToken.MaxTTL(),
	}, workerMetrics, appLogger)

	processor, err := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger.WithFields(map[string]interface{}{"component": "outbox"}),
		workerMetrics,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid outbox configuration")
	}
	retention := internalworker.NewRetentionWorker(
		tokens,
		outboxRepo,
		cfg.AccessToken.Retention,
		cfg.AccessToken.CleanupInterval,
		appLogger.WithFields(map[string]interface{}{"component": "retention"}),
	)

	healthSrv := setupHealthCheck(cfg.Server.HealthPort, map[string]health.Check{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		retention.Start(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Health check server forced to shutdown")
	}
}
