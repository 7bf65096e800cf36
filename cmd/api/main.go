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

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medsafe-api/internal/config"
	accesshandler "github.com/jwalitptl/medsafe-api/internal/handler/access"
	"github.com/jwalitptl/medsafe-api/internal/handler/health"
	ocrhandler "github.com/jwalitptl/medsafe-api/internal/handler/ocr"
	patienthandler "github.com/jwalitptl/medsafe-api/internal/handler/patient"
	profilehandler "github.com/jwalitptl/medsafe-api/internal/handler/profile"
	refillhandler "github.com/jwalitptl/medsafe-api/internal/handler/refill"
	reminderhandler "github.com/jwalitptl/medsafe-api/internal/handler/reminder"
	wearablehandler "github.com/jwalitptl/medsafe-api/internal/handler/wearable"
	"github.com/jwalitptl/medsafe-api/internal/middleware"
	"github.com/jwalitptl/medsafe-api/internal/repository/postgres"
	"github.com/jwalitptl/medsafe-api/internal/router"
	"github.com/jwalitptl/medsafe-api/internal/safety"
	accessService "github.com/jwalitptl/medsafe-api/internal/service/access"
	auditService "github.com/jwalitptl/medsafe-api/internal/service/audit"
	historyService "github.com/jwalitptl/medsafe-api/internal/service/history"
	ocrService "github.com/jwalitptl/medsafe-api/internal/service/ocr"
	prescriptionService "github.com/jwalitptl/medsafe-api/internal/service/prescription"
	profileService "github.com/jwalitptl/medsafe-api/internal/service/profile"
	recordService "github.com/jwalitptl/medsafe-api/internal/service/record"
	refillService "github.com/jwalitptl/medsafe-api/internal/service/refill"
	reminderService "github.com/jwalitptl/medsafe-api/internal/service/reminder"
	wearableService "github.com/jwalitptl/medsafe-api/internal/service/wearable"
	"github.com/jwalitptl/medsafe-api/pkg/auth"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/messaging/redis"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := postgres.NewDB(startupCtx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	kb := safety.DefaultKnowledgeBase()
	if cfg.KnowledgeBase.Path != "" {
		kb, err = safety.LoadKnowledgeBase(cfg.KnowledgeBase.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.KnowledgeBase.Path).Msg("failed to load knowledge base")
		}
	}
	engine := safety.NewEngine(kb)

	appMetrics := metrics.New("medsafe")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	tokenRepo := postgres.NewAccessTokenRepository(baseRepo)
	prescriptionRepo := postgres.NewPrescriptionRepository(baseRepo)
	historyRepo := postgres.NewMedicalHistoryRepository(baseRepo)
	profileRepo := postgres.NewProfileRepository(baseRepo)
	refillRepo := postgres.NewRefillRepository(baseRepo)
	reminderRepo := postgres.NewReminderRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	var source wearableService.Source
	switch cfg.Wearable.Source {
	case "redis":
		client, err := redis.NewClient(startupCtx, cfg.ToBrokerConfig())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer client.Close()
		source = wearableService.NewRedisSource(client, cfg.Wearable.ReadingTTL)
		checks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, client) }
	default:
		source = wearableService.NewSimulatedSource(cfg.Wearable.ReadingTTL)
	}

	// Services
	accessSvc := accessService.NewService(tokenRepo, outboxRepo, accessService.Config{
		DefaultTTL: cfg.AccessToken.DefaultTTL(),
		MaxTTL:     cfg.AccessToken.MaxTTL(),
	}, appMetrics, appLogger)
	wearableSvc := wearableService.NewService(source, appLogger)
	prescriptionSvc := prescriptionService.NewService(prescriptionService.Deps{
		Prescriptions: prescriptionRepo,
		Profiles:      profileRepo,
		History:       historyRepo,
		Access:        accessSvc,
		Audit:         auditService.NewWriter(historyRepo, appMetrics, appLogger),
		Readings:      wearableSvc,
		Engine:        engine,
		Metrics:       appMetrics,
		Logger:        appLogger,
	})
	recordSvc := recordService.NewService(accessSvc, profileRepo, historyRepo, prescriptionRepo,
		wearableSvc, engine.Drift, appLogger)
	scanner := ocrService.NewService(ocrService.Config{
		Endpoint:  cfg.OCR.Endpoint,
		APIKey:    cfg.OCR.APIKey,
		Model:     cfg.OCR.Model,
		Timeout:   cfg.OCR.Timeout,
		MaxTokens: cfg.OCR.MaxTokens,
		CacheTTL:  cfg.OCR.CacheTTL,
	}, appMetrics, appLogger)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins

	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)),
		router.Handlers{
			Health:   health.NewHandler(prometheus.DefaultGatherer, checks),
			Access:   accesshandler.NewHandler(accessSvc, recordSvc),
			Patient:  patienthandler.NewHandler(historyService.NewService(historyRepo, accessSvc), prescriptionSvc),
			Profile:  profilehandler.NewHandler(profileService.NewService(profileRepo)),
			OCR:      ocrhandler.NewHandler(scanner),
			Wearable: wearablehandler.NewHandler(wearableSvc),
			Refill:   refillhandler.NewHandler(refillService.NewService(refillRepo, appLogger)),
			Reminder: reminderhandler.NewHandler(reminderService.NewService(reminderRepo)),
		},
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      cfg.RateLimit.RequestsPerSecond,
			RateBurst:      cfg.RateLimit.Burst,
			TokenRateLimit: cfg.RateLimit.TokenRequestsPerSecond,
			TokenRateBurst: cfg.RateLimit.TokenBurst,
			CORSConfig:     corsConfig,
			MetricsPrefix:  "medsafe",
		},
	)
	r.Setup()
	go r.RunLimiterCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func pingRedis(ctx context.Context, client *goredis.Client) error {
	return client.Ping(ctx).Err()
}
