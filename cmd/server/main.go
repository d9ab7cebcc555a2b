package main

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/satyalens/api/handler"
	"github.com/fastygo/satyalens/internal/config"
	"github.com/fastygo/satyalens/internal/infrastructure/buffer"
	"github.com/fastygo/satyalens/internal/infrastructure/monitor"
	"github.com/fastygo/satyalens/internal/infrastructure/oracle"
	pgInfra "github.com/fastygo/satyalens/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/satyalens/internal/infrastructure/redis"
	"github.com/fastygo/satyalens/internal/metrics"
	"github.com/fastygo/satyalens/internal/middleware"
	"github.com/fastygo/satyalens/internal/router"
	"github.com/fastygo/satyalens/internal/services"
	"github.com/fastygo/satyalens/internal/services/lifecycle"
	"github.com/fastygo/satyalens/pkg/httpcontext"
	"github.com/fastygo/satyalens/pkg/logger"
	"github.com/fastygo/satyalens/repository/postgres"
	redisRepo "github.com/fastygo/satyalens/repository/redis"
	adminUC "github.com/fastygo/satyalens/usecase/admin"
	analysisUC "github.com/fastygo/satyalens/usecase/analysis"
	"github.com/fastygo/satyalens/usecase/quota"
	"github.com/fastygo/satyalens/usecase/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.SignalContext(context.Background())
	defer cancel()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(
		monitor.PostgresPinger(pool),
		monitor.RedisPinger(redisClient),
		bufferStore.Size,
		10*time.Second,
		zapLogger,
	)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	scanRepo := postgres.NewScanRepository(pool)
	settingRepo := postgres.NewSettingRepository(pool)
	usageRepo := redisRepo.NewUsageRepository(redisClient)

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		userRepo,
		scanRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	bufferProcessor.Start()
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	settingsStore := settings.New(settingRepo, cfg.Settings.CacheTTL, zapLogger)
	tracker := quota.New(scanRepo, usageRepo, settingsStore, zapLogger)
	oracleClient := oracle.NewClient(cfg.Oracle.URL, nil, zapLogger)

	analysisUseCase := analysisUC.New(
		oracleClient,
		tracker,
		settingsStore,
		userRepo,
		scanRepo,
		usageRepo,
		services.NewBufferBridge(bufferProcessor),
		analysisUC.Config{MinDuration: cfg.Analysis.MinDuration, AnonKey: cfg.Oracle.AnonKey},
		zapLogger,
	)
	adminUseCase := adminUC.New(adminUC.NewAuthorizer(userRepo, zapLogger), userRepo, scanRepo, settingsStore, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Analysis: apiHandler.NewAnalysisHandler(analysisUseCase, cfg.HTTP.MaxBodySize, ctxAdapter, zapLogger),
		Admin:    apiHandler.NewAdminHandler(adminUseCase, ctxAdapter, zapLogger),
		Settings: apiHandler.NewSettingsHandler(settingsStore, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
		if err != nil {
			zapLogger.Fatal("metrics registration failed", zap.Error(err))
		}
		handlers.Metrics = metricsHandler
	}

	actorMiddleware := middleware.Actor(middleware.ActorConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, zapLogger)
	r := router.New(handlers, actorMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize + 64<<10,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
