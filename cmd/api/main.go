package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/api"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/api/handler"
	custommiddleware "github.com/Suryateja-byte/Roomshare-sub011/internal/api/middleware"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/application"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/config"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/events"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/infrastructure/postgres"
	redisinfra "github.com/Suryateja-byte/Roomshare-sub011/internal/infrastructure/redis"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/clock"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/metrics"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/worker"
)

func main() {
	defer logger.Sync()

	cfg := config.Load()
	m := metrics.Init()
	clk := clock.NewSystem()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーション実行に失敗", zap.Error(err))
	}

	// Redis（空きスロットキャッシュ）。接続できない場合はキャッシュなしで起動する
	var availabilityCache *redisinfra.AvailabilityCache
	redisClient := redisinfra.NewClient(&cfg.Redis)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisinfra.Ping(ctx, redisClient); err != nil {
			logger.Warn("Redisに接続できないため空きスロットキャッシュを無効化", zap.Error(err))
			redisClient = nil
		} else {
			availabilityCache = redisinfra.NewAvailabilityCache(redisClient, cfg.Redis.CacheTTL)
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// イベントディスパッチャー（ログシンク + 任意のAMQPシンク）
	sinks := []events.Sink{events.NewLogSink()}
	if cfg.AMQP.Enabled() {
		amqpSink, err := events.NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logger.Warn("AMQPシンクの初期化に失敗（ログシンクのみで継続）", zap.Error(err))
		} else {
			defer amqpSink.Close()
			sinks = append(sinks, amqpSink)
		}
	}
	dispatcher := events.NewDispatcher(256, sinks...)
	go dispatcher.Start(context.Background())

	// リポジトリとサービス
	txManager := postgres.NewTxManager(db)
	listingRepo := postgres.NewListingRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	idempotencyRepo := postgres.NewIdempotencyRepository(db)

	var invalidator application.AvailabilityInvalidator
	var cache application.AvailabilityCache
	if availabilityCache != nil {
		invalidator = availabilityCache
		cache = availabilityCache
	}

	bookingService := application.NewBookingService(
		txManager,
		bookingRepo,
		listingRepo,
		listingRepo,
		dispatcher,
		invalidator,
		clk,
		m,
		cfg.Hold.Duration,
		cfg.TxRetry,
	)
	listingService := application.NewListingService(listingRepo, cache)
	coordinator := application.NewIdempotencyCoordinator(
		idempotencyRepo,
		clk,
		m,
		cfg.Idempotency.CompletedTTL,
		cfg.Idempotency.FailedTTL,
	)

	// バックグラウンドワーカー
	sweeper := worker.NewHoldSweeper(bookingService, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
	go sweeper.Start(context.Background())

	gc := worker.NewIdempotencyGC(idempotencyRepo, clk, cfg.Idempotency.GCInterval, cfg.Idempotency.GCBatchSize)
	go gc.Start(context.Background())

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	healthHandler := handler.NewHealthHandler()
	bookingHandler := handler.NewBookingHandler(bookingService, coordinator)
	listingHandler := handler.NewListingHandler(listingService)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)
	bookingHandler.RegisterRoutes(v1)
	listingHandler.RegisterRoutes(v1)

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動に失敗", zap.Error(err))
		}
	}()

	logger.Info("サーバー起動完了",
		zap.String("port", cfg.Server.Port),
		zap.Duration("hold_duration", cfg.Hold.Duration),
		zap.Duration("sweeper_interval", cfg.Sweeper.Interval),
	)

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("シャットダウン開始")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗", zap.Error(err))
	}

	sweeper.Stop()
	gc.Stop()
	dispatcher.Stop()

	logger.Info("シャットダウン完了")
}
