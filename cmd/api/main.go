package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shortlinks/internal/auth"
	"github.com/SergeiKhy/shortlinks/internal/config"
	"github.com/SergeiKhy/shortlinks/internal/handler"
	"github.com/SergeiKhy/shortlinks/internal/lookup"
	"github.com/SergeiKhy/shortlinks/internal/maintenance"
	"github.com/SergeiKhy/shortlinks/internal/middleware"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Применение схемы
	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to apply database schema", zap.Error(err))
	}

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Инициализация сервисов
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	linkService := service.NewLinkService(linkRepo, cacheRepo, logger)
	authService := service.NewAuthService(userRepo, tokens)
	analyticsService := service.NewAnalyticsService(linkRepo, clickRepo)

	// Геопоиск по IP (опционален)
	var locator lookup.Locator
	if cfg.Geo.BaseURL != "" {
		locator = lookup.NewGeoClient(cfg.Geo.BaseURL, cfg.Geo.Timeout)
	}

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(clickRepo, linkRepo, locator, logger,
		service.WithWorkers(cfg.Clicks.Workers),
		service.WithBuffer(cfg.Clicks.BufferSize),
	)
	clickProcessor.Start()
	defer clickProcessor.Stop()

	// Ночная очистка истёкших ссылок
	sweeper := maintenance.NewSweeper(linkRepo, cacheRepo, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", zap.Error(err))
	}
	defer sweeper.Stop()

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	// Настройка роутера
	router := handler.NewRouter(
		linkService, clickProcessor, analyticsService, authService,
		tokens, userRepo, rateLimiter, cfg.App.BaseURL, logger,
	)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
