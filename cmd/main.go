package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/config"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/db"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/events"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/handlers"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/routes"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/services"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Загрузчик логотипов (Cloudflare R2). Опционален.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, logo uploads disabled")
	}

	// WebSocket-хаб событий турниров
	hub := events.NewHub(logger)
	go hub.Run()

	// Источник случайности для пайринга и тайбрейков
	seed := cfg.PairingSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	statsRepo := repositories.NewPostgresPlayerStatsRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	// Сервисы
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	userService := services.NewUserService(userRepo)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, participantRepo, statsRepo, matchRepo, userRepo,
		rng, uploader, hub, logger,
	)
	matchService := services.NewMatchService(
		dbConn, tournamentRepo, participantRepo, statsRepo, matchRepo, hub, logger,
	)
	roundService := services.NewRoundService(
		dbConn, tournamentRepo, statsRepo, matchRepo, userRepo, rng, hub, logger,
	)
	logger.Info("services initialized")

	// Планировщик: раз в сутки отменяет зависшие pending-турниры с возвратом ставок.
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := tournamentService.CancelStalePending(ctx, cfg.StalePendingMaxAge); err != nil {
				logger.Error("stale pending cleanup failed", slog.Any("error", err))
			}
		}),
	)
	if err != nil {
		logger.Error("failed to schedule stale pending cleanup", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to shut down scheduler", slog.Any("error", err))
		}
	}()
	logger.Info("stale pending cleanup scheduled", slog.Duration("max_age", cfg.StalePendingMaxAge))

	// HTTP-обработчики и маршруты
	router := routes.SetupRoutes(routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Users:       handlers.NewUserHandler(userService),
		Tournaments: handlers.NewTournamentHandler(tournamentService),
		Matches:     handlers.NewMatchHandler(matchService, roundService),
		WebSocket:   handlers.NewWebSocketHandler(hub, logger),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
