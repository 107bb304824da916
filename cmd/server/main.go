package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/idtoken"

	"tubemark-backend/internal/config"
	"tubemark-backend/internal/database"
	"tubemark-backend/internal/handlers"
	"tubemark-backend/internal/logger"
	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/repository"
	"tubemark-backend/internal/router"
	"tubemark-backend/internal/services"
	"tubemark-backend/internal/websocket"
	"tubemark-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting tubemark backend", "env", cfg.Env, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ──── Step 3: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations", log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClients.Close()
	log.Info("redis connected")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	userVideoRepo := repository.NewUserVideoRepo(pool)
	playlistRepo := repository.NewPlaylistRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)
	historyRepo := repository.NewHistoryRepo(pool)
	tagRepo := repository.NewTagRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)
	sessions := repository.NewSessionStore(redisClients.Main)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTRefreshSecret)

	var idTokens services.IDTokenValidator
	if cfg.GoogleEnabled() {
		v, err := idtoken.NewValidator(ctx)
		if err != nil {
			return fmt.Errorf("google id token validator: %w", err)
		}
		idTokens = v
		log.Info("google sign-in enabled")
	}
	authService := services.NewAuthService(userRepo, sessions, jwtAuth, idTokens, services.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, log)

	gateway, err := services.NewYouTubeGateway(ctx, cfg.YouTubeAPIKey, log)
	if err != nil {
		return fmt.Errorf("youtube gateway: %w", err)
	}
	if !gateway.Configured() {
		log.Warn("YOUTUBE_API_KEY not set; video lookups will fail and recommendations will be empty")
	}

	usageQueue := worker.NewQueue(redisClients.Main)
	videoService := services.NewVideoService(videoRepo, userVideoRepo, gateway, usageQueue, log)
	recommender := services.NewRecommender(tagRepo, gateway, videoRepo, videoService)

	events := websocket.NewPublisher(redisClients.Main, log)

	// ──── Step 5: Start Tag Usage Worker Pool ────
	workerPool := worker.NewPool(redisClients.Main, tagRepo, events, log, cfg.WorkerCount)
	workerPool.Start()
	log.Info("worker pool started", "workers", cfg.WorkerCount)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, log)

	// ──── Initialize Handlers ────
	rs := handlers.NewResponder(log, cfg.IsDevelopment())
	h := router.Handlers{
		Responder:       rs,
		Auth:            handlers.NewAuthHandler(rs, authService, cfg.FrontendURL),
		Videos:          handlers.NewVideoHandler(rs, videoService),
		Playlists:       handlers.NewPlaylistHandler(rs, playlistRepo, videoRepo),
		Notes:           handlers.NewNoteHandler(rs, noteRepo, videoRepo),
		History:         handlers.NewHistoryHandler(rs, historyRepo, videoRepo),
		Tags:            handlers.NewTagHandler(rs, tagRepo, usageQueue),
		YouTube:         handlers.NewYouTubeHandler(rs, gateway),
		Recommendations: handlers.NewRecommendationHandler(rs, recommender),
		Stats:           handlers.NewStatsHandler(rs, statsRepo),
	}

	// ──── Step 7: Start HTTP Server ────
	r, stopLimiter := router.New(jwtAuth, h, wsHub, events, log, router.Options{
		FrontendURL:     cfg.FrontendURL,
		Environment:     cfg.Env,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})
	defer stopLimiter()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr, "api", "/api", "ws", "/api/ws")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	wsHub.Close()
	workerPool.Stop()

	return nil
}
