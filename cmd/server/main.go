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

	"postline-server/internal/config"
	"postline-server/internal/handler"
	"postline-server/internal/logging"
	"postline-server/internal/media"
	"postline-server/internal/middleware"
	"postline-server/internal/repository"
	"postline-server/internal/service"
	"postline-server/internal/tracker"
	"postline-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStderr(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	client, err := kivik.New("couch", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to CouchDB: %w", err)
	}
	defer client.Close()

	exists, err := client.DBExists(ctx, cfg.Database.Name)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		logger.Info().Str("db", cfg.Database.Name).Msg("created database")
	}

	if err := repository.EnsureIndexes(ctx, client, cfg.Database.Name); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	postRepo := repository.NewPostRepository(client, cfg.Database.Name)
	reactionRepo := repository.NewReactionRepository(client, cfg.Database.Name)

	host, err := media.NewS3Host(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to configure media host: %w", err)
	}

	var views tracker.ViewTracker = tracker.Noop{}
	if cfg.Redis.URL != "" {
		redisTracker, err := tracker.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisTracker.Close()
		views = redisTracker
	} else {
		logger.Warn().Msg("REDIS_URL not set, views are not deduplicated and history is disabled")
	}

	feed := websocket.NewManager(cfg.WebSocket, logger)
	go feed.Run(ctx)

	tokens := service.NewTokenService(userRepo, cfg.JWT, logger)
	authService := service.NewAuthService(userRepo, postRepo, reactionRepo, tokens, host, views, logger)
	userService := service.NewUserService(userRepo, postRepo, host, views, logger)
	postService := service.NewPostService(postRepo, reactionRepo, host, views, feed, logger)

	cookies := middleware.NewCookieJar(cfg.Cookie, cfg.JWT)
	session := middleware.NewSession(tokens, userRepo, cookies, logger)

	authLimit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		authLimit, err = middleware.NewIPRateLimiter(cfg.RateLimit.AuthRate, cfg.Server.TrustProxy)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_AUTH: %w", err)
		}
	}

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))
	r.Use(middleware.NewSecure(middleware.SecureOptions(cfg.Server.IsDevelopment())))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, cookies, cfg.Media.UploadDir, cfg.Media.MaxUploadSize, logger),
		User:      handler.NewUserHandler(userService, cfg.Media.UploadDir, cfg.Media.MaxUploadSize, logger),
		Post:      handler.NewPostHandler(postService, cfg.Media.UploadDir, cfg.Media.MaxUploadSize, cfg.Server.TrustProxy, logger),
		WebSocket: handler.NewWebSocketHandler(feed, cfg.WebSocket, cfg.CORS.AllowedOrigins, cfg.Server.TrustProxy, logger),
	}, session, authLimit)

	if cfg.Server.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("starting postline server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped gracefully")
	return nil
}
