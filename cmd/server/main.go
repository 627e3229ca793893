package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/devradar/backend/internal/config"
	"github.com/devradar/backend/internal/handlers"
	"github.com/devradar/backend/internal/live"
	"github.com/devradar/backend/internal/services"
	"github.com/devradar/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	devs, err := newDevService(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise developer store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := live.NewHub(logger)
	github := services.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubToken)
	mailer := services.NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom, logger)
	if !mailer.Enabled() {
		logger.Info("RESEND_API_KEY or MAIL_FROM not set, welcome e-mails disabled")
	}
	registration := services.NewRegistrationService(devs, github, hub, mailer, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		Devs:           handlers.NewDevHandler(devs, registration, cfg.JWTSecret, cfg.JWTExpiration, logger),
		Search:         handlers.NewSearchHandler(devs, cfg.SearchRadiusMeters, logger),
		Socket:         handlers.NewSocketHandler(hub, cfg.SearchRadiusMeters, cfg.AllowedOrigins, logger),
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("devradar API server starting", slog.String("addr", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Websocket connections are hijacked and ignored by Shutdown; close them via the hub.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	if err := devs.Close(shutdownCtx); err != nil {
		logger.Warn("store close", slog.String("error", err.Error()))
	}
}

func newDevService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.DevService, error) {
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return services.NewMongoDevService(connectCtx, cfg.MongoURI, cfg.MongoDB, logger)
	}

	logger.Warn("MONGO_URI not set, using in-memory developer store")
	var store *storage.JSONStore
	if cfg.DataDir != "" {
		s, err := storage.NewJSONStore(cfg.DataDir, "devs.json")
		if err != nil {
			return nil, err
		}
		store = s
		logger.Info("persisting developers to disk", slog.String("path", s.Path()))
	}
	return services.NewMemoryDevService(store, logger)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
