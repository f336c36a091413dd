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

	"github.com/joho/godotenv"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/config"
	"github.com/Raymond9734/event-rsvp-backend/internal/db"
	"github.com/Raymond9734/event-rsvp-backend/internal/handler"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/service"
)

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// a missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to read .env", slog.String("error", err.Error()))
	}

	logger.Info("starting event RSVP API server")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalog, err := config.LoadTemplates(cfg.TemplatesFile)
	if err != nil {
		logger.Error("failed to load templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	database, err := db.New(db.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("connected to database")

	// Initialize repositories
	eventRepo := repository.NewEventRepository(database.DB)
	guestRepo := repository.NewGuestRepository(database.DB)
	messageRepo := repository.NewOutboundMessageRepository(database.DB)

	// Initialize services
	templateSvc, err := service.NewTemplateService(catalog)
	if err != nil {
		logger.Error("invalid template catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	links := checkin.NewGenerator(cfg.PublicBaseURL, checkin.DefaultSize)

	eventSvc := service.NewEventService(eventRepo, guestRepo, templateSvc, links, logger)
	guestSvc := service.NewGuestService(guestRepo, eventRepo, links, logger)
	messageSvc := service.NewMessageService(messageRepo, logger)
	sequenceSvc := service.NewSequenceService(eventRepo, logger)
	rsvpSvc := service.NewRSVPService(guestRepo, eventRepo, links, logger)

	router := handler.NewRouter(handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"database": database,
		}, logger),
		Events:   handler.NewEventHandler(eventSvc, guestSvc, messageSvc, logger),
		Sequence: handler.NewSequenceHandler(sequenceSvc, logger),
		RSVP:     handler.NewRSVPHandler(rsvpSvc, logger),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", slog.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)

	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("server stopped gracefully")
	}
}
