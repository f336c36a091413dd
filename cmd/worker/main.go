package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/config"
	"github.com/Raymond9734/event-rsvp-backend/internal/db"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/queue"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/service"
	"github.com/Raymond9734/event-rsvp-backend/internal/whatsapp"
	"github.com/Raymond9734/event-rsvp-backend/internal/worker"
)

// memoryQueueCapacity bounds the in-process queue
const memoryQueueCapacity = 10000

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to read .env", slog.String("error", err.Error()))
	}

	logger.Info("starting event RSVP worker")

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

	logger.Info("connected to database")

	queueClient, err := newQueue(cfg.Queue, logger)
	if err != nil {
		logger.Error("failed to connect to queue", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer queueClient.Close()

	logger.Info("queue ready", slog.String("backend", cfg.Queue.Backend))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, closeSender, err := newSender(ctx, cfg.Delivery, logger)
	if err != nil {
		logger.Error("failed to set up senders", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeSender()

	// Initialize repositories
	eventRepo := repository.NewEventRepository(database.DB)
	guestRepo := repository.NewGuestRepository(database.DB)
	messageRepo := repository.NewOutboundMessageRepository(database.DB)

	templateSvc, err := service.NewTemplateService(catalog)
	if err != nil {
		logger.Error("invalid template catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	links := checkin.NewGenerator(cfg.PublicBaseURL, checkin.DefaultSize)

	dispatcher := service.NewDispatchService(
		eventRepo,
		guestRepo,
		messageRepo,
		templateSvc,
		queueClient,
		links,
		service.DispatchConfig{
			MaxRetries: cfg.Worker.MaxRetryCount,
			StaleAfter: cfg.Worker.StalePendingAfter,
		},
		logger,
	)
	scheduler := worker.NewScheduler(dispatcher, cfg.Worker.DispatchInterval, logger)

	processor := worker.NewMessageProcessor(
		messageRepo,
		guestRepo,
		sender,
		cfg.Worker.MaxRetryCount,
		logger,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting dispatcher",
			slog.Duration("interval", cfg.Worker.DispatchInterval),
		)
		scheduler.Run(ctx)
	}()

	consumerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting message consumer",
			slog.Int("max_retry_count", cfg.Worker.MaxRetryCount),
			slog.Int("concurrency", cfg.Worker.Concurrency),
		)

		handler := func(ctx context.Context, job *models.MessageJob) error {
			return processor.Process(ctx, job)
		}

		consumerErrors <- queueClient.Consume(ctx, handler, cfg.Worker.Concurrency)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-consumerErrors:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer error", slog.String("error", err.Error()))
			cancel()
			wg.Wait()
			os.Exit(1)
		}

	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))

		cancel()

		// Consume returns once in-flight jobs finish
		select {
		case <-consumerErrors:
		case <-time.After(30 * time.Second):
			logger.Warn("timed out waiting for in-flight jobs")
		}
		wg.Wait()

		logger.Info("worker stopped gracefully")
	}
}

func newQueue(cfg config.QueueConfig, logger *slog.Logger) (queue.Client, error) {
	if cfg.Backend == config.QueueBackendMemory {
		return queue.NewMemoryClient(memoryQueueCapacity, logger), nil
	}
	return queue.NewRedisClient(queue.RedisConfig{
		URL:       cfg.RedisURL,
		QueueName: cfg.QueueName,
	}, logger)
}

// newSender registers one sender per configured channel. Channels without a
// sender fail their messages as undeliverable.
func newSender(ctx context.Context, cfg config.DeliveryConfig, logger *slog.Logger) (worker.MessageSender, func(), error) {
	router := worker.NewChannelRouter()
	closeFn := func() {}

	if cfg.Mock {
		mock := worker.NewMockSender(0.92, logger)
		for _, ch := range []string{models.ChannelEmail, models.ChannelWhatsApp, models.ChannelSMS} {
			router.Register(ch, mock)
		}
		logger.Info("using mock delivery for all channels")
		return router, closeFn, nil
	}

	if cfg.SMTP.Enabled() {
		router.Register(models.ChannelEmail, worker.NewEmailSender(worker.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}

	if cfg.Twilio.Enabled() {
		router.Register(models.ChannelSMS, worker.NewSMSSender(worker.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		}))
	}

	if cfg.WhatsApp.Enabled {
		wa, err := whatsapp.New(ctx, whatsapp.Config{DataDir: cfg.WhatsApp.DataDir})
		if err != nil {
			return nil, nil, err
		}
		if err := wa.Connect(ctx); err != nil {
			return nil, nil, err
		}
		router.Register(models.ChannelWhatsApp, worker.NewWhatsAppSender(wa))
		closeFn = wa.Disconnect
	}

	logger.Info("delivery channels configured", slog.Any("channels", router.Channels()))
	return router, closeFn, nil
}
