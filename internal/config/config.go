package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Queue    QueueConfig
	API      APIConfig
	Worker   WorkerConfig
	Delivery DeliveryConfig

	// PublicBaseURL is where guests reach RSVP and check-in links
	PublicBaseURL string

	// TemplatesFile is an optional YAML message template catalog
	TemplatesFile string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Queue backends
const (
	QueueBackendRedis  = "redis"
	QueueBackendMemory = "memory"
)

// QueueConfig holds queue configuration
type QueueConfig struct {
	// Backend is "redis" or "memory". The memory queue only works when the
	// dispatcher and the consumer share a process, as in cmd/worker.
	Backend   string
	RedisURL  string
	QueueName string
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port int
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Concurrency       int
	MaxRetryCount     int
	DispatchInterval  time.Duration
	// pending messages untouched this long are published again
	StalePendingAfter time.Duration
}

// DeliveryConfig selects and configures the channel senders
type DeliveryConfig struct {
	// Mock logs messages instead of sending them
	Mock bool

	SMTP     SMTPConfig
	Twilio   TwilioConfig
	WhatsApp WhatsAppConfig
}

// SMTPConfig configures email delivery
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether email delivery is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// TwilioConfig configures SMS delivery
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Enabled reports whether SMS delivery is configured
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// WhatsAppConfig configures the WhatsApp session
type WhatsAppConfig struct {
	Enabled bool
	DataDir string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	apiPort, err := strconv.Atoi(getEnv("API_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_PORT: %w", err)
	}

	workerConcurrency, err := strconv.Atoi(getEnv("WORKER_CONCURRENCY", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	maxRetryCount, err := strconv.Atoi(getEnv("MAX_RETRY_COUNT", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RETRY_COUNT: %w", err)
	}

	dispatchInterval, err := time.ParseDuration(getEnv("DISPATCH_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_INTERVAL: %w", err)
	}
	if dispatchInterval <= 0 {
		return nil, fmt.Errorf("invalid DISPATCH_INTERVAL: must be positive")
	}

	stalePendingAfter, err := time.ParseDuration(getEnv("STALE_PENDING_AFTER", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_PENDING_AFTER: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	mock, err := strconv.ParseBool(getEnv("DELIVERY_MOCK", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELIVERY_MOCK: %w", err)
	}

	queueBackend := getEnv("QUEUE_BACKEND", QueueBackendRedis)
	if queueBackend != QueueBackendRedis && queueBackend != QueueBackendMemory {
		return nil, fmt.Errorf("invalid QUEUE_BACKEND: %q (must be %q or %q)", queueBackend, QueueBackendRedis, QueueBackendMemory)
	}

	whatsAppEnabled, err := strconv.ParseBool(getEnv("WHATSAPP_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid WHATSAPP_ENABLED: %w", err)
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "event_rsvp"),
			Password: getEnv("DB_PASSWORD", "event_rsvp"),
			DBName:   getEnv("DB_NAME", "event_rsvp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Queue: QueueConfig{
			Backend:   queueBackend,
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
			QueueName: getEnv("QUEUE_NAME", "event_messages"),
		},
		API: APIConfig{
			Port: apiPort,
		},
		Worker: WorkerConfig{
			Concurrency:       workerConcurrency,
			MaxRetryCount:     maxRetryCount,
			DispatchInterval:  dispatchInterval,
			StalePendingAfter: stalePendingAfter,
		},
		Delivery: DeliveryConfig{
			Mock: mock,
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     smtpPort,
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
				From:     getEnv("SMTP_FROM", ""),
			},
			Twilio: TwilioConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			},
			WhatsApp: WhatsAppConfig{
				Enabled: whatsAppEnabled,
				DataDir: getEnv("WHATSAPP_DATA_DIR", "./data"),
			},
		},
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", apiPort)),
		TemplatesFile: getEnv("TEMPLATES_FILE", ""),
	}, nil
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
