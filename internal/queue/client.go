package queue

import (
	"context"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// Client defines the interface for delivery queue operations
type Client interface {
	// Publish puts a delivery job on the queue
	Publish(ctx context.Context, job *models.MessageJob) error

	// Consume hands jobs to handler until ctx is done, running at most
	// concurrency handlers at once. In-flight handlers finish before it returns.
	Consume(ctx context.Context, handler MessageHandler, concurrency int) error

	// Len returns the number of jobs waiting
	Len(ctx context.Context) (int64, error)

	// Close closes the queue connection
	Close() error

	// Health checks if the queue is healthy
	Health(ctx context.Context) error
}

// MessageHandler processes one delivery job
type MessageHandler func(ctx context.Context, job *models.MessageJob) error
