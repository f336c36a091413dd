package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// ErrQueueFull is returned by an in-memory queue that has no room left
var ErrQueueFull = errors.New("queue is full")

// memoryClient is a buffered channel queue for running dispatcher and
// consumer in one process without Redis
type memoryClient struct {
	jobs   chan models.MessageJob
	logger *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemoryClient creates an in-process queue holding up to capacity jobs
func NewMemoryClient(capacity int, logger *slog.Logger) Client {
	if capacity < 1 {
		capacity = 1
	}
	return &memoryClient{
		jobs:   make(chan models.MessageJob, capacity),
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Publish enqueues without blocking
func (c *memoryClient) Publish(ctx context.Context, job *models.MessageJob) error {
	select {
	case <-c.closed:
		return errors.New("queue is closed")
	default:
	}

	select {
	case c.jobs <- *job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume runs handler on queued jobs until ctx is done or the queue closes
func (c *memoryClient) Consume(ctx context.Context, handler MessageHandler, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case job := <-c.jobs:
			semaphore <- struct{}{}
			wg.Add(1)
			go func(job models.MessageJob) {
				defer func() {
					<-semaphore
					wg.Done()
				}()
				if err := handler(ctx, &job); err != nil {
					c.logger.Error("handler failed to process job",
						slog.Int64("message_id", job.OutboundMessageID),
						slog.String("error", err.Error()),
					)
				}
			}(job)
		}
	}
}

// Len returns the number of jobs waiting
func (c *memoryClient) Len(ctx context.Context) (int64, error) {
	return int64(len(c.jobs)), nil
}

// Close stops consumers; queued jobs are dropped
func (c *memoryClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Health reports an error once the queue is closed
func (c *memoryClient) Health(ctx context.Context) error {
	select {
	case <-c.closed:
		return errors.New("queue is closed")
	default:
		return nil
	}
}
