package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/service"
)

// Scheduler runs the dispatcher on a fixed interval
type Scheduler struct {
	dispatcher service.DispatchService
	interval   time.Duration
	logger     *slog.Logger
}

// NewScheduler creates a scheduler for dispatcher
func NewScheduler(dispatcher service.DispatchService, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Run dispatches once immediately and then on every tick until ctx is done
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	result, err := s.dispatcher.Dispatch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("dispatch run failed", slog.String("error", err.Error()))
		return
	}

	s.logger.Info("dispatch run finished",
		slog.Int("events_scanned", result.EventsScanned),
		slog.Int("steps_due", result.StepsDue),
		slog.Int("messages_queued", result.MessagesQueued),
		slog.Int("requeued", result.Requeued),
		slog.Duration("took", time.Since(start)),
	)
}
