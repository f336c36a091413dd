package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
)

// MessageProcessor processes message jobs from the queue
type MessageProcessor struct {
	messageRepo repository.OutboundMessageRepository
	guestRepo   repository.GuestRepository
	sender      MessageSender
	maxRetries  int
	logger      *slog.Logger
}

// NewMessageProcessor creates a new message processor
func NewMessageProcessor(
	messageRepo repository.OutboundMessageRepository,
	guestRepo repository.GuestRepository,
	sender MessageSender,
	maxRetries int,
	logger *slog.Logger,
) *MessageProcessor {
	return &MessageProcessor{
		messageRepo: messageRepo,
		guestRepo:   guestRepo,
		sender:      sender,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// Process handles a single message job
func (p *MessageProcessor) Process(ctx context.Context, job *models.MessageJob) error {
	message, err := p.messageRepo.GetByID(ctx, job.OutboundMessageID)
	if err != nil {
		p.logger.Error("failed to fetch message",
			slog.Int64("message_id", job.OutboundMessageID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	// a job can be published twice when the dispatcher requeues a stale
	// message that a worker is already holding
	if message.Status == models.MessageStatusSent {
		p.logger.Info("message already sent, skipping",
			slog.Int64("message_id", message.ID),
		)
		return nil
	}
	if !message.CanRetry(p.maxRetries) && message.Status == models.MessageStatusFailed {
		p.logger.Info("message out of retries, skipping",
			slog.Int64("message_id", message.ID),
			slog.Int("retry_count", message.RetryCount),
		)
		return nil
	}

	// the guest row is read at send time so a corrected address is used
	guest, err := p.guestRepo.GetByID(ctx, message.GuestID)
	if err != nil {
		p.logger.Error("failed to fetch guest",
			slog.Int64("guest_id", message.GuestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to fetch guest: %w", err)
	}

	delivery := Delivery{
		Channel: message.Channel,
		To:      guest.RecipientFor(message.Channel),
		Subject: message.Subject,
		Body:    message.RenderedContent,
	}

	p.logger.Info("processing message",
		slog.Int64("message_id", message.ID),
		slog.Int64("event_id", message.EventID),
		slog.Int64("guest_id", guest.ID),
		slog.String("tracking_id", message.TrackingID),
		slog.String("channel", message.Channel),
	)

	if err := p.sender.Send(ctx, delivery); err != nil {
		p.logger.Warn("message send failed",
			slog.Int64("message_id", message.ID),
			slog.Int("retry_count", message.RetryCount),
			slog.String("error", err.Error()),
		)

		return p.handleFailure(ctx, message, err)
	}

	p.logger.Info("message sent successfully",
		slog.Int64("message_id", message.ID),
		slog.String("channel", message.Channel),
	)

	return p.handleSuccess(ctx, message)
}

// handleSuccess updates message status to sent
func (p *MessageProcessor) handleSuccess(ctx context.Context, message *models.OutboundMessage) error {
	err := p.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusSent, nil)
	if err != nil {
		p.logger.Error("failed to update message status to sent",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update message status: %w", err)
	}

	return nil
}

// handleFailure handles send failures with retry logic
func (p *MessageProcessor) handleFailure(ctx context.Context, message *models.OutboundMessage, sendErr error) error {
	if err := p.messageRepo.IncrementRetryCount(ctx, message.ID); err != nil {
		p.logger.Error("failed to increment retry count",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	undeliverable := errors.Is(sendErr, ErrUndeliverable)

	if undeliverable || message.RetryCount+1 >= p.maxRetries {
		reason := "max retries exceeded"
		if undeliverable {
			reason = "undeliverable"
		}
		p.logger.Error("message permanently failed",
			slog.Int64("message_id", message.ID),
			slog.String("reason", reason),
			slog.Int("retry_count", message.RetryCount+1),
			slog.Int("max_retries", p.maxRetries),
		)

		errMsg := fmt.Sprintf("%s: %s", reason, sendErr.Error())
		var err error
		if undeliverable {
			err = p.messageRepo.MarkUndeliverable(ctx, message.ID, errMsg, p.maxRetries)
		} else {
			err = p.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusFailed, &errMsg)
		}
		if err != nil {
			p.logger.Error("failed to update message status to failed",
				slog.Int64("message_id", message.ID),
				slog.String("error", err.Error()),
			)
			return err
		}

		// job processed (albeit failed)
		return nil
	}

	p.logger.Info("message will be retried",
		slog.Int64("message_id", message.ID),
		slog.Int("retry_count", message.RetryCount+1),
		slog.Int("max_retries", p.maxRetries),
	)

	errMsg := sendErr.Error()
	if err := p.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusFailed, &errMsg); err != nil {
		p.logger.Error("failed to update message status",
			slog.Int64("message_id", message.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	// the dispatcher republishes failed messages that still have retries
	return fmt.Errorf("send failed, retry %d/%d: %w", message.RetryCount+1, p.maxRetries, sendErr)
}
