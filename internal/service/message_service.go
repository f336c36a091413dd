package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
)

// MessageService exposes the delivery log of outbound messages
type MessageService interface {
	GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error)
	List(ctx context.Context, filter models.OutboundMessageFilter) (*MessageListResult, error)
}

type messageService struct {
	messageRepo repository.OutboundMessageRepository
	logger      *slog.Logger
}

// NewMessageService creates a new message service
func NewMessageService(
	messageRepo repository.OutboundMessageRepository,
	logger *slog.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// GetByID retrieves a message by ID
func (s *messageService) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return message, nil
}

// List retrieves messages with pagination
func (s *messageService) List(ctx context.Context, filter models.OutboundMessageFilter) (*MessageListResult, error) {
	if filter.Status != "" && !models.IsValidMessageStatus(filter.Status) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("invalid status: %s", filter.Status))
	}
	if filter.Channel != "" && !models.IsValidChannel(filter.Channel) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("invalid channel: %s", filter.Channel))
	}

	messages, totalCount, err := s.messageRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list messages",
			slog.Int64("event_id", filter.EventID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	return &MessageListResult{
		Data:       messages,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	}, nil
}
