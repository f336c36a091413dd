package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/queue"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/sequence"
)

// requeueBatchSize bounds how many messages one run puts back on the queue
const requeueBatchSize = 500

// DispatchConfig holds the retry settings of the dispatcher
type DispatchConfig struct {
	MaxRetries int
	// pending messages untouched for this long are published again
	StaleAfter time.Duration
}

// DispatchService turns due sequence steps into queued outbound messages
type DispatchService interface {
	Dispatch(ctx context.Context) (*DispatchResult, error)
}

type dispatchService struct {
	eventRepo   repository.EventRepository
	guestRepo   repository.GuestRepository
	messageRepo repository.OutboundMessageRepository
	templateSvc TemplateService
	queueClient queue.Client
	links       *checkin.Generator
	cfg         DispatchConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	eventRepo repository.EventRepository,
	guestRepo repository.GuestRepository,
	messageRepo repository.OutboundMessageRepository,
	templateSvc TemplateService,
	queueClient queue.Client,
	links *checkin.Generator,
	cfg DispatchConfig,
	logger *slog.Logger,
) DispatchService {
	return &dispatchService{
		eventRepo:   eventRepo,
		guestRepo:   guestRepo,
		messageRepo: messageRepo,
		templateSvc: templateSvc,
		queueClient: queueClient,
		links:       links,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Dispatch creates the messages of every step that has come due and queues
// them. Messages are unique per guest, step and channel so running it again
// only picks up what is new. Failed messages with retries left and pending
// messages that were never picked up are queued again.
func (s *dispatchService) Dispatch(ctx context.Context) (*DispatchResult, error) {
	events, err := s.eventRepo.ListStarted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list started events: %w", err)
	}

	now := s.now()
	result := &DispatchResult{EventsScanned: len(events)}

	for _, event := range events {
		items, err := s.stableSequence(ctx, event)
		if err != nil {
			s.logger.Error("failed to store repaired message sequence",
				slog.Int64("event_id", event.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, item := range items {
			dueAt, started := event.SequenceDueAt(item.DayOffset)
			if !started || dueAt.After(now) {
				continue
			}
			result.StepsDue++

			queued, err := s.dispatchStep(ctx, event, item)
			if err != nil {
				s.logger.Error("failed to dispatch sequence step",
					slog.Int64("event_id", event.ID),
					slog.String("tracking_id", item.TrackingID),
					slog.String("error", err.Error()),
				)
				continue
			}
			result.MessagesQueued += queued
		}
	}

	requeued, err := s.requeue(ctx, now)
	if err != nil {
		return result, err
	}
	result.Requeued = requeued

	if result.MessagesQueued > 0 || result.Requeued > 0 {
		s.logger.Info("dispatch finished",
			slog.Int("events_scanned", result.EventsScanned),
			slog.Int("steps_due", result.StepsDue),
			slog.Int("messages_queued", result.MessagesQueued),
			slog.Int("requeued", result.Requeued),
		)
	}

	return result, nil
}

// stableSequence normalizes the stored sequence of event. Items stored without
// a tracking id get one minted, and the sequence is written back first so the
// ids, and with them message dedupe, hold across runs.
func (s *dispatchService) stableSequence(ctx context.Context, event *models.Event) ([]models.MessageSequenceItem, error) {
	items := sequence.NormalizeSequence(event.MessageSequence)
	if !sequence.MintedTrackingIDs(items) {
		return items, nil
	}

	data, err := encodeSequence(items, event.Plan)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.UpdateSequence(ctx, event.ID, data); err != nil {
		return nil, err
	}
	event.MessageSequence = data

	s.logger.Info("stored tracking ids for legacy sequence items", slog.Int64("event_id", event.ID))
	return items, nil
}

func (s *dispatchService) dispatchStep(ctx context.Context, event *models.Event, item models.MessageSequenceItem) (int, error) {
	guests, err := s.audience(ctx, event.ID, item.Conditions.AudienceType)
	if err != nil {
		return 0, err
	}

	channels := item.EffectiveChannels(event.Plan)
	messages := make([]*models.OutboundMessage, 0, len(guests)*len(channels))
	for _, guest := range guests {
		data := NewTemplateData(event, guest, &item, s.links.RSVPLink(guest.Token))

		for _, channel := range channels {
			if guest.RecipientFor(channel) == "" {
				s.logger.Debug("guest has no address for channel, skipping",
					slog.Int64("guest_id", guest.ID),
					slog.String("channel", channel),
				)
				continue
			}

			rendered, err := s.templateSvc.RenderForChannel(item.TemplateFor(channel), channel, data)
			if err != nil {
				s.logger.Error("failed to render message",
					slog.Int64("guest_id", guest.ID),
					slog.String("channel", channel),
					slog.String("error", err.Error()),
				)
				continue
			}

			messages = append(messages, &models.OutboundMessage{
				EventID:         event.ID,
				GuestID:         guest.ID,
				TrackingID:      item.TrackingID,
				Channel:         channel,
				Status:          models.MessageStatusPending,
				Subject:         rendered.Subject,
				RenderedContent: rendered.Body,
			})
		}
	}

	if len(messages) == 0 {
		return 0, nil
	}

	created, err := s.messageRepo.CreateBatch(ctx, messages)
	if err != nil {
		return 0, fmt.Errorf("failed to create messages: %w", err)
	}

	return s.publish(ctx, created), nil
}

// audience pages through the guests a step is addressed to
func (s *dispatchService) audience(ctx context.Context, eventID int64, audience models.AudienceType) ([]*models.Guest, error) {
	filter := models.GuestFilter{
		EventID:  eventID,
		Statuses: audience.Statuses(),
		Page:     1,
		PageSize: models.MaxPageSize,
	}

	var guests []*models.Guest
	for {
		page, total, err := s.guestRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list guests: %w", err)
		}
		guests = append(guests, page...)
		if len(page) == 0 || int64(len(guests)) >= total {
			return guests, nil
		}
		filter.Page++
	}
}

func (s *dispatchService) requeue(ctx context.Context, now time.Time) (int, error) {
	retryable, err := s.messageRepo.GetRetryable(ctx, s.cfg.MaxRetries, requeueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get retryable messages: %w", err)
	}

	stale, err := s.messageRepo.GetPendingMessages(ctx, now.Add(-s.cfg.StaleAfter), requeueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale pending messages: %w", err)
	}

	messages := make([]*models.OutboundMessage, 0, len(retryable)+len(stale))
	for _, message := range append(retryable, stale...) {
		// marking pending also moves updated_at so the next run skips it
		if err := s.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusPending, message.LastError); err != nil {
			s.logger.Error("failed to reset message for retry",
				slog.Int64("message_id", message.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		messages = append(messages, message)
	}

	return s.publish(ctx, messages), nil
}

func (s *dispatchService) publish(ctx context.Context, messages []*models.OutboundMessage) int {
	queuedCount := 0
	for _, message := range messages {
		job := &models.MessageJob{
			OutboundMessageID: message.ID,
		}

		if err := s.queueClient.Publish(ctx, job); err != nil {
			s.logger.Error("failed to queue message",
				slog.Int64("message_id", message.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		queuedCount++
	}
	return queuedCount
}
