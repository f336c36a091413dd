package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/sequence"
)

// EventService handles event business logic
type EventService interface {
	Create(ctx context.Context, req *CreateEventRequest) (*models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) (*EventListResult, error)
	StartSequence(ctx context.Context, id int64) (*StartSequenceResult, error)
	Preview(ctx context.Context, eventID int64, req *PreviewRequest) (*PreviewResult, error)
}

type eventService struct {
	eventRepo   repository.EventRepository
	guestRepo   repository.GuestRepository
	templateSvc TemplateService
	links       *checkin.Generator
	logger      *slog.Logger
	now         func() time.Time
}

// NewEventService creates a new event service
func NewEventService(
	eventRepo repository.EventRepository,
	guestRepo repository.GuestRepository,
	templateSvc TemplateService,
	links *checkin.Generator,
	logger *slog.Logger,
) EventService {
	return &eventService{
		eventRepo:   eventRepo,
		guestRepo:   guestRepo,
		templateSvc: templateSvc,
		links:       links,
		logger:      logger,
		now:         time.Now,
	}
}

// Create creates an event seeded with the default sequence of its package
func (s *eventService) Create(ctx context.Context, req *CreateEventRequest) (*models.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event := &models.Event{
		Name:           strings.TrimSpace(req.Name),
		Date:           req.Date,
		Location:       req.Location,
		ImageURL:       req.Image,
		Description:    req.Description,
		ServicePackage: req.ServicePackage,
		Plan:           models.Plan{AllowWhatsApp: req.AllowWhatsApp, AllowSMS: req.AllowSMS},
		Form:           req.Form,
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	warnUnknownPackage(s.logger, event.ServicePackage)

	items := sequence.DefaultSequence(event.ServicePackage, event.Plan.AllowWhatsApp, event.Plan.AllowSMS)
	stored, err := encodeSequence(items, event.Plan)
	if err != nil {
		return nil, err
	}
	event.MessageSequence = stored

	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Error("failed to create event",
			slog.String("error", err.Error()),
			slog.String("name", event.Name),
		)
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("event created",
		slog.Int64("event_id", event.ID),
		slog.String("service_package", string(event.ServicePackage)),
		slog.Int("sequence_items", len(items)),
	)

	return event, nil
}

// GetByID retrieves an event
func (s *eventService) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

// List retrieves events with pagination
func (s *eventService) List(ctx context.Context, filter models.EventFilter) (*EventListResult, error) {
	events, totalCount, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	return &EventListResult{
		Data:       events,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	}, nil
}

// StartSequence starts the clock day offsets are measured from. Starting an
// already started event returns the original start time.
func (s *eventService) StartSequence(ctx context.Context, id int64) (*StartSequenceResult, error) {
	startedAt, err := s.eventRepo.StartSequence(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("message sequence started",
		slog.Int64("event_id", id),
		slog.Time("started_at", startedAt),
	)

	return &StartSequenceResult{EventID: id, StartedAt: startedAt}, nil
}

// Preview renders one sequence step for one guest
func (s *eventService) Preview(ctx context.Context, eventID int64, req *PreviewRequest) (*PreviewResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	guest, err := s.guestRepo.GetByID(ctx, req.GuestID)
	if err != nil {
		return nil, err
	}
	if guest.EventID != event.ID {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("guest %d is not invited to event %d", guest.ID, event.ID))
	}

	var item *models.MessageSequenceItem
	items := sequence.NormalizeSequence(event.MessageSequence)
	for i := range items {
		if items[i].TrackingID == req.TrackingID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("sequence step %s not found", req.TrackingID))
	}

	data := NewTemplateData(event, guest, item, s.links.RSVPLink(guest.Token))
	rendered, err := s.templateSvc.RenderForChannel(item.TemplateFor(req.Channel), req.Channel, data)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		Channel: req.Channel,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	}, nil
}

// encodeSequence serializes items under plan into the stored JSON form
func encodeSequence(items []models.MessageSequenceItem, plan models.Plan) (json.RawMessage, error) {
	data, err := json.Marshal(sequence.SerializeSequence(items, plan.AllowWhatsApp, plan.AllowSMS))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message sequence: %w", err)
	}
	return data, nil
}

// warnUnknownPackage flags packages that silently get the full sequence
func warnUnknownPackage(logger *slog.Logger, pkg models.ServicePackage) {
	if sequence.IsKnownServicePackage(pkg) {
		return
	}
	logger.Warn("unknown service package, using the full message sequence",
		slog.String("service_package", string(pkg)),
	)
}
