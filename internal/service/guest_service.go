package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
)

// GuestService handles guest list business logic
type GuestService interface {
	Create(ctx context.Context, eventID int64, req *CreateGuestRequest) (*GuestView, error)
	GetByID(ctx context.Context, id int64) (*GuestView, error)
	List(ctx context.Context, filter models.GuestFilter) (*GuestListResult, error)
}

type guestService struct {
	guestRepo repository.GuestRepository
	eventRepo repository.EventRepository
	links     *checkin.Generator
	logger    *slog.Logger
}

// NewGuestService creates a new guest service
func NewGuestService(
	guestRepo repository.GuestRepository,
	eventRepo repository.EventRepository,
	links *checkin.Generator,
	logger *slog.Logger,
) GuestService {
	return &guestService{
		guestRepo: guestRepo,
		eventRepo: eventRepo,
		links:     links,
		logger:    logger,
	}
}

// Create invites a guest to an event
func (s *guestService) Create(ctx context.Context, eventID int64, req *CreateGuestRequest) (*GuestView, error) {
	guest := &models.Guest{
		EventID:    eventID,
		Fullname:   strings.TrimSpace(req.Fullname),
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.TrimSpace(req.Email),
		RSVPStatus: models.RSVPPending,
	}
	if err := guest.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	if err := s.guestRepo.Create(ctx, guest); err != nil {
		s.logger.Error("failed to create guest",
			slog.Int64("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}

	s.logger.Info("guest invited",
		slog.Int64("guest_id", guest.ID),
		slog.Int64("event_id", eventID),
	)

	return s.view(guest), nil
}

// GetByID retrieves a guest
func (s *guestService) GetByID(ctx context.Context, id int64) (*GuestView, error) {
	guest, err := s.guestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(guest), nil
}

// List retrieves the guests of an event, optionally by RSVP status
func (s *guestService) List(ctx context.Context, filter models.GuestFilter) (*GuestListResult, error) {
	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, models.ErrInvalidInput(fmt.Sprintf("invalid rsvp status: %s", status))
		}
	}

	guests, totalCount, err := s.guestRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	views := make([]*GuestView, len(guests))
	for i, guest := range guests {
		views[i] = s.view(guest)
	}

	return &GuestListResult{
		Data:       views,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	}, nil
}

func (s *guestService) view(guest *models.Guest) *GuestView {
	return &GuestView{
		Guest:       guest,
		RSVPLink:    s.links.RSVPLink(guest.Token),
		CheckInLink: s.links.Link(guest.Token),
	}
}
