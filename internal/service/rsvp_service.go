package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/rsvp"
)

// RSVPService serves guest RSVP pages addressed by token. Its method set
// matches rsvp.Backend so a session can drive it in process.
type RSVPService interface {
	Fetch(ctx context.Context, token string) (*models.RSVPRecord, error)
	ValidateName(ctx context.Context, token, fullname string) error
	Submit(ctx context.Context, token string, req models.SubmitRSVPRequest) (*models.RSVPState, error)
	CheckIn(ctx context.Context, token string) (*CheckInResult, error)
	QRCode(ctx context.Context, token string) ([]byte, error)
}

type rsvpService struct {
	guestRepo repository.GuestRepository
	eventRepo repository.EventRepository
	codes     *checkin.Generator
	logger    *slog.Logger
	now       func() time.Time
}

// NewRSVPService creates a new RSVP service
func NewRSVPService(
	guestRepo repository.GuestRepository,
	eventRepo repository.EventRepository,
	codes *checkin.Generator,
	logger *slog.Logger,
) RSVPService {
	return &rsvpService{
		guestRepo: guestRepo,
		eventRepo: eventRepo,
		codes:     codes,
		logger:    logger,
		now:       time.Now,
	}
}

// Fetch returns the RSVP record behind token
func (s *rsvpService) Fetch(ctx context.Context, token string) (*models.RSVPRecord, error) {
	guest, event, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	return newRSVPRecord(guest, event), nil
}

// ValidateName checks fullname against the guest on record
func (s *rsvpService) ValidateName(ctx context.Context, token, fullname string) error {
	guest, err := s.guestRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if !namesMatch(guest.Fullname, fullname) {
		s.logger.Info("rsvp name validation failed", slog.Int64("guest_id", guest.ID))
		return models.ErrUnauthorizedWithMsg("The name you entered does not match our guest list")
	}
	return nil
}

// Submit records an answer. Every check the RSVP page makes is repeated here.
func (s *rsvpService) Submit(ctx context.Context, token string, req models.SubmitRSVPRequest) (*models.RSVPState, error) {
	fullname := strings.TrimSpace(req.Fullname)
	if fullname == "" {
		return nil, models.ErrInvalidInput("fullname is required")
	}
	if !req.Status.IsAnswer() {
		return nil, models.ErrInvalidInput("status must be one of yes, no, maybe")
	}

	guest, event, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	if models.IsLocked(event.Form.AllowUpdates, guest.RSVPStatus) {
		return nil, models.ErrLockedWithMsg("Your RSVP has already been recorded and can no longer be changed")
	}

	responses := maps.Clone(req.Responses)
	if responses == nil {
		responses = make(map[string]any)
	}
	for _, f := range rsvp.RenderedFields(event.Form) {
		if err := f.Validate(responses[f.Definition().Name]); err != nil {
			return nil, err
		}
	}

	if event.Form.EnableNameValidation && !namesMatch(guest.Fullname, fullname) {
		return nil, models.ErrUnauthorizedWithMsg("The name you entered does not match our guest list")
	}

	responses[models.AttendanceField] = string(req.Status)
	respondedAt := s.now().UTC()
	state := models.RSVPState{
		Status:      req.Status,
		Responses:   responses,
		RespondedAt: &respondedAt,
	}

	if err := s.guestRepo.SaveResponse(ctx, guest.ID, state, event.Form.AllowUpdates); err != nil {
		if !models.HasCode(err, models.CodeLocked) {
			s.logger.Error("failed to save rsvp",
				slog.String("error", err.Error()),
				slog.Int64("guest_id", guest.ID),
			)
		}
		return nil, err
	}

	s.logger.Info("rsvp recorded",
		slog.Int64("guest_id", guest.ID),
		slog.Int64("event_id", event.ID),
		slog.String("status", string(req.Status)),
	)

	return &state, nil
}

// CheckIn marks the guest behind token as arrived
func (s *rsvpService) CheckIn(ctx context.Context, token string) (*CheckInResult, error) {
	guest, err := s.guestRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	checkedInAt, err := s.guestRepo.CheckIn(ctx, guest.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("guest checked in",
		slog.Int64("guest_id", guest.ID),
		slog.Int64("event_id", guest.EventID),
	)

	return &CheckInResult{
		Guest:       models.GuestSummary{ID: guest.ID, Fullname: guest.Fullname},
		EventID:     guest.EventID,
		CheckedInAt: checkedInAt,
	}, nil
}

// QRCode renders the check-in code for the guest behind token
func (s *rsvpService) QRCode(ctx context.Context, token string) ([]byte, error) {
	if _, err := s.guestRepo.GetByToken(ctx, token); err != nil {
		return nil, err
	}
	return s.codes.PNG(token)
}

func (s *rsvpService) load(ctx context.Context, token string) (*models.Guest, *models.Event, error) {
	guest, err := s.guestRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, guest.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load event for guest %d: %w", guest.ID, err)
	}

	return guest, event, nil
}

func newRSVPRecord(guest *models.Guest, event *models.Event) *models.RSVPRecord {
	status := guest.RSVPStatus
	if status == "" {
		status = models.RSVPPending
	}
	responses := guest.Responses
	if responses == nil {
		responses = map[string]any{}
	}

	return &models.RSVPRecord{
		Guest: models.GuestSummary{ID: guest.ID, Fullname: guest.Fullname},
		Event: event.Summary(),
		RSVP: models.RSVPState{
			Status:      status,
			Responses:   responses,
			RespondedAt: guest.RespondedAt,
		},
		Form: event.Form,
	}
}

// namesMatch compares names ignoring case, surrounding space and repeated
// inner space
func namesMatch(expected, given string) bool {
	return strings.EqualFold(collapseSpaces(expected), collapseSpaces(given))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
