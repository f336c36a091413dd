package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
	"github.com/Raymond9734/event-rsvp-backend/internal/sequence"
)

// SequenceService loads, edits and stores event message sequences
type SequenceService interface {
	Get(ctx context.Context, eventID int64) (*SequenceView, error)
	Save(ctx context.Context, eventID int64, raw json.RawMessage) (*SequenceView, error)
	Reset(ctx context.Context, eventID int64) (*SequenceView, error)
	ApplyOp(ctx context.Context, eventID int64, req *SequenceOpRequest) (*SequenceOpResult, error)
}

type sequenceService struct {
	eventRepo repository.EventRepository
	logger    *slog.Logger
}

// NewSequenceService creates a new sequence service
func NewSequenceService(eventRepo repository.EventRepository, logger *slog.Logger) SequenceService {
	return &sequenceService{
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Get returns the stored sequence in canonical form. Whatever is stored,
// including legacy or corrupt data, comes back as a usable sequence.
func (s *sequenceService) Get(ctx context.Context, eventID int64) (*SequenceView, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return newSequenceView(event, sequence.NormalizeSequence(event.MessageSequence)), nil
}

// Save replaces the sequence with raw, which may be in any accepted legacy shape
func (s *sequenceService) Save(ctx context.Context, eventID int64, raw json.RawMessage) (*SequenceView, error) {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, models.ErrInvalidInput("message sequence must be valid JSON")
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	items := sequence.NormalizeSequence(raw)
	if len(items) > models.MaxSequenceItems {
		return nil, models.ErrInvalidInput(fmt.Sprintf(
			"message sequence has %d items, at most %d are allowed", len(items), models.MaxSequenceItems))
	}

	return s.store(ctx, event, items)
}

// Reset replaces the sequence with the default for the event's package
func (s *sequenceService) Reset(ctx context.Context, eventID int64) (*SequenceView, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	warnUnknownPackage(s.logger, event.ServicePackage)
	items := sequence.DefaultSequence(event.ServicePackage, event.Plan.AllowWhatsApp, event.Plan.AllowSMS)

	return s.store(ctx, event, items)
}

// ApplyOp runs one editor operation. The sequence is only written when the
// editor reports a change.
func (s *sequenceService) ApplyOp(ctx context.Context, eventID int64, req *SequenceOpRequest) (*SequenceOpResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var next []models.MessageSequenceItem
	changed := false
	editor := sequence.NewEditor(sequence.NormalizeSequence(event.MessageSequence), event.Plan,
		func(items []models.MessageSequenceItem) {
			next = items
			changed = true
		})

	if err := applyEditorOp(editor, req); err != nil {
		return nil, err
	}

	if !changed {
		return &SequenceOpResult{
			Changed:  false,
			Sequence: newSequenceView(event, editor.Value()),
		}, nil
	}

	view, err := s.store(ctx, event, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("message sequence edited",
		slog.Int64("event_id", eventID),
		slog.String("op", req.Op),
		slog.Int("items", len(next)),
	)

	return &SequenceOpResult{Changed: true, Sequence: view}, nil
}

func (s *sequenceService) store(ctx context.Context, event *models.Event, items []models.MessageSequenceItem) (*SequenceView, error) {
	stored, err := encodeSequence(items, event.Plan)
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.UpdateSequence(ctx, event.ID, stored); err != nil {
		s.logger.Error("failed to store message sequence",
			slog.String("error", err.Error()),
			slog.Int64("event_id", event.ID),
		)
		return nil, err
	}
	event.MessageSequence = stored

	// reread what was written so the view shows the plan gating applied
	return newSequenceView(event, sequence.NormalizeSequence(stored)), nil
}

func applyEditorOp(editor *sequence.Editor, req *SequenceOpRequest) error {
	switch req.Op {
	case OpAdd:
		editor.Add()
	case OpRemove:
		editor.Remove(req.Index)
	case OpMove:
		editor.Move(req.Index, req.To)
	case OpRename:
		var name string
		if err := json.Unmarshal(req.Value, &name); err != nil {
			return models.ErrInvalidInput("value must be a string for rename")
		}
		editor.SetName(req.Index, name)
	case OpSetDayOffset:
		var dayOffset int
		if err := json.Unmarshal(req.Value, &dayOffset); err != nil {
			return models.ErrInvalidInput("value must be an integer for set_day_offset")
		}
		editor.SetDayOffset(req.Index, dayOffset)
	case OpSetAudience:
		var audience models.AudienceType
		if err := json.Unmarshal(req.Value, &audience); err != nil || !audience.IsValid() {
			return models.ErrInvalidInput("value must be one of all, responders, yes, no, pending")
		}
		editor.SetAudience(req.Index, audience)
	case OpToggleWhatsApp:
		editor.ToggleWhatsApp(req.Index)
	case OpToggleSMS:
		editor.ToggleSMS(req.Index)
	}
	return nil
}

func newSequenceView(event *models.Event, items []models.MessageSequenceItem) *SequenceView {
	editor := sequence.NewEditor(items, event.Plan, nil)

	views := make([]SequenceItemView, len(items))
	for i, item := range items {
		status, _ := editor.ChannelStatus(i)
		views[i] = SequenceItemView{
			MessageSequenceItem: item,
			ChannelStatus: ChannelStatusView{
				Email:    status.Email,
				WhatsApp: status.WhatsApp,
				SMS:      status.SMS,
			},
		}
	}

	controls := editor.Controls()
	return &SequenceView{
		EventID:        event.ID,
		ServicePackage: event.ServicePackage,
		Plan:           event.Plan,
		MaxItems:       models.MaxSequenceItems,
		Items:          views,
		Controls: SequenceControls{
			AddDisabled:            controls.AddDisabled,
			WhatsAppToggleDisabled: controls.WhatsAppToggleDisabled,
			SMSToggleDisabled:      controls.SMSToggleDisabled,
		},
	}
}
