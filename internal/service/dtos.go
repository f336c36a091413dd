package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// CreateEventRequest represents a request to create an event
type CreateEventRequest struct {
	Name           string                `json:"name"`
	Date           time.Time             `json:"date"`
	Location       string                `json:"location,omitempty"`
	Image          string                `json:"image,omitempty"`
	Description    string                `json:"description,omitempty"`
	ServicePackage models.ServicePackage `json:"servicePackage"`
	AllowWhatsApp  bool                  `json:"allowWhatsApp"`
	AllowSMS       bool                  `json:"allowSms"`
	Form           models.RSVPForm       `json:"form"`
}

// Validate performs validation on the create event request
func (r *CreateEventRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return models.ErrInvalidInput("name is required")
	}
	if r.Date.IsZero() {
		return models.ErrInvalidInput("date is required")
	}
	if r.ServicePackage == "" {
		return models.ErrInvalidInput("servicePackage is required")
	}
	return nil
}

// EventListResult represents paginated event list results
type EventListResult struct {
	Data       []*models.Event         `json:"data"`
	Pagination models.PaginationResult `json:"pagination"`
}

// CreateGuestRequest represents a request to invite a guest to an event
type CreateGuestRequest struct {
	Fullname string `json:"fullname"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// GuestView is a guest as returned to organisers, including their links
type GuestView struct {
	*models.Guest
	RSVPLink    string `json:"rsvpLink"`
	CheckInLink string `json:"checkInLink"`
}

// GuestListResult represents paginated guest list results
type GuestListResult struct {
	Data       []*GuestView            `json:"data"`
	Pagination models.PaginationResult `json:"pagination"`
}

// MessageListResult represents paginated outbound message results
type MessageListResult struct {
	Data       []*models.OutboundMessage `json:"data"`
	Pagination models.PaginationResult   `json:"pagination"`
}

// SequenceItemView is a normalized sequence step plus what the editor shows
// for its channels
type SequenceItemView struct {
	models.MessageSequenceItem
	ChannelStatus ChannelStatusView `json:"channelStatus"`
}

// ChannelStatusView is the read-only per-channel label of a step
type ChannelStatusView struct {
	Email    string `json:"email"`
	WhatsApp string `json:"whatsapp"`
	SMS      string `json:"bulkSms"`
}

// SequenceControls says which editor controls are interactive
type SequenceControls struct {
	AddDisabled            bool `json:"addDisabled"`
	WhatsAppToggleDisabled bool `json:"whatsappToggleDisabled"`
	SMSToggleDisabled      bool `json:"bulkSmsToggleDisabled"`
}

// SequenceView is an event's message sequence in canonical form
type SequenceView struct {
	EventID        int64                 `json:"eventId"`
	ServicePackage models.ServicePackage `json:"servicePackage"`
	Plan           models.Plan           `json:"plan"`
	MaxItems       int                   `json:"maxItems"`
	Items          []SequenceItemView    `json:"items"`
	Controls       SequenceControls      `json:"controls"`
}

// Sequence editor operation names
const (
	OpAdd            = "add"
	OpRemove         = "remove"
	OpMove           = "move"
	OpRename         = "rename"
	OpSetDayOffset   = "set_day_offset"
	OpSetAudience    = "set_audience"
	OpToggleWhatsApp = "toggle_whatsapp"
	OpToggleSMS      = "toggle_sms"
)

// SequenceOpRequest is one editor operation against a stored sequence
type SequenceOpRequest struct {
	Op    string          `json:"op"`
	Index int             `json:"index"`
	To    int             `json:"to"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Validate performs validation on the operation request
func (r *SequenceOpRequest) Validate() error {
	switch r.Op {
	case OpAdd, OpRemove, OpMove, OpToggleWhatsApp, OpToggleSMS:
		return nil
	case OpRename, OpSetDayOffset, OpSetAudience:
		if len(r.Value) == 0 {
			return models.ErrInvalidInput("value is required for " + r.Op)
		}
		return nil
	case "":
		return models.ErrInvalidInput("op is required")
	default:
		return models.ErrInvalidInput("unknown op " + r.Op)
	}
}

// SequenceOpResult reports whether an operation changed the sequence
type SequenceOpResult struct {
	Changed  bool          `json:"changed"`
	Sequence *SequenceView `json:"sequence"`
}

// PreviewRequest asks for one step rendered for one guest
type PreviewRequest struct {
	GuestID    int64  `json:"guestId"`
	TrackingID string `json:"trackingId"`
	Channel    string `json:"channel"`
}

// Validate performs validation on the preview request
func (r *PreviewRequest) Validate() error {
	if r.GuestID <= 0 {
		return models.ErrInvalidInput("guestId is required")
	}
	if r.TrackingID == "" {
		return models.ErrInvalidInput("trackingId is required")
	}
	if r.Channel == "" {
		r.Channel = models.ChannelEmail
	}
	if !models.IsValidChannel(r.Channel) {
		return models.ErrInvalidInput("invalid channel (must be 'email', 'whatsapp' or 'sms')")
	}
	return nil
}

// PreviewResult is a rendered step
type PreviewResult struct {
	Channel string `json:"channel"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// StartSequenceResult reports when an event's sequence started
type StartSequenceResult struct {
	EventID   int64     `json:"eventId"`
	StartedAt time.Time `json:"startedAt"`
}

// CheckInResult is returned when a guest is checked in
type CheckInResult struct {
	Guest       models.GuestSummary `json:"guest"`
	EventID     int64               `json:"eventId"`
	CheckedInAt time.Time           `json:"checkedInAt"`
}

// DispatchResult summarises one dispatcher run
type DispatchResult struct {
	EventsScanned  int `json:"eventsScanned"`
	StepsDue       int `json:"stepsDue"`
	MessagesQueued int `json:"messagesQueued"`
	Requeued       int `json:"requeued"`
}
