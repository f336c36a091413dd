package models

import "time"

// Guest represents an invited guest of an event
type Guest struct {
	ID          int64          `json:"id"`
	EventID     int64          `json:"eventId"`
	Fullname    string         `json:"fullname"`
	Phone       string         `json:"phone,omitempty"`
	Email       string         `json:"email,omitempty"`
	Token       string         `json:"-"`
	RSVPStatus  RSVPStatus     `json:"rsvpStatus"`
	Responses   map[string]any `json:"responses,omitempty"`
	RespondedAt *time.Time     `json:"respondedAt,omitempty"`
	CheckedInAt *time.Time     `json:"checkedInAt,omitempty"`
}

// GuestFilter holds filtering options for listing guests
type GuestFilter struct {
	EventID  int64
	Statuses []RSVPStatus
	Page     int
	PageSize int
}

// Validate performs basic validation on guest data
func (g *Guest) Validate() error {
	if g.Fullname == "" {
		return ErrInvalidInput("fullname is required")
	}
	if g.Phone == "" && g.Email == "" {
		return ErrInvalidInput("phone or email is required")
	}
	return nil
}

// RecipientFor returns the address a message on channel is delivered to
func (g *Guest) RecipientFor(channel string) string {
	if channel == ChannelEmail {
		return g.Email
	}
	return g.Phone
}
