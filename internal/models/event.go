package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServicePackage is the tier an event was purchased under
type ServicePackage string

// Service package constants
const (
	PackageInvitationOnly ServicePackage = "invitation-only"
	PackageOneTimeRSVP    ServicePackage = "one-time-rsvp"
	PackageStandardRSVP   ServicePackage = "standard-rsvp"
	PackageFullRSVP       ServicePackage = "full-rsvp"
)

// Plan holds the channel permissions granted to an event
type Plan struct {
	AllowWhatsApp bool `json:"allowWhatsApp"`
	AllowSMS      bool `json:"allowSms"`
}

// Event represents an event guests are invited to
type Event struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Date              time.Time       `json:"date"`
	Location          string          `json:"location,omitempty"`
	ImageURL          string          `json:"image,omitempty"`
	Description       string          `json:"description,omitempty"`
	ServicePackage    ServicePackage  `json:"servicePackage"`
	Plan              Plan            `json:"plan"`
	MessageSequence   json.RawMessage `json:"-"`
	Form              RSVPForm        `json:"form"`
	SequenceStartedAt *time.Time      `json:"sequenceStartedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// EventFilter holds filtering options for listing events
type EventFilter struct {
	ServicePackage string
	Page           int
	PageSize       int
}

// Validate performs validation on event data
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrInvalidInput("name is required")
	}
	if e.Date.IsZero() {
		return ErrInvalidInput("date is required")
	}
	if e.ServicePackage == "" {
		return ErrInvalidInput("servicePackage is required")
	}
	for i, field := range e.Form.Fields {
		if err := field.Validate(); err != nil {
			return ErrInvalidInput(fmt.Sprintf("form field %d: %s", i, err.Error()))
		}
	}
	return nil
}

// Summary returns the event fields exposed on an RSVP record
func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		Location:    e.Location,
		Image:       e.ImageURL,
		Description: e.Description,
	}
}

// SequenceDueAt returns when a step with the given day offset becomes due.
// ok is false while the sequence has not been started.
func (e *Event) SequenceDueAt(dayOffset int) (time.Time, bool) {
	if e.SequenceStartedAt == nil {
		return time.Time{}, false
	}
	return e.SequenceStartedAt.AddDate(0, 0, dayOffset), true
}
