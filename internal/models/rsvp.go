package models

import (
	"errors"
	"time"
)

// RSVPStatus represents a guest's attendance answer
type RSVPStatus string

const (
	RSVPPending RSVPStatus = "pending"
	RSVPYes     RSVPStatus = "yes"
	RSVPNo      RSVPStatus = "no"
	RSVPMaybe   RSVPStatus = "maybe"
)

// AttendanceField is the response key mirrored from the top-level status
const AttendanceField = "attendance"

// IsValid reports whether s is one of the four known statuses
func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPPending, RSVPYes, RSVPNo, RSVPMaybe:
		return true
	default:
		return false
	}
}

// IsAnswer reports whether s is a submittable answer (anything but pending)
func (s RSVPStatus) IsAnswer() bool {
	return s == RSVPYes || s == RSVPNo || s == RSVPMaybe
}

// FieldType enumerates the dynamic form control kinds
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldNumber   FieldType = "number"
)

// NeedsOptions reports whether fields of this type must declare options
func (t FieldType) NeedsOptions() bool {
	return t == FieldSelect || t == FieldRadio || t == FieldCheckbox
}

// RSVPField describes one question on an event's RSVP form
type RSVPField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// Validate checks a field definition
func (f RSVPField) Validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.Type.NeedsOptions() && len(f.Options) == 0 {
		return errors.New("options are required for " + string(f.Type) + " fields")
	}
	return nil
}

// RSVPForm is the form configuration of an event
type RSVPForm struct {
	Fields               []RSVPField `json:"fields"`
	AllowUpdates         bool        `json:"allowUpdates"`
	EnableNameValidation bool        `json:"enableNameValidation"`
}

// GuestSummary is the guest part of an RSVP record
type GuestSummary struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
}

// EventSummary is the event part of an RSVP record
type EventSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
}

// RSVPState is the guest's current answer
type RSVPState struct {
	Status      RSVPStatus     `json:"status"`
	Responses   map[string]any `json:"responses"`
	RespondedAt *time.Time     `json:"respondedAt,omitempty"`
}

// RSVPRecord is everything an RSVP page needs, fetched by token
type RSVPRecord struct {
	Guest GuestSummary `json:"guest"`
	Event EventSummary `json:"event"`
	RSVP  RSVPState    `json:"rsvp"`
	Form  RSVPForm     `json:"form"`
}

// Locked reports whether the record refuses further changes: a non-pending
// answer has been recorded and the form does not allow updates.
func (r *RSVPRecord) Locked() bool {
	return IsLocked(r.Form.AllowUpdates, r.RSVP.Status)
}

// IsLocked is the lock predicate shared by clients and the server
func IsLocked(allowUpdates bool, status RSVPStatus) bool {
	return !allowUpdates && status != RSVPPending && status != ""
}

// SubmitRSVPRequest is the body of an RSVP submission
type SubmitRSVPRequest struct {
	Fullname  string         `json:"fullname"`
	Status    RSVPStatus     `json:"status"`
	Responses map[string]any `json:"responses"`
}

// ValidateNameRequest is the body of a name validation round trip
type ValidateNameRequest struct {
	Fullname string `json:"fullname"`
}
