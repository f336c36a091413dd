package models

import "time"

// Outbound message status constants
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// OutboundMessage is one delivery of a sequence step to a guest on a channel
type OutboundMessage struct {
	ID              int64     `json:"id"`
	EventID         int64     `json:"event_id"`
	GuestID         int64     `json:"guest_id"`
	TrackingID      string    `json:"tracking_id"`
	Channel         string    `json:"channel"`
	Status          string    `json:"status"`
	Subject         string    `json:"subject,omitempty"`
	RenderedContent string    `json:"rendered_content"`
	LastError       *string   `json:"last_error,omitempty"`
	RetryCount      int       `json:"retry_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OutboundMessageFilter holds filtering options for listing messages
type OutboundMessageFilter struct {
	EventID  int64
	GuestID  int64
	Channel  string
	Status   string
	Page     int
	PageSize int
}

// MessageJob represents a job to be queued for processing
type MessageJob struct {
	OutboundMessageID int64 `json:"outbound_message_id"`
}

// IsValidMessageStatus checks if the message status is valid
func IsValidMessageStatus(status string) bool {
	switch status {
	case MessageStatusPending, MessageStatusSent, MessageStatusFailed:
		return true
	default:
		return false
	}
}

// CanRetry checks if a message can be retried
func (m *OutboundMessage) CanRetry(maxRetries int) bool {
	return m.Status == MessageStatusFailed && m.RetryCount < maxRetries
}
