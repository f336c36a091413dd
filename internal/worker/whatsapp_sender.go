package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Raymond9734/event-rsvp-backend/internal/whatsapp"
)

// TextMessenger sends a plain text message to a phone number
type TextMessenger interface {
	SendText(ctx context.Context, phone, text string) error
}

// WhatsAppSender delivers the whatsapp channel through a linked WhatsApp
// session
type WhatsAppSender struct {
	messenger TextMessenger
}

// NewWhatsAppSender creates a sender backed by messenger
func NewWhatsAppSender(messenger TextMessenger) *WhatsAppSender {
	return &WhatsAppSender{messenger: messenger}
}

// Send implements MessageSender
func (s *WhatsAppSender) Send(ctx context.Context, d Delivery) error {
	if strings.TrimSpace(d.To) == "" {
		return fmt.Errorf("%w: missing phone number", ErrUndeliverable)
	}

	err := s.messenger.SendText(ctx, d.To, d.Body)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, whatsapp.ErrNotOnWhatsApp):
		return fmt.Errorf("%w: %v", ErrUndeliverable, err)
	default:
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
}
