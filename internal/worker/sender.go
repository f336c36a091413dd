package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// ErrUndeliverable marks failures that retrying cannot fix, such as a
// channel with no configured sender or a recipient the provider rejects
var ErrUndeliverable = errors.New("message is undeliverable")

// Delivery is one rendered message addressed to one recipient
type Delivery struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// MessageSender defines the interface for sending messages
type MessageSender interface {
	Send(ctx context.Context, d Delivery) error
}

// SenderFunc adapts a function to MessageSender
type SenderFunc func(ctx context.Context, d Delivery) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// ChannelRouter sends each delivery through the sender registered for its
// channel
type ChannelRouter struct {
	mu      sync.RWMutex
	senders map[string]MessageSender
}

// NewChannelRouter creates an empty router
func NewChannelRouter() *ChannelRouter {
	return &ChannelRouter{senders: make(map[string]MessageSender)}
}

// Register sets the sender for channel, replacing any previous one
func (r *ChannelRouter) Register(channel string, sender MessageSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[channel] = sender
}

// Channels lists the channels that have a sender
func (r *ChannelRouter) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

// Send implements MessageSender
func (r *ChannelRouter) Send(ctx context.Context, d Delivery) error {
	r.mu.RLock()
	sender, ok := r.senders[d.Channel]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no sender configured for channel %q", ErrUndeliverable, d.Channel)
	}
	return sender.Send(ctx, d)
}

// mockSender simulates message sending with a configurable success rate
type mockSender struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
}

// NewMockSender creates a new mock message sender
// successRate: probability of success (0.0 to 1.0), default 0.92 (92%)
func NewMockSender(successRate float64, logger *slog.Logger) MessageSender {
	if successRate <= 0 || successRate > 1.0 {
		successRate = 0.92
	}

	return &mockSender{
		successRate: successRate,
		minDelay:    50 * time.Millisecond,
		maxDelay:    200 * time.Millisecond,
		logger:      logger,
	}
}

// Send simulates sending a message
func (s *mockSender) Send(ctx context.Context, d Delivery) error {
	delay := s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if rand.Float64() > s.successRate {
		return fmt.Errorf("mock sender failed: simulated network error")
	}

	s.logger.Debug("mock delivery",
		slog.String("channel", d.Channel),
		slog.String("to", d.To),
		slog.String("subject", d.Subject),
	)
	return nil
}
