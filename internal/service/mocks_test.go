package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/checkin"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLinks() *checkin.Generator {
	return checkin.NewGenerator("https://rsvp.example.com", 0)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

// mockEventRepository for testing
type mockEventRepository struct {
	events        []*models.Event
	sequenceSaves int
	updateErr     error
}

func (m *mockEventRepository) Create(ctx context.Context, event *models.Event) error {
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	for _, e := range m.events {
		if e.ID == id {
			// callers get a copy, as they would from the database
			c := *e
			c.MessageSequence = slices.Clone(e.MessageSequence)
			return &c, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("event not found")
}

func (m *mockEventRepository) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, int64, error) {
	filtered := []*models.Event{}
	for _, e := range m.events {
		if filter.ServicePackage != "" && string(e.ServicePackage) != filter.ServicePackage {
			continue
		}
		filtered = append(filtered, e)
	}
	return paginate(filtered, filter.Page, filter.PageSize), int64(len(filtered)), nil
}

func (m *mockEventRepository) UpdateSequence(ctx context.Context, id int64, sequence json.RawMessage) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, e := range m.events {
		if e.ID == id {
			e.MessageSequence = slices.Clone(sequence)
			m.sequenceSaves++
			return nil
		}
	}
	return models.ErrNotFoundWithMsg("event not found")
}

func (m *mockEventRepository) StartSequence(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	for _, e := range m.events {
		if e.ID == id {
			if e.SequenceStartedAt == nil {
				e.SequenceStartedAt = &at
			}
			return *e.SequenceStartedAt, nil
		}
	}
	return time.Time{}, models.ErrNotFoundWithMsg("event not found")
}

func (m *mockEventRepository) ListStarted(ctx context.Context) ([]*models.Event, error) {
	started := []*models.Event{}
	for _, e := range m.events {
		if e.SequenceStartedAt != nil {
			started = append(started, e)
		}
	}
	return started, nil
}

// mockGuestRepository for testing
type mockGuestRepository struct {
	guests  []*models.Guest
	saveErr error
}

func (m *mockGuestRepository) Create(ctx context.Context, guest *models.Guest) error {
	guest.ID = int64(len(m.guests) + 1)
	if guest.Token == "" {
		guest.Token = "token-" + guest.Fullname
	}
	m.guests = append(m.guests, guest)
	return nil
}

func (m *mockGuestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	for _, g := range m.guests {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("guest not found")
}

func (m *mockGuestRepository) GetByToken(ctx context.Context, token string) (*models.Guest, error) {
	for _, g := range m.guests {
		if g.Token == token {
			return g, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("RSVP link not found")
}

func (m *mockGuestRepository) List(ctx context.Context, filter models.GuestFilter) ([]*models.Guest, int64, error) {
	filtered := []*models.Guest{}
	for _, g := range m.guests {
		if g.EventID != filter.EventID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, g.RSVPStatus) {
			continue
		}
		filtered = append(filtered, g)
	}
	return paginate(filtered, filter.Page, filter.PageSize), int64(len(filtered)), nil
}

func (m *mockGuestRepository) SaveResponse(ctx context.Context, id int64, rsvp models.RSVPState, allowUpdates bool) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	g, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !allowUpdates && g.RSVPStatus != models.RSVPPending {
		return models.ErrLockedWithMsg("locked")
	}
	g.RSVPStatus = rsvp.Status
	g.Responses = rsvp.Responses
	g.RespondedAt = rsvp.RespondedAt
	return nil
}

func (m *mockGuestRepository) CheckIn(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	g, err := m.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if g.CheckedInAt == nil {
		g.CheckedInAt = &at
	}
	return *g.CheckedInAt, nil
}

// mockMessageRepository for testing. It enforces the unique
// (guest, tracking id, channel) key the way the table does.
type mockMessageRepository struct {
	messages     []*models.OutboundMessage
	retryable    []*models.OutboundMessage
	stale        []*models.OutboundMessage
	statusWrites map[int64]string
}

func (m *mockMessageRepository) CreateBatch(ctx context.Context, messages []*models.OutboundMessage) ([]*models.OutboundMessage, error) {
	created := []*models.OutboundMessage{}
	for _, msg := range messages {
		if m.exists(msg) {
			continue
		}
		msg.ID = int64(len(m.messages) + 1)
		m.messages = append(m.messages, msg)
		created = append(created, msg)
	}
	return created, nil
}

func (m *mockMessageRepository) exists(msg *models.OutboundMessage) bool {
	for _, existing := range m.messages {
		if existing.GuestID == msg.GuestID && existing.TrackingID == msg.TrackingID && existing.Channel == msg.Channel {
			return true
		}
	}
	return false
}

func (m *mockMessageRepository) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, models.ErrNotFoundWithMsg("message not found")
}

func (m *mockMessageRepository) List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error) {
	filtered := []*models.OutboundMessage{}
	for _, msg := range m.messages {
		if filter.EventID != 0 && msg.EventID != filter.EventID {
			continue
		}
		if filter.Channel != "" && msg.Channel != filter.Channel {
			continue
		}
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		filtered = append(filtered, msg)
	}
	return paginate(filtered, filter.Page, filter.PageSize), int64(len(filtered)), nil
}

func (m *mockMessageRepository) UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error {
	if m.statusWrites == nil {
		m.statusWrites = map[int64]string{}
	}
	m.statusWrites[id] = status
	return nil
}

func (m *mockMessageRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return nil
}

func (m *mockMessageRepository) MarkUndeliverable(ctx context.Context, id int64, lastError string, maxRetries int) error {
	return m.UpdateStatus(ctx, id, models.MessageStatusFailed, &lastError)
}

func (m *mockMessageRepository) GetPendingMessages(ctx context.Context, olderThan time.Time, limit int) ([]*models.OutboundMessage, error) {
	return m.stale, nil
}

func (m *mockMessageRepository) GetRetryable(ctx context.Context, maxRetries, limit int) ([]*models.OutboundMessage, error) {
	return m.retryable, nil
}

// mockQueue records published jobs
type mockQueue struct {
	mu         sync.Mutex
	published  []int64
	publishErr error
}

func (q *mockQueue) Publish(ctx context.Context, job *models.MessageJob) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, job.OutboundMessageID)
	return nil
}

func (q *mockQueue) Consume(ctx context.Context, handler queue.MessageHandler, concurrency int) error {
	return nil
}

func (q *mockQueue) Len(ctx context.Context) (int64, error) { return int64(len(q.published)), nil }
func (q *mockQueue) Close() error                           { return nil }
func (q *mockQueue) Health(ctx context.Context) error       { return nil }

func paginate[T any](items []T, page, pageSize int) []T {
	models.ValidateAndSetDefaults(&page, &pageSize)
	start := models.CalculateOffset(page, pageSize)
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
