package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]*models.Event, int64, error)
	UpdateSequence(ctx context.Context, id int64, sequence json.RawMessage) error
	StartSequence(ctx context.Context, id int64, at time.Time) (time.Time, error)
	ListStarted(ctx context.Context) ([]*models.Event, error)
}

// eventRepository implements EventRepository using PostgreSQL
type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, name, event_date, location, image_url, description, service_package,
	allow_whatsapp, allow_sms, message_sequence, rsvp_form, sequence_started_at, created_at`

// Create inserts a new event
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	form, err := json.Marshal(event.Form)
	if err != nil {
		return fmt.Errorf("failed to encode rsvp form: %w", err)
	}

	sequence := event.MessageSequence
	if len(sequence) == 0 {
		sequence = json.RawMessage("[]")
	}

	query := `
		INSERT INTO events (name, event_date, location, image_url, description, service_package,
			allow_whatsapp, allow_sms, message_sequence, rsvp_form, sequence_started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(
		ctx,
		query,
		event.Name,
		event.Date,
		event.Location,
		event.ImageURL,
		event.Description,
		string(event.ServicePackage),
		event.Plan.AllowWhatsApp,
		event.Plan.AllowSMS,
		[]byte(sequence),
		form,
		event.SequenceStartedAt,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	event.MessageSequence = sequence
	return nil
}

// GetByID retrieves an event by ID
func (r *eventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("event with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// List retrieves events with pagination and filtering
func (r *eventRepository) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM events WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.ServicePackage != "" {
		query += fmt.Sprintf(" AND service_package = $%d", argPos)
		countQuery += fmt.Sprintf(" AND service_package = $%d", argPos)
		args = append(args, filter.ServicePackage)
		argPos++
	}

	var totalCount int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query += fmt.Sprintf(" ORDER BY event_date ASC, id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.PageSize, offset)

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, totalCount, nil
}

// UpdateSequence replaces the stored message sequence of an event
func (r *eventRepository) UpdateSequence(ctx context.Context, id int64, sequence json.RawMessage) error {
	query := `UPDATE events SET message_sequence = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, []byte(sequence), id)
	if err != nil {
		return fmt.Errorf("failed to update message sequence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("event with ID %d not found", id))
	}

	return nil
}

// StartSequence sets the time day offsets are measured from. An event that
// was already started keeps its original start, which is returned.
func (r *eventRepository) StartSequence(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	query := `
		UPDATE events
		SET sequence_started_at = COALESCE(sequence_started_at, $1)
		WHERE id = $2
		RETURNING sequence_started_at`

	var startedAt time.Time
	err := r.db.QueryRowContext(ctx, query, at, id).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, models.ErrNotFoundWithMsg(fmt.Sprintf("event with ID %d not found", id))
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to start sequence: %w", err)
	}

	return startedAt, nil
}

// ListStarted returns every event whose sequence has been started
func (r *eventRepository) ListStarted(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE sequence_started_at IS NOT NULL ORDER BY id ASC`
	return r.queryEvents(ctx, query)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var (
		servicePackage string
		sequence       []byte
		form           []byte
		startedAt      sql.NullTime
	)

	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Date,
		&event.Location,
		&event.ImageURL,
		&event.Description,
		&servicePackage,
		&event.Plan.AllowWhatsApp,
		&event.Plan.AllowSMS,
		&sequence,
		&form,
		&startedAt,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.ServicePackage = models.ServicePackage(servicePackage)
	event.MessageSequence = json.RawMessage(sequence)
	if len(form) > 0 {
		if err := json.Unmarshal(form, &event.Form); err != nil {
			return nil, fmt.Errorf("failed to decode rsvp form of event %d: %w", event.ID, err)
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		event.SequenceStartedAt = &t
	}

	return event, nil
}
