package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// GuestRepository defines the interface for guest data access
type GuestRepository interface {
	Create(ctx context.Context, guest *models.Guest) error
	GetByID(ctx context.Context, id int64) (*models.Guest, error)
	GetByToken(ctx context.Context, token string) (*models.Guest, error)
	List(ctx context.Context, filter models.GuestFilter) ([]*models.Guest, int64, error)
	SaveResponse(ctx context.Context, id int64, rsvp models.RSVPState, allowUpdates bool) error
	CheckIn(ctx context.Context, id int64, at time.Time) (time.Time, error)
}

// guestRepository implements GuestRepository using PostgreSQL
type guestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *sql.DB) GuestRepository {
	return &guestRepository{db: db}
}

const guestColumns = `id, event_id, fullname, phone, email, token, rsvp_status, responses, responded_at, checked_in_at`

// Create inserts a new guest. A guest without a token gets a random one.
func (r *guestRepository) Create(ctx context.Context, guest *models.Guest) error {
	if guest.Token == "" {
		guest.Token = uuid.NewString()
	}
	if guest.RSVPStatus == "" {
		guest.RSVPStatus = models.RSVPPending
	}

	responses, err := encodeResponses(guest.Responses)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO guests (event_id, fullname, phone, email, token, rsvp_status, responses)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err = r.db.QueryRowContext(
		ctx,
		query,
		guest.EventID,
		guest.Fullname,
		guest.Phone,
		guest.Email,
		guest.Token,
		string(guest.RSVPStatus),
		responses,
	).Scan(&guest.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.ErrConflictWithMsg("guest token already in use")
		}
		return fmt.Errorf("failed to create guest: %w", err)
	}

	return nil
}

// GetByID retrieves a guest by ID
func (r *guestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE id = $1`

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("guest with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	return guest, nil
}

// GetByToken retrieves the guest an RSVP link was issued to
func (r *guestRepository) GetByToken(ctx context.Context, token string) (*models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM guests WHERE token = $1`

	guest, err := scanGuest(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg("RSVP link not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest by token: %w", err)
	}

	return guest, nil
}

// List retrieves the guests of an event, optionally limited to RSVP statuses
func (r *guestRepository) List(ctx context.Context, filter models.GuestFilter) ([]*models.Guest, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	query := `SELECT ` + guestColumns + ` FROM guests WHERE event_id = $1`
	countQuery := `SELECT COUNT(*) FROM guests WHERE event_id = $1`
	args := []interface{}{filter.EventID}
	argPos := 2

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(" AND rsvp_status = ANY($%d)", argPos)
		countQuery += fmt.Sprintf(" AND rsvp_status = ANY($%d)", argPos)
		args = append(args, pq.Array(statuses))
		argPos++
	}

	var totalCount int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count guests: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	guests := []*models.Guest{}
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, guest)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating guests: %w", err)
	}

	return guests, totalCount, nil
}

// SaveResponse stores a guest's RSVP answer. Unless allowUpdates is set an
// answer is only written over a pending status, so concurrent submissions
// cannot replace a locked answer.
func (r *guestRepository) SaveResponse(ctx context.Context, id int64, rsvp models.RSVPState, allowUpdates bool) error {
	responses, err := encodeResponses(rsvp.Responses)
	if err != nil {
		return err
	}

	query := `
		UPDATE guests
		SET rsvp_status = $1, responses = $2, responded_at = $3
		WHERE id = $4 AND ($5 OR rsvp_status = 'pending')`

	result, err := r.db.ExecContext(ctx, query, string(rsvp.Status), responses, rsvp.RespondedAt, id, allowUpdates)
	if err != nil {
		return fmt.Errorf("failed to save rsvp response: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if allowUpdates {
			return models.ErrNotFoundWithMsg(fmt.Sprintf("guest with ID %d not found", id))
		}
		return models.ErrLockedWithMsg("Your RSVP has already been recorded and can no longer be changed")
	}

	return nil
}

// CheckIn marks the guest as arrived. Repeated check-ins keep the first time,
// which is returned.
func (r *guestRepository) CheckIn(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	query := `
		UPDATE guests
		SET checked_in_at = COALESCE(checked_in_at, $1)
		WHERE id = $2
		RETURNING checked_in_at`

	var checkedInAt time.Time
	err := r.db.QueryRowContext(ctx, query, at, id).Scan(&checkedInAt)
	if err == sql.ErrNoRows {
		return time.Time{}, models.ErrNotFoundWithMsg(fmt.Sprintf("guest with ID %d not found", id))
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to check in guest: %w", err)
	}

	return checkedInAt, nil
}

func encodeResponses(responses map[string]any) ([]byte, error) {
	if responses == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode responses: %w", err)
	}
	return data, nil
}

func scanGuest(row rowScanner) (*models.Guest, error) {
	guest := &models.Guest{}
	var (
		status      string
		responses   []byte
		respondedAt sql.NullTime
		checkedInAt sql.NullTime
	)

	err := row.Scan(
		&guest.ID,
		&guest.EventID,
		&guest.Fullname,
		&guest.Phone,
		&guest.Email,
		&guest.Token,
		&status,
		&responses,
		&respondedAt,
		&checkedInAt,
	)
	if err != nil {
		return nil, err
	}

	guest.RSVPStatus = models.RSVPStatus(status)
	guest.Responses = map[string]any{}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &guest.Responses); err != nil {
			return nil, fmt.Errorf("failed to decode responses of guest %d: %w", guest.ID, err)
		}
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		guest.RespondedAt = &t
	}
	if checkedInAt.Valid {
		t := checkedInAt.Time
		guest.CheckedInAt = &t
	}

	return guest, nil
}
