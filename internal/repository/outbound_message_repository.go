package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// OutboundMessageRepository defines the interface for outbound message data access
type OutboundMessageRepository interface {
	CreateBatch(ctx context.Context, messages []*models.OutboundMessage) ([]*models.OutboundMessage, error)
	GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error)
	List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error)
	UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkUndeliverable(ctx context.Context, id int64, lastError string, maxRetries int) error
	GetPendingMessages(ctx context.Context, olderThan time.Time, limit int) ([]*models.OutboundMessage, error)
	GetRetryable(ctx context.Context, maxRetries, limit int) ([]*models.OutboundMessage, error)
}

// outboundMessageRepository implements OutboundMessageRepository using PostgreSQL
type outboundMessageRepository struct {
	db *sql.DB
}

// NewOutboundMessageRepository creates a new outbound message repository
func NewOutboundMessageRepository(db *sql.DB) OutboundMessageRepository {
	return &outboundMessageRepository{db: db}
}

const messageColumns = `id, event_id, guest_id, tracking_id, channel, status, subject, rendered_content,
	last_error, retry_count, created_at, updated_at`

// CreateBatch inserts messages in a single transaction. A message that
// already exists for the same guest, step and channel is skipped; only the
// newly inserted messages are returned.
func (r *outboundMessageRepository) CreateBatch(ctx context.Context, messages []*models.OutboundMessage) ([]*models.OutboundMessage, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Rollback is safe to call even after Commit
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outbound_messages (event_id, guest_id, tracking_id, channel, status, subject, rendered_content, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (guest_id, tracking_id, channel) DO NOTHING
		RETURNING id, created_at, updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	created := make([]*models.OutboundMessage, 0, len(messages))
	for _, message := range messages {
		err := stmt.QueryRowContext(
			ctx,
			message.EventID,
			message.GuestID,
			message.TrackingID,
			message.Channel,
			message.Status,
			message.Subject,
			message.RenderedContent,
			message.RetryCount,
		).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert message: %w", err)
		}
		created = append(created, message)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// GetByID retrieves an outbound message by ID
func (r *outboundMessageRepository) GetByID(ctx context.Context, id int64) (*models.OutboundMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM outbound_messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbound message: %w", err)
	}

	return message, nil
}

// List retrieves outbound messages with pagination and filtering
func (r *outboundMessageRepository) List(ctx context.Context, filter models.OutboundMessageFilter) ([]*models.OutboundMessage, int64, error) {
	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	query := `SELECT ` + messageColumns + ` FROM outbound_messages WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM outbound_messages WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	addFilter := func(column string, value interface{}) {
		query += fmt.Sprintf(" AND %s = $%d", column, argPos)
		countQuery += fmt.Sprintf(" AND %s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	if filter.EventID > 0 {
		addFilter("event_id", filter.EventID)
	}
	if filter.GuestID > 0 {
		addFilter("guest_id", filter.GuestID)
	}
	if filter.Channel != "" {
		addFilter("channel", filter.Channel)
	}
	if filter.Status != "" {
		addFilter("status", filter.Status)
	}

	var totalCount int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count outbound messages: %w", err)
	}

	offset := models.CalculateOffset(filter.Page, filter.PageSize)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.PageSize, offset)

	messages, err := r.queryMessages(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return messages, totalCount, nil
}

// UpdateStatus updates the status and error message of an outbound message
func (r *outboundMessageRepository) UpdateStatus(ctx context.Context, id int64, status string, lastError *string) error {
	query := `
		UPDATE outbound_messages
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to update outbound message status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}

	return nil
}

// IncrementRetryCount increments the retry count for a message
func (r *outboundMessageRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	query := `
		UPDATE outbound_messages
		SET retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}

	return nil
}

// MarkUndeliverable fails a message and uses up its retry budget so it is
// never requeued
func (r *outboundMessageRepository) MarkUndeliverable(ctx context.Context, id int64, lastError string, maxRetries int) error {
	query := `
		UPDATE outbound_messages
		SET status = 'failed', last_error = $1, retry_count = GREATEST(retry_count, $2), updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, lastError, maxRetries, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbound message undeliverable: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFoundWithMsg(fmt.Sprintf("outbound message with ID %d not found", id))
	}

	return nil
}

// GetPendingMessages returns pending messages last touched before olderThan.
// These were created but never picked up, usually because publishing failed.
func (r *outboundMessageRepository) GetPendingMessages(ctx context.Context, olderThan time.Time, limit int) ([]*models.OutboundMessage, error) {
	query := `SELECT ` + messageColumns + `
		FROM outbound_messages
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	return r.queryMessages(ctx, query, olderThan, limit)
}

// GetRetryable returns failed messages that still have retries left
func (r *outboundMessageRepository) GetRetryable(ctx context.Context, maxRetries, limit int) ([]*models.OutboundMessage, error) {
	query := `SELECT ` + messageColumns + `
		FROM outbound_messages
		WHERE status = 'failed' AND retry_count < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	return r.queryMessages(ctx, query, maxRetries, limit)
}

func (r *outboundMessageRepository) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*models.OutboundMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbound messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.OutboundMessage{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbound message: %w", err)
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbound messages: %w", err)
	}

	return messages, nil
}

func scanMessage(row rowScanner) (*models.OutboundMessage, error) {
	message := &models.OutboundMessage{}
	err := row.Scan(
		&message.ID,
		&message.EventID,
		&message.GuestID,
		&message.TrackingID,
		&message.Channel,
		&message.Status,
		&message.Subject,
		&message.RenderedContent,
		&message.LastError,
		&message.RetryCount,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return message, nil
}
