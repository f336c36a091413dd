package repository_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var eventRowColumns = []string{
	"id", "name", "event_date", "location", "image_url", "description", "service_package",
	"allow_whatsapp", "allow_sms", "message_sequence", "rsvp_form", "sequence_started_at", "created_at",
}

func TestEventRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewEventRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := &models.Event{
		Name:           "Gala",
		Date:           now.AddDate(0, 1, 0),
		ServicePackage: models.PackageFullRSVP,
		Plan:           models.Plan{AllowWhatsApp: true},
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs("Gala", event.Date, "", "", "", "full-rsvp", true, false, []byte("[]"), sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, int64(7), event.ID)
	assert.Equal(t, now, event.CreatedAt)
	assert.JSONEq(t, `[]`, string(event.MessageSequence))
}

func TestEventRepository_GetByID(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewEventRepository(db)

		rows := sqlmock.NewRows(eventRowColumns).AddRow(
			3, "Gala", now, "Hall", "", "", "standard-rsvp", false, false,
			[]byte(`[{"trackingId":"a"}]`),
			[]byte(`{"fields":[{"name":"diet","label":"Diet","type":"text"}],"allowUpdates":true}`),
			now, now,
		)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1`)).
			WithArgs(int64(3)).
			WillReturnRows(rows)

		event, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Gala", event.Name)
		assert.Equal(t, models.PackageStandardRSVP, event.ServicePackage)
		assert.JSONEq(t, `[{"trackingId":"a"}]`, string(event.MessageSequence))
		assert.True(t, event.Form.AllowUpdates)
		require.Len(t, event.Form.Fields, 1)
		assert.Equal(t, "diet", event.Form.Fields[0].Name)
		require.NotNil(t, event.SequenceStartedAt)
		assert.Equal(t, now, *event.SequenceStartedAt)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewEventRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1`)).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(eventRowColumns))

		event, err := repo.GetByID(context.Background(), 9)
		assert.Nil(t, event)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewEventRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1`)).
			WithArgs(int64(9)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByID(context.Background(), 9)
		require.Error(t, err)
		assert.False(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestEventRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewEventRepository(db)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM events WHERE 1=1 AND service_package = $1`)).
		WithArgs("full-rsvp").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`AND service_package = $1 ORDER BY event_date ASC, id ASC LIMIT $2 OFFSET $3`)).
		WithArgs("full-rsvp", models.DefaultPageSize, 0).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(
			1, "Gala", now, "", "", "", "full-rsvp", true, true, []byte(`[]`), []byte(`{}`), nil, now,
		))

	events, total, err := repo.List(context.Background(), models.EventFilter{ServicePackage: string(models.PackageFullRSVP)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].SequenceStartedAt)
	assert.True(t, events[0].Plan.AllowSMS)
}

func TestEventRepository_UpdateSequence(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantNotFound bool
	}{
		{"updated", 1, false},
		{"missing event", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := repository.NewEventRepository(db)

			sequence := json.RawMessage(`[{"trackingId":"a"}]`)
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET message_sequence = $1 WHERE id = $2`)).
				WithArgs([]byte(sequence), int64(4)).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err := repo.UpdateSequence(context.Background(), 4, sequence)
			if tt.wantNotFound {
				assert.True(t, models.HasCode(err, models.CodeNotFound))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEventRepository_StartSequence(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewEventRepository(db)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	again := first.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SET sequence_started_at = COALESCE(sequence_started_at, $1)`)).
		WithArgs(again, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"sequence_started_at"}).AddRow(first))

	startedAt, err := repo.StartSequence(context.Background(), 2, again)
	require.NoError(t, err)
	assert.Equal(t, first, startedAt)
}
