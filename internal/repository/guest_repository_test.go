package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/repository"
)

var guestRowColumns = []string{
	"id", "event_id", "fullname", "phone", "email", "token", "rsvp_status", "responses", "responded_at", "checked_in_at",
}

func TestGuestRepository_Create(t *testing.T) {
	t.Run("defaults token and status", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewGuestRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO guests`)).
			WithArgs(int64(1), "Ada Lovelace", "+254712345001", "", sqlmock.AnyArg(), "pending", []byte("{}")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

		guest := &models.Guest{EventID: 1, Fullname: "Ada Lovelace", Phone: "+254712345001"}
		require.NoError(t, repo.Create(context.Background(), guest))
		assert.Equal(t, int64(11), guest.ID)
		assert.NotEmpty(t, guest.Token)
		assert.Equal(t, models.RSVPPending, guest.RSVPStatus)
	})

	t.Run("duplicate token", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewGuestRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO guests`)).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(context.Background(), &models.Guest{EventID: 1, Fullname: "Ada", Token: "tok"})
		assert.True(t, models.HasCode(err, models.CodeConflict))
	})
}

func TestGuestRepository_GetByToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewGuestRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM guests WHERE token = $1`)).
			WithArgs("tok-1").
			WillReturnRows(sqlmock.NewRows(guestRowColumns).AddRow(
				5, 1, "Ada Lovelace", "", "ada@example.com", "tok-1", "yes",
				[]byte(`{"guests":2,"diet":["vegan"]}`), now, nil,
			))

		guest, err := repo.GetByToken(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, models.RSVPYes, guest.RSVPStatus)
		assert.Equal(t, float64(2), guest.Responses["guests"])
		assert.Equal(t, []any{"vegan"}, guest.Responses["diet"])
		require.NotNil(t, guest.RespondedAt)
		assert.Nil(t, guest.CheckedInAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewGuestRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM guests WHERE token = $1`)).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(guestRowColumns))

		guest, err := repo.GetByToken(context.Background(), "nope")
		assert.Nil(t, guest)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestGuestRepository_ListByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewGuestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM guests WHERE event_id = $1 AND rsvp_status = ANY($2)`)).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`AND rsvp_status = ANY($2) ORDER BY id ASC LIMIT $3 OFFSET $4`)).
		WithArgs(int64(1), sqlmock.AnyArg(), 10, 10).
		WillReturnRows(sqlmock.NewRows(guestRowColumns).
			AddRow(21, 1, "Ada", "", "", "t1", "yes", []byte(`{}`), nil, nil).
			AddRow(22, 1, "Alan", "", "", "t2", "maybe", nil, nil, nil))

	guests, total, err := repo.List(context.Background(), models.GuestFilter{
		EventID:  1,
		Statuses: []models.RSVPStatus{models.RSVPYes, models.RSVPMaybe},
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, guests, 2)
	assert.Equal(t, models.RSVPMaybe, guests[1].RSVPStatus)
	assert.NotNil(t, guests[1].Responses)
}

func TestGuestRepository_SaveResponse(t *testing.T) {
	answeredAt := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		allowUpdates bool
		rowsAffected int64
		wantCode     string
	}{
		{"first answer", false, 1, ""},
		{"locked answer", false, 0, models.CodeLocked},
		{"update allowed", true, 1, ""},
		{"missing guest", true, 0, models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := repository.NewGuestRepository(db)

			mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $4 AND ($5 OR rsvp_status = 'pending')`)).
				WithArgs("no", []byte(`{"note":"sorry"}`), answeredAt, int64(5), tt.allowUpdates).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err := repo.SaveResponse(context.Background(), 5, models.RSVPState{
				Status:      models.RSVPNo,
				Responses:   map[string]any{"note": "sorry"},
				RespondedAt: &answeredAt,
			}, tt.allowUpdates)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestGuestRepository_CheckIn(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewGuestRepository(db)

	first := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SET checked_in_at = COALESCE(checked_in_at, $1)`)).
		WithArgs(first.Add(time.Hour), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"checked_in_at"}).AddRow(first))
	mock.ExpectQuery(regexp.QuoteMeta(`SET checked_in_at = COALESCE(checked_in_at, $1)`)).
		WithArgs(first, int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"checked_in_at"}))

	at, err := repo.CheckIn(context.Background(), 5, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, at)

	_, err = repo.CheckIn(context.Background(), 6, first)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
