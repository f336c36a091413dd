package rsvp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// fakeBackend serves records from memory and records every call
type fakeBackend struct {
	mu        sync.Mutex
	records   map[string]*models.RSVPRecord
	gates     map[string]chan struct{}
	nameErr   error
	submitErr error

	validateCalls int
	submitCalls   int
	lastSubmit    models.SubmitRSVPRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records: make(map[string]*models.RSVPRecord),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeBackend) Fetch(ctx context.Context, token string) (*models.RSVPRecord, error) {
	f.mu.Lock()
	gate := f.gates[token]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[token]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("RSVP not found")
	}
	copied := *record
	return &copied, nil
}

func (f *fakeBackend) ValidateName(_ context.Context, _ string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	return f.nameErr
}

func (f *fakeBackend) Submit(_ context.Context, _ string, req models.SubmitRSVPRequest) (*models.RSVPState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.lastSubmit = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.RSVPState{Status: req.Status, Responses: req.Responses, RespondedAt: &now}, nil
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateCalls, f.submitCalls
}

func newRecord(status models.RSVPStatus, allowUpdates bool) *models.RSVPRecord {
	return &models.RSVPRecord{
		Guest: models.GuestSummary{ID: 1, Fullname: "Ada Lovelace"},
		Event: models.EventSummary{ID: 9, Name: "Launch"},
		RSVP:  models.RSVPState{Status: status, Responses: map[string]any{}},
		Form: models.RSVPForm{
			Fields: []models.RSVPField{
				{Name: "attendance", Label: "Attending?", Type: models.FieldRadio, Options: []string{"yes", "no", "maybe"}},
				{Name: "meal", Label: "Meal", Type: models.FieldSelect, Options: []string{"fish", "veg"}},
			},
			AllowUpdates: allowUpdates,
		},
	}
}

func loadedSession(t *testing.T, backend *fakeBackend, record *models.RSVPRecord) *Session {
	t.Helper()
	backend.records["tok"] = record
	s := NewSession(backend)
	require.NoError(t, s.Load(context.Background(), "tok"))
	return s
}

func TestSession_LoadReady(t *testing.T) {
	backend := newFakeBackend()
	s := loadedSession(t, backend, newRecord(models.RSVPPending, true))

	view := s.View()
	assert.Equal(t, PhaseReady, view.Phase)
	assert.Equal(t, "Ada Lovelace", view.Fullname)
	assert.Equal(t, models.RSVPPending, view.Status)
	assert.True(t, view.CanSubmit)
	require.Len(t, view.Controls, 1)
	assert.Equal(t, "meal", view.Controls[0].Name)
}

func TestSession_LoadError(t *testing.T) {
	s := NewSession(newFakeBackend())

	err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, PhaseError, s.Phase())
	assert.Equal(t, "RSVP not found", UserMessage(s.View().Err))
	assert.ErrorIs(t, s.Submit(context.Background()), ErrNotReady)
}

// emptyBackend answers a fetch with neither a record nor an error
type emptyBackend struct {
	*fakeBackend
}

func (emptyBackend) Fetch(ctx context.Context, token string) (*models.RSVPRecord, error) {
	return nil, nil
}

func TestSession_LoadWithoutRecord(t *testing.T) {
	s := NewSession(emptyBackend{newFakeBackend()})

	err := s.Load(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, PhaseError, s.Phase())
	assert.Nil(t, s.View().Record)
	assert.Empty(t, s.Fields())
	assert.ErrorIs(t, s.Submit(context.Background()), ErrNotReady)
}

func TestSession_ViewDoesNotShareForm(t *testing.T) {
	s := loadedSession(t, newFakeBackend(), newRecord(models.RSVPPending, true))

	view := s.View()
	view.Record.Form.Fields[1].Label = "Changed"
	view.Record.Form.Fields[1].Options[0] = "beef"
	view.Record.Form.Fields = append(view.Record.Form.Fields[:1], models.RSVPField{Name: "extra", Type: models.FieldText})

	again := s.View()
	require.Len(t, again.Record.Form.Fields, 2)
	assert.Equal(t, "Meal", again.Record.Form.Fields[1].Label)
	assert.Equal(t, []string{"fish", "veg"}, again.Record.Form.Fields[1].Options)
	require.Len(t, s.Fields(), 1)
	assert.Equal(t, "meal", s.Fields()[0].Definition().Name)
}

func TestSession_SelectStatusSyncsAttendance(t *testing.T) {
	s := loadedSession(t, newFakeBackend(), newRecord(models.RSVPPending, true))

	require.NoError(t, s.SelectStatus(models.RSVPNo))
	view := s.View()
	assert.Equal(t, models.RSVPNo, view.Status)
	assert.Equal(t, "no", view.Responses["attendance"])

	for _, c := range view.Controls {
		assert.NotEqual(t, "attendance", c.Name)
	}

	assert.Error(t, s.SelectStatus("perhaps"))
	assert.Error(t, s.SetResponse("attendance", "yes"))
}

func TestSession_SubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(s *Session)
		record  *models.RSVPRecord
		code    string
	}{
		{
			name:    "blank name",
			record:  newRecord(models.RSVPPending, true),
			prepare: func(s *Session) { _ = s.SetFullname("   "); _ = s.SelectStatus(models.RSVPYes) },
			code:    models.CodeInvalidInput,
		},
		{
			name:    "still pending",
			record:  newRecord(models.RSVPPending, true),
			prepare: func(s *Session) {},
			code:    models.CodeInvalidInput,
		},
		{
			name:    "invalid field",
			record:  newRecord(models.RSVPPending, true),
			prepare: func(s *Session) { _ = s.SelectStatus(models.RSVPYes); _ = s.SetResponse("meal", "beef") },
			code:    models.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.records["tok"] = tt.record
			s := NewSession(backend)
			require.NoError(t, s.Load(context.Background(), "tok"))
			tt.prepare(s)

			err := s.Submit(context.Background())
			require.Error(t, err)
			assert.True(t, models.HasCode(err, tt.code))

			validateCalls, submitCalls := backend.calls()
			assert.Zero(t, validateCalls)
			assert.Zero(t, submitCalls)
		})
	}
}

func TestSession_LockedRecord(t *testing.T) {
	record := newRecord(models.RSVPYes, false)
	record.RSVP.Responses = map[string]any{"attendance": "yes"}
	backend := newFakeBackend()
	s := loadedSession(t, backend, record)

	assert.True(t, s.Locked())
	assert.False(t, s.CanSubmit())
	for _, c := range s.View().Controls {
		assert.True(t, c.Disabled)
	}

	assert.True(t, models.HasCode(s.SelectStatus(models.RSVPNo), models.CodeLocked))

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeLocked))
	_, submitCalls := backend.calls()
	assert.Zero(t, submitCalls)
}

func TestSession_PendingNotLockedWithoutUpdates(t *testing.T) {
	backend := newFakeBackend()
	s := loadedSession(t, backend, newRecord(models.RSVPPending, false))

	assert.False(t, s.Locked())
	assert.True(t, s.CanSubmit())
	require.NoError(t, s.SelectStatus(models.RSVPYes))
	require.NoError(t, s.Submit(context.Background()))

	assert.True(t, s.Locked())
	assert.False(t, s.CanSubmit())
}

func TestSession_SubmitSuccessPatchesRecord(t *testing.T) {
	backend := newFakeBackend()
	s := loadedSession(t, backend, newRecord(models.RSVPPending, true))

	require.NoError(t, s.SetFullname("  Ada King  "))
	require.NoError(t, s.SelectStatus(models.RSVPMaybe))
	require.NoError(t, s.SetResponse("meal", "veg"))
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, "Ada King", backend.lastSubmit.Fullname)
	assert.Equal(t, models.RSVPMaybe, backend.lastSubmit.Status)
	assert.Equal(t, "maybe", backend.lastSubmit.Responses["attendance"])
	assert.Equal(t, "veg", backend.lastSubmit.Responses["meal"])

	view := s.View()
	require.NotNil(t, view.Record)
	assert.Equal(t, models.RSVPMaybe, view.Record.RSVP.Status)
	assert.Equal(t, "veg", view.Record.RSVP.Responses["meal"])
	require.NotNil(t, view.Record.RSVP.RespondedAt)
	assert.False(t, view.Submitting)
}

func TestSession_SubmitFailureLeavesState(t *testing.T) {
	backend := newFakeBackend()
	backend.submitErr = &models.AppError{Code: "INTERNAL_ERROR", Message: "Database unavailable"}
	s := loadedSession(t, backend, newRecord(models.RSVPPending, false))

	require.NoError(t, s.SelectStatus(models.RSVPYes))
	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Database unavailable", UserMessage(err))

	view := s.View()
	assert.Equal(t, models.RSVPPending, view.Record.RSVP.Status)
	assert.Nil(t, view.Record.RSVP.RespondedAt)
	assert.False(t, view.Locked)
	assert.True(t, view.CanSubmit)
	assert.Equal(t, models.RSVPYes, view.Status)
}

func TestSession_NameValidation(t *testing.T) {
	record := newRecord(models.RSVPPending, true)
	record.Form.EnableNameValidation = true

	t.Run("rejected", func(t *testing.T) {
		backend := newFakeBackend()
		backend.nameErr = models.ErrUnauthorizedWithMsg("Name does not match our guest list")
		s := loadedSession(t, backend, record)
		require.NoError(t, s.SelectStatus(models.RSVPYes))

		err := s.Submit(context.Background())
		require.Error(t, err)
		assert.Equal(t, "Name does not match our guest list", UserMessage(err))
		validateCalls, submitCalls := backend.calls()
		assert.Equal(t, 1, validateCalls)
		assert.Zero(t, submitCalls)
		assert.Equal(t, models.RSVPPending, s.View().Record.RSVP.Status)
	})

	t.Run("network failure", func(t *testing.T) {
		backend := newFakeBackend()
		backend.nameErr = errors.New("dial tcp: connection refused")
		s := loadedSession(t, backend, record)
		require.NoError(t, s.SelectStatus(models.RSVPYes))

		err := s.Submit(context.Background())
		require.Error(t, err)
		assert.Equal(t, msgGeneric, UserMessage(err))
		_, submitCalls := backend.calls()
		assert.Zero(t, submitCalls)
	})

	t.Run("accepted", func(t *testing.T) {
		backend := newFakeBackend()
		s := loadedSession(t, backend, record)
		require.NoError(t, s.SelectStatus(models.RSVPYes))

		require.NoError(t, s.Submit(context.Background()))
		validateCalls, submitCalls := backend.calls()
		assert.Equal(t, 1, validateCalls)
		assert.Equal(t, 1, submitCalls)
	})
}

func TestSession_StaleLoadIgnored(t *testing.T) {
	backend := newFakeBackend()
	recordA := newRecord(models.RSVPPending, true)
	recordA.Guest.Fullname = "Guest A"
	recordB := newRecord(models.RSVPYes, true)
	recordB.Guest.Fullname = "Guest B"
	backend.records["A"] = recordA
	backend.records["B"] = recordB
	gate := make(chan struct{})
	backend.gates["A"] = gate

	s := NewSession(backend)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "A") }()

	// Load B only once A is blocked in the backend
	require.Eventually(t, func() bool { return s.Phase() == PhaseLoading && loadStarted(s) }, time.Second, time.Millisecond)
	require.NoError(t, s.Load(context.Background(), "B"))

	close(gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	view := s.View()
	assert.Equal(t, PhaseReady, view.Phase)
	assert.Equal(t, "Guest B", view.Fullname)
	assert.Equal(t, models.RSVPYes, view.Status)
}

func TestSession_CloseDropsInFlightLoad(t *testing.T) {
	backend := newFakeBackend()
	backend.records["A"] = newRecord(models.RSVPPending, true)
	gate := make(chan struct{})
	backend.gates["A"] = gate

	s := NewSession(backend)
	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "A") }()

	require.Eventually(t, func() bool { return loadStarted(s) }, time.Second, time.Millisecond)
	s.Close()
	close(gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Nil(t, s.View().Record)
	assert.ErrorIs(t, s.Load(context.Background(), "A"), ErrClosed)
}

func loadStarted(s *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation > 0
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, msgGeneric, UserMessage(errors.New("boom")))
	assert.Equal(t, "Nope", UserMessage(models.ErrConflictWithMsg("Nope")))
	assert.Equal(t, msgGeneric, UserMessage(&models.AppError{Code: "X"}))
}
