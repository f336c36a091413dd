package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

func newTestEventService(t *testing.T, events *mockEventRepository, guests *mockGuestRepository) *eventService {
	t.Helper()
	return &eventService{
		eventRepo:   events,
		guestRepo:   guests,
		templateSvc: newTestTemplateService(t, nil),
		links:       testLinks(),
		logger:      testLogger(),
		now:         fixedNow,
	}
}

func TestEventService_CreateSeedsDefaultSequence(t *testing.T) {
	tests := []struct {
		name          string
		pkg           models.ServicePackage
		allowWhatsApp bool
		wantItems     int
		wantWhatsApp  bool
	}{
		{"invitation only", models.PackageInvitationOnly, true, 0, false},
		{"one time", models.PackageOneTimeRSVP, false, 1, false},
		{"standard ignores whatsapp", models.PackageStandardRSVP, true, 3, false},
		{"full with whatsapp", models.PackageFullRSVP, true, 6, true},
		{"full without whatsapp", models.PackageFullRSVP, false, 6, false},
		{"unknown package gets full", "platinum", true, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepository{}
			svc := newTestEventService(t, repo, &mockGuestRepository{})

			event, err := svc.Create(context.Background(), &CreateEventRequest{
				Name:           "  Gala  ",
				Date:           time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
				ServicePackage: tt.pkg,
				AllowWhatsApp:  tt.allowWhatsApp,
			})
			require.NoError(t, err)
			assert.Equal(t, "Gala", event.Name)

			var stored []map[string]any
			require.NoError(t, json.Unmarshal(event.MessageSequence, &stored))
			require.Len(t, stored, tt.wantItems)

			if tt.wantItems > 0 {
				whatsapp := stored[0]["channels"].(map[string]any)["whatsapp"].(map[string]any)
				assert.Equal(t, tt.wantWhatsApp, whatsapp["enabled"])
			}
		})
	}
}

func TestEventService_CreateValidation(t *testing.T) {
	date := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  CreateEventRequest
	}{
		{"missing name", CreateEventRequest{Date: date, ServicePackage: models.PackageFullRSVP}},
		{"blank name", CreateEventRequest{Name: "   ", Date: date, ServicePackage: models.PackageFullRSVP}},
		{"missing date", CreateEventRequest{Name: "Gala", ServicePackage: models.PackageFullRSVP}},
		{"missing package", CreateEventRequest{Name: "Gala", Date: date}},
		{
			name: "select field without options",
			req: CreateEventRequest{
				Name: "Gala", Date: date, ServicePackage: models.PackageFullRSVP,
				Form: models.RSVPForm{Fields: []models.RSVPField{{Name: "meal", Type: models.FieldSelect}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepository{}
			svc := newTestEventService(t, repo, &mockGuestRepository{})

			_, err := svc.Create(context.Background(), &tt.req)
			assert.True(t, models.HasCode(err, models.CodeInvalidInput), "got %v", err)
			assert.Empty(t, repo.events)
		})
	}
}

func TestEventService_List_Pagination(t *testing.T) {
	tests := []struct {
		name           string
		totalEvents    int
		page           int
		pageSize       int
		wantCount      int
		wantTotalPages int
		wantPage       int
		wantPageSize   int
	}{
		{"first page", 50, 1, 20, 20, 3, 1, 20},
		{"last page (partial)", 50, 3, 20, 10, 3, 3, 20},
		{"page beyond last (empty)", 50, 10, 20, 0, 3, 10, 20},
		{"zero page defaults to 1", 30, 0, 10, 10, 3, 1, 10},
		{"zero page size defaults to 20", 50, 1, 0, 20, 3, 1, 20},
		{"page size over 100 capped at 100", 150, 1, 200, 100, 2, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepository{}
			for i := 0; i < tt.totalEvents; i++ {
				repo.events = append(repo.events, &models.Event{ID: int64(i + 1), Name: "Event"})
			}
			svc := newTestEventService(t, repo, &mockGuestRepository{})

			result, err := svc.List(context.Background(), models.EventFilter{Page: tt.page, PageSize: tt.pageSize})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(result.Data) != tt.wantCount {
				t.Errorf("List() returned %d events, want %d", len(result.Data), tt.wantCount)
			}
			if result.Pagination.TotalCount != int64(tt.totalEvents) {
				t.Errorf("TotalCount = %d, want %d", result.Pagination.TotalCount, tt.totalEvents)
			}
			if result.Pagination.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", result.Pagination.TotalPages, tt.wantTotalPages)
			}
			if result.Pagination.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", result.Pagination.Page, tt.wantPage)
			}
			if result.Pagination.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", result.Pagination.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestEventService_StartSequenceKeepsFirstStart(t *testing.T) {
	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	repo := &mockEventRepository{events: []*models.Event{{ID: 1, SequenceStartedAt: &first}}}
	svc := newTestEventService(t, repo, &mockGuestRepository{})

	result, err := svc.StartSequence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, result.StartedAt)

	repo.events = append(repo.events, &models.Event{ID: 2})
	result, err = svc.StartSequence(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), result.StartedAt)

	_, err = svc.StartSequence(context.Background(), 99)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestEventService_Preview(t *testing.T) {
	events := &mockEventRepository{events: []*models.Event{{
		ID:              1,
		Name:            "Gala",
		Location:        "Hall",
		Date:            time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		MessageSequence: json.RawMessage(`[{"trackingId":"step-1","messageName":"Invite","dayOffset":1}]`),
	}}}
	guests := &mockGuestRepository{guests: []*models.Guest{
		{ID: 7, EventID: 1, Fullname: "Ann", Token: "tok-ann"},
		{ID: 8, EventID: 2, Fullname: "Bob", Token: "tok-bob"},
	}}
	svc := newTestEventService(t, events, guests)

	tests := []struct {
		name     string
		req      PreviewRequest
		wantCode string
	}{
		{"email by default", PreviewRequest{GuestID: 7, TrackingID: "step-1"}, ""},
		{"sms", PreviewRequest{GuestID: 7, TrackingID: "step-1", Channel: models.ChannelSMS}, ""},
		{"unknown step", PreviewRequest{GuestID: 7, TrackingID: "nope"}, models.CodeNotFound},
		{"guest of another event", PreviewRequest{GuestID: 8, TrackingID: "step-1"}, models.CodeNotFound},
		{"missing guest", PreviewRequest{TrackingID: "step-1"}, models.CodeInvalidInput},
		{"bad channel", PreviewRequest{GuestID: 7, TrackingID: "step-1", Channel: "fax"}, models.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Preview(context.Background(), 1, &tt.req)
			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, result.Body, "https://rsvp.example.com/rsvp/tok-ann")
			if result.Channel == models.ChannelEmail {
				assert.Contains(t, result.Body, "Hi Ann")
				assert.Equal(t, "Invite: Gala", result.Subject)
			} else {
				assert.Empty(t, result.Subject)
			}
		})
	}
}
