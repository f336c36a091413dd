package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/service"
)

// EventHandler handles organiser-facing event, guest and message requests
type EventHandler struct {
	eventService   service.EventService
	guestService   service.GuestService
	messageService service.MessageService
	logger         *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	eventService service.EventService,
	guestService service.GuestService,
	messageService service.MessageService,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		eventService:   eventService,
		guestService:   guestService,
		messageService: messageService,
		logger:         logger,
	}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.eventService.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := models.EventFilter{
		ServicePackage: r.URL.Query().Get("service_package"),
		Page:           page,
		PageSize:       pageSize,
	}

	result, err := h.eventService.List(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	event, err := h.eventService.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, event)
}

// StartSequence handles POST /events/{id}/start
func (h *EventHandler) StartSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	result, err := h.eventService.StartSequence(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// Preview handles POST /events/{id}/preview
func (h *EventHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	var req service.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.eventService.Preview(r.Context(), id, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// CreateGuest handles POST /events/{id}/guests
func (h *EventHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	var req service.CreateGuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	guest, err := h.guestService.Create(r.Context(), id, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, guest)
}

// ListGuests handles GET /events/{id}/guests. The status parameter takes a
// comma separated list of RSVP statuses.
func (h *EventHandler) ListGuests(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	page, pageSize := pageParams(r)
	filter := models.GuestFilter{
		EventID:  id,
		Page:     page,
		PageSize: pageSize,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, models.RSVPStatus(strings.TrimSpace(s)))
		}
	}

	result, err := h.guestService.List(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// GetGuest handles GET /guests/{id}
func (h *EventHandler) GetGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "guest")
	if !ok {
		return
	}

	guest, err := h.guestService.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, guest)
}

// ListMessages handles GET /events/{id}/messages
func (h *EventHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	query := r.URL.Query()
	page, pageSize := pageParams(r)
	guestID, _ := strconv.ParseInt(query.Get("guest_id"), 10, 64)

	filter := models.OutboundMessageFilter{
		EventID:  id,
		GuestID:  guestID,
		Channel:  query.Get("channel"),
		Status:   query.Get("status"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.messageService.List(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// GetMessage handles GET /messages/{id}
func (h *EventHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "message")
	if !ok {
		return
	}

	message, err := h.messageService.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, message)
}
