package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
	"github.com/Raymond9734/event-rsvp-backend/internal/service"
)

// RSVPHandler serves the guest-facing endpoints addressed by token
type RSVPHandler struct {
	rsvpService service.RSVPService
	logger      *slog.Logger
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(rsvpService service.RSVPService, logger *slog.Logger) *RSVPHandler {
	return &RSVPHandler{
		rsvpService: rsvpService,
		logger:      logger,
	}
}

// GetRSVP handles GET /rsvp/{token}
func (h *RSVPHandler) GetRSVP(w http.ResponseWriter, r *http.Request) {
	record, err := h.rsvpService.Fetch(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, record)
}

// ValidateName handles POST /rsvp/{token}/validate-name
func (h *RSVPHandler) ValidateName(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.rsvpService.ValidateName(r.Context(), chi.URLParam(r, "token"), req.Fullname); err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondNoContent(w)
}

// Submit handles POST /rsvp/{token}/submit
func (h *RSVPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRSVPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.rsvpService.Submit(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, state)
}

// QRCode handles GET /rsvp/{token}/qr.png
func (h *RSVPHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.rsvpService.QRCode(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Warn("failed to write qr code", slog.String("error", err.Error()))
	}
}

// CheckIn handles POST /checkin/{token}
func (h *RSVPHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	result, err := h.rsvpService.CheckIn(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}
