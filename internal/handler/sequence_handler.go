package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Raymond9734/event-rsvp-backend/internal/service"
)

// SequenceHandler serves the message sequence editor endpoints
type SequenceHandler struct {
	sequenceService service.SequenceService
	logger          *slog.Logger
}

// NewSequenceHandler creates a new sequence handler
func NewSequenceHandler(sequenceService service.SequenceService, logger *slog.Logger) *SequenceHandler {
	return &SequenceHandler{
		sequenceService: sequenceService,
		logger:          logger,
	}
}

// GetSequence handles GET /events/{id}/message-sequence
func (h *SequenceHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	view, err := h.sequenceService.Get(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// SaveSequence handles PUT /events/{id}/message-sequence. The body is the raw
// sequence array; it is normalized before it is stored.
func (h *SequenceHandler) SaveSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}

	view, err := h.sequenceService.Save(r.Context(), id, raw)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// ResetSequence handles POST /events/{id}/message-sequence/reset
func (h *SequenceHandler) ResetSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	view, err := h.sequenceService.Reset(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, view)
}

// ApplyOp handles POST /events/{id}/message-sequence/ops
func (h *SequenceHandler) ApplyOp(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "event")
	if !ok {
		return
	}

	var req service.SequenceOpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.sequenceService.ApplyOp(r.Context(), id, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}
