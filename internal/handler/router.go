package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Health   *HealthHandler
	Events   *EventHandler
	Sequence *SequenceHandler
	RSVP     *RSVPHandler
}

// NewRouter builds the API routes
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware)

	r.Get("/health", h.Health.Health)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.Events.CreateEvent)
		r.Get("/", h.Events.ListEvents)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Events.GetEvent)
			r.Post("/start", h.Events.StartSequence)
			r.Post("/preview", h.Events.Preview)

			r.Post("/guests", h.Events.CreateGuest)
			r.Get("/guests", h.Events.ListGuests)
			r.Get("/messages", h.Events.ListMessages)

			r.Get("/message-sequence", h.Sequence.GetSequence)
			r.Put("/message-sequence", h.Sequence.SaveSequence)
			r.Post("/message-sequence/reset", h.Sequence.ResetSequence)
			r.Post("/message-sequence/ops", h.Sequence.ApplyOp)
		})
	})

	r.Get("/guests/{id}", h.Events.GetGuest)
	r.Get("/messages/{id}", h.Events.GetMessage)

	r.Route("/rsvp/{token}", func(r chi.Router) {
		r.Get("/", h.RSVP.GetRSVP)
		r.Post("/validate-name", h.RSVP.ValidateName)
		r.Post("/submit", h.RSVP.Submit)
		r.Get("/qr.png", h.RSVP.QRCode)
	})

	r.Post("/checkin/{token}", h.RSVP.CheckIn)

	return r
}
