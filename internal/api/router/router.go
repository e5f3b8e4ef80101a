package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justiceops/videolink-booking/internal/http/handlers"
	httpmiddleware "github.com/justiceops/videolink-booking/internal/http/middleware"
	"github.com/justiceops/videolink-booking/internal/session"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	JourneyHandler *handlers.JourneyHandler
	RefDataHandler *handlers.RefDataHandler
	EventsHandler  *handlers.EventsHandler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	SessionSecret      string
	SessionCookieName  string
	SessionLifetime    time.Duration
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: no session required.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Everything else is session-scoped: the cookie pins a caller's
	// drafts to their browser.
	r.Group(func(private chi.Router) {
		private.Use(session.Middleware(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionLifetime))

		private.Route("/journeys", func(r chi.Router) {
			r.Post("/", cfg.JourneyHandler.StartJourney)
			r.Post("/amend/{bookingID}", cfg.JourneyHandler.StartAmend)
			r.Post("/cancel/{bookingID}", cfg.JourneyHandler.StartCancel)

			r.Route("/{journeyID}", func(r chi.Router) {
				r.Get("/", cfg.JourneyHandler.GetJourney)
				r.Delete("/", cfg.JourneyHandler.AbandonJourney)
				r.Post("/booking-details", cfg.JourneyHandler.SubmitBookingDetails)
				r.Post("/not-available", cfg.JourneyHandler.SubmitNotAvailable)
				r.Post("/select-rooms", cfg.JourneyHandler.SubmitSelectRooms)
				r.Post("/notes", cfg.JourneyHandler.SubmitNotes)
				r.Post("/confirm", cfg.JourneyHandler.Confirm)
				r.Post("/confirm-cancel", cfg.JourneyHandler.ConfirmCancel)
			})
		})

		private.Get("/bookings/{bookingID}", cfg.JourneyHandler.ViewBooking)

		if cfg.RefDataHandler != nil {
			private.Route("/reference", func(r chi.Router) {
				r.Get("/hearing-types", cfg.RefDataHandler.HearingTypes)
				r.Get("/meeting-types", cfg.RefDataHandler.MeetingTypes)
				r.Get("/prisons/{prisonCode}/rooms", cfg.RefDataHandler.Rooms)
			})
		}

		if cfg.EventsHandler != nil {
			private.Get("/events", cfg.EventsHandler.List)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
