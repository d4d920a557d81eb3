package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/novadent/booking-gateway/internal/http/handlers"
	httpmiddleware "github.com/novadent/booking-gateway/internal/http/middleware"
	"github.com/novadent/booking-gateway/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Booking            *handlers.BookingHandler
	SessionJWTSecret   string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler

	// OTPSendRatePerSec throttles the send-otp endpoint per client IP;
	// zero disables the limiter.
	OTPSendRatePerSec float64
	OTPSendBurst      int
}

// New creates a new Chi router with all routes configured
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

	// Public endpoints.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Booking API, patient session required.
	r.Route("/api/booking", func(api chi.Router) {
		api.Use(httpmiddleware.SessionAuth(cfg.SessionJWTSecret))

		api.Get("/doctors", cfg.Booking.ListDoctors)
		api.Get("/slots", cfg.Booking.SearchSlots)
		api.Post("/hold", cfg.Booking.HoldSlot)

		if cfg.OTPSendRatePerSec > 0 {
			api.With(httpmiddleware.RateLimit(cfg.OTPSendRatePerSec, cfg.OTPSendBurst)).
				Post("/otp/send", cfg.Booking.SendOTP)
		} else {
			api.Post("/otp/send", cfg.Booking.SendOTP)
		}
		api.Post("/otp/verify", cfg.Booking.VerifyOTP)
	})

	return r
}
