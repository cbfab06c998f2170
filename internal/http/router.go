package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetops/busbooking/internal/observability"
	"github.com/fleetops/busbooking/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyKeyMiddleware)

	r.Route("/v1/bookings", func(r chi.Router) {
		r.Get("/trip/{tripID}/available-seats", h.AvailableSeats)
		r.Post("/hold", h.CreateHold)
		r.Delete("/hold/{id}", h.ReleaseHold)
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/confirm-payment", h.ConfirmPayment)
		r.Post("/{id}/refund", h.Refund)
		r.Post("/{id}/checkin", h.CheckIn)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/no-show", h.MarkNoShow)
	})
	r.Get("/v1/tickets/{ticketNo}/validate", h.ValidateTicket)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
