package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter arma el router público con la cadena de middlewares
// estándar. metricsHandler puede ser nil si /metrics no se expone.
func NewRouter(h *Handlers, log *zap.Logger, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(func(next http.Handler) http.Handler { return WithLogger(next, log) })
	r.Use(WithRecover)
	r.Use(WithMetrics)
	r.Use(WithLogging)

	r.Get("/health_check", h.HealthCheck)
	r.Get("/health/ready", h.Ready)

	r.Post("/subscriptions", h.Subscribe)
	r.Get("/subscriptions/confirm", h.Confirm)

	r.Post("/newsletters", h.PublishNewsletter)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}
