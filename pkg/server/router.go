// Package server exposes the webhook gateway over HTTP.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Routes
const (
	WebhookPath = "/webhook"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// NewRouter mounts the webhook handler next to health and metrics endpoints.
// The webhook route accepts every method; the handler answers 405 itself.
func NewRouter(logger zerolog.Logger, webhook http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware first to capture all requests
	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(logger))
	r.Use(chimw.Recoverer)

	r.Handle(MetricsPath, promhttp.Handler())
	r.Get(HealthPath, health)
	r.Handle(WebhookPath, webhook)

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
