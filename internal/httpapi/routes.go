// Package httpapi is the read-only admin HTTP API: health, metrics, orders,
// report runs and provider health.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/astrohub/internal/health"
	"github.com/jordanhubbard/astrohub/internal/metrics"
	"github.com/jordanhubbard/astrohub/internal/router"
	"github.com/jordanhubbard/astrohub/internal/store"
)

// Providers lists the registered provider adapters in fallback order.
type Providers interface {
	Adapters() []router.Sender
}

type Dependencies struct {
	Store     store.Store
	Providers Providers
	Health    *health.Tracker
	Metrics   *metrics.Registry

	// Admin guards /admin/v1. Nil leaves it open, which only tests do.
	Admin *AdminToken
}

func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", HealthzHandler(d))

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/admin/v1", func(r chi.Router) {
		if d.Admin != nil {
			r.Use(d.Admin.Middleware)
		}
		r.Get("/orders", OrdersListHandler(d))
		r.Get("/orders/{id}", OrderGetHandler(d))
		r.Get("/runs", RunsListHandler(d))
		r.Get("/providers/health", ProvidersHealthHandler(d))
	})
}

// jsonError writes a JSON-encoded error response with the given status code.
// Response body format: {"error": "<msg>"}
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
