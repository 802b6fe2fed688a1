package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/astrohub/internal/health"
	"github.com/jordanhubbard/astrohub/internal/store"
)

// HealthzHandler reports 503 when no LLM provider has a credential, since
// every report would then fail.
func HealthzHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		total, configured := 0, 0
		if d.Providers != nil {
			for _, a := range d.Providers.Adapters() {
				total++
				if a.Configured() {
					configured++
				}
			}
		}
		status := "ok"
		if configured == 0 {
			status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeJSON(w, map[string]any{
			"status":     status,
			"providers":  total,
			"configured": configured,
		})
	}
}

func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return max(lo, min(n, hi))
}

func OrdersListHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 20, 1, 200)
		orders, err := d.Store.ListRecentOrders(r.Context(), limit)
		if err != nil {
			slog.Error("list orders failed", slog.String("error", err.Error()))
			jsonError(w, "list orders failed", http.StatusInternalServerError)
			return
		}
		if orders == nil {
			orders = []store.Order{}
		}
		writeJSON(w, map[string]any{"orders": orders})
	}
}

func OrderGetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, "invalid order id", http.StatusBadRequest)
			return
		}
		o, err := d.Store.GetOrder(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "order not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("get order failed", slog.Int64("order_id", id), slog.String("error", err.Error()))
			jsonError(w, "get order failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, o)
	}
}

func RunsListHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50, 1, 500)
		offset := queryInt(r, "offset", 0, 0, 1<<30)
		runs, err := d.Store.ListRuns(r.Context(), limit, offset)
		if err != nil {
			slog.Error("list runs failed", slog.String("error", err.Error()))
			jsonError(w, "list runs failed", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []store.ReportRun{}
		}
		writeJSON(w, map[string]any{"runs": runs})
	}
}

// ProviderHealth is one entry of /admin/v1/providers/health, in fallback
// order.
type ProviderHealth struct {
	ID         string       `json:"id"`
	Configured bool         `json:"configured"`
	Models     []string     `json:"models"`
	Health     health.Stats `json:"health"`
}

func ProvidersHealthHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []ProviderHealth{}
		if d.Providers != nil {
			for _, a := range d.Providers.Adapters() {
				ph := ProviderHealth{ID: a.ID(), Configured: a.Configured(), Models: a.Models()}
				if d.Health != nil {
					ph.Health = d.Health.GetStats(a.ID())
				} else {
					ph.Health = health.Stats{ProviderID: a.ID(), State: health.StateHealthy}
				}
				out = append(out, ph)
			}
		}
		writeJSON(w, map[string]any{"providers": out})
	}
}
