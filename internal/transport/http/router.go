package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkinhandler "kidgate/internal/checkin/handler"
	"kidgate/internal/feeds"
	"kidgate/internal/platform/metrics"
	"kidgate/internal/platform/middleware"
	"kidgate/internal/portal"
	"kidgate/internal/transport/http/shared"
)

// HealthCheck probes one backend dependency.
type HealthCheck func(ctx context.Context) error

// Deps collects everything the router mounts.
type Deps struct {
	CheckIns *checkinhandler.Handler
	Portal   *portal.Handler
	Feeds    *feeds.Handler
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Health   map[string]HealthCheck
}

// NewRouter wires all public endpoints. The subscription stream mounts
// outside the timeout middleware: it is long-lived by contract.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		d.CheckIns.Register(r)
		d.Portal.Register(r)
	})

	d.Feeds.Register(r)

	r.Get("/healthz", handleHealth(d.Health))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		shared.WriteJSON(w, status, out)
	}
}
