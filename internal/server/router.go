package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// LegacyPrefix mounts the agent routes a second time, e.g. "/api".
	// Empty disables the second mount.
	LegacyPrefix string
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter wires the API onto a chi router.
func NewRouter(a *API, opts RouterOptions) http.Handler {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog(a.Logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	a.routes(r)
	if opts.LegacyPrefix != "" && opts.LegacyPrefix != "/" {
		r.Route(opts.LegacyPrefix, a.routes)
	}
	return r
}

func (a *API) routes(r chi.Router) {
	r.Post("/agent", a.Ingest)
	r.Get("/agent/{id}", a.GetAgent)
	r.Get("/servers", a.ListServers)
}
