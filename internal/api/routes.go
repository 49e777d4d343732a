package api

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "liftsched/internal/metrics"
)

// Routes returns the API mux.
func (s *Server) Routes() *http.ServeMux {
    metrics.RegisterDefault()
    mux := http.NewServeMux()

    // Dispatch
    mux.HandleFunc("/v1/dispatch", s.RateLimit(s.DispatchHandler))

    // Runs
    mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
    mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /events and /ws

    // Solver configuration
    mux.HandleFunc("/v1/solver/config", s.SolverConfigHandler)

    // Health
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)

    // Ops
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/debug", s.DebugJSON)
    return mux
}
