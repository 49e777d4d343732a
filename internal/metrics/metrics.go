package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // SolveDuration records wall time of a dispatch solve by outcome status
    SolveDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "liftsched_solve_duration_seconds", Help: "Branch-and-price solve duration in seconds.", Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5, 10}},
        []string{"status"},
    )
    // SolveOutcomes counts solves by outcome status
    SolveOutcomes = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "liftsched_solves_total", Help: "Solves by outcome status."},
        []string{"status"},
    )
    SolverNodes = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "liftsched_branch_nodes_total", Help: "Branch-and-bound nodes processed."},
    )
    SolverLPSolves = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "liftsched_lp_solves_total", Help: "Master LP solves."},
    )
    SolverColumns = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "liftsched_columns_total", Help: "Columns admitted to master models."},
    )
    // StreamSubscribers tracks open progress streams (SSE and WebSocket)
    StreamSubscribers = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "liftsched_stream_subscribers", Help: "Open run progress streams."},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(SolveDuration)
        Registry.MustRegister(SolveOutcomes)
        Registry.MustRegister(SolverNodes)
        Registry.MustRegister(SolverLPSolves)
        Registry.MustRegister(SolverColumns)
        Registry.MustRegister(StreamSubscribers)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
