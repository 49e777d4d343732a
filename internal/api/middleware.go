package api

import (
    "bufio"
    "net"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/pkg/errors"
    log "github.com/sirupsen/logrus"

    "liftsched/internal/metrics"
)

// statusRecorder keeps the status code while staying streamable (SSE) and
// hijackable (WebSocket).
type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("hijack not supported") }
    return h.Hijack()
}

// routeLabel collapses run ids so metric cardinality stays bounded.
func routeLabel(path string) string {
    if strings.HasPrefix(path, "/v1/runs/") {
        parts := strings.Split(strings.TrimPrefix(path, "/v1/runs/"), "/")
        if len(parts) > 1 { return "/v1/runs/{id}/" + parts[1] }
        return "/v1/runs/{id}"
    }
    return path
}

// LogMiddleware logs every request and records the HTTP metrics.
func LogMiddleware(logger log.FieldLogger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        code := strconv.Itoa(rec.status)
        path := routeLabel(r.URL.Path)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(dur.Seconds())
        logger.WithFields(log.Fields{
            "remote":   r.RemoteAddr,
            "method":   r.Method,
            "path":     r.URL.Path,
            "status":   rec.status,
            "duration": dur,
        }).Info("request")
    })
}

// RateLimit sheds load with 429 once the server's token bucket is empty.
func (s *Server) RateLimit(next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if s.Limiter != nil && !s.Limiter.Allow() {
            w.Header().Set("Retry-After", "1")
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "dispatch rate limit exceeded", r.URL.Path)
            return
        }
        next(w, r)
    }
}
