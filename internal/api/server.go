package api

import (
    "context"
    "encoding/json"
    "net/http"
    "os"
    "strconv"
    "strings"
    "sync"
    "sync/atomic"

    "github.com/pkg/errors"
    log "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "liftsched/internal/opt"
    "liftsched/internal/store"
)

type Server struct {
    Store   store.Store
    Broker  EventBroker
    // Config is the process-wide solver configuration; tenants and single
    // requests overlay it.
    Config  opt.Config
    Limiter *rate.Limiter
    Log     log.FieldLogger

    runs     sync.WaitGroup
    inflight atomic.Int64
}

// NewServer creates a Server from the environment. Without DATABASE_URL it
// uses the in-memory store; without REDIS_URL the in-process broker.
func NewServer() (*Server, error) {
    logger := log.StandardLogger()
    cfg := opt.DefaultConfig()
    if path := os.Getenv("SOLVER_CONFIG"); path != "" {
        c, err := opt.LoadConfig(path)
        if err != nil { return nil, err }
        cfg = c
    }
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.Migrate(context.Background()); err != nil { return nil, err }
        }
        s = sp
    }
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        rb, err := NewRedisBroker()
        if err != nil {
            logger.WithError(err).Warn("redis broker unavailable, using in-memory broker")
            broker = NewBroker()
        } else {
            broker = rb
        }
    } else {
        broker = NewBroker()
    }
    return &Server{
        Store:   s,
        Broker:  broker,
        Config:  cfg,
        Limiter: rate.NewLimiter(rate.Limit(envFloat("RATE_RPS", 10)), int(envFloat("RATE_BURST", 20))),
        Log:     logger,
    }, nil
}

func envFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 { return f }
    }
    return def
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// solverConfig layers the tenant's stored overrides and then the request's
// own on top of the process configuration.
func (s *Server) solverConfig(ctx context.Context, tenant string, overrides map[string]any) (opt.Config, error) {
    cfg := s.Config
    stored, err := s.Store.GetSolverConfig(ctx, tenant)
    if err != nil { return cfg, err }
    for _, layer := range []map[string]any{stored, overrides} {
        if len(layer) == 0 { continue }
        // JSON is a YAML subset, so the overlay reuses the yaml tags.
        b, err := json.Marshal(layer)
        if err != nil { return cfg, err }
        if err := opt.ParseConfig(b, &cfg); err != nil { return cfg, errors.Wrap(err, "solver config") }
    }
    return cfg, cfg.Validate()
}

// Wait blocks until background dispatch runs have finished.
func (s *Server) Wait() { s.runs.Wait() }
