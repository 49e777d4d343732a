package api

import (
    "net/http"
    "time"

    "liftsched/internal/buildinfo"
    "liftsched/internal/store"
)

func storeKind(st store.Store) string {
    switch st.(type) {
    case *store.Memory:
        return "memory"
    case *store.Postgres:
        return "postgres"
    }
    return "custom"
}

func brokerKind(b EventBroker) string {
    switch b.(type) {
    case *Broker:
        return "memory"
    case *RedisBroker:
        return "redis"
    }
    return "custom"
}

// DebugJSON reports the dispatch backends and the solver settings that a
// dispatch from the calling tenant would run with.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    ctx, tenant := s.withTenant(r)
    info := map[string]any{
        "build":  buildinfo.Info(),
        "time":   time.Now().UTC().Format(time.RFC3339),
        "store":  storeKind(s.Store),
        "broker": brokerKind(s.Broker),
        "rate": map[string]any{
            "rps":   float64(s.Limiter.Limit()),
            "burst": s.Limiter.Burst(),
        },
        "backgroundRuns": s.inflight.Load(),
        "tenant":         tenant,
        "solver":         s.Config,
    }
    overrides, err := s.Store.GetSolverConfig(ctx, tenant)
    if err != nil {
        info["tenantConfigError"] = err.Error()
    } else {
        info["tenantOverrides"] = overrides
        if cfg, err := s.solverConfig(ctx, tenant, nil); err == nil {
            info["effective"] = cfg
        } else {
            info["tenantConfigError"] = err.Error()
        }
    }
    writeJSON(w, http.StatusOK, info)
}
