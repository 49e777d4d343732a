package api

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/pkg/errors"

    "liftsched/internal/buildinfo"
    "liftsched/internal/model"
    "liftsched/internal/opt"
    "liftsched/internal/store"
)

// DispatchHandler handles POST /v1/dispatch. With ?async=true it answers 202
// at once and the run is followed through /v1/runs/{id}/events or /ws.
func (s *Server) DispatchHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.DispatchRequest
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateDispatchRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid dispatch request", err.Error(), r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)
    inst, err := req.ToInstance()
    if err == nil { err = inst.Validate() }
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid dispatch request", err.Error(), r.URL.Path)
        return
    }
    cfg, err := s.solverConfig(r.Context(), tenant, req.Config)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid solver config", err.Error(), r.URL.Path)
        return
    }
    run, err := s.newRun(r.Context(), tenant, req, inst)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Store run failed", err.Error(), r.URL.Path)
        return
    }
    if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
        s.background(run, inst, cfg)
        writeJSON(w, http.StatusAccepted, map[string]any{
            "runId":  run.ID,
            "status": run.Status,
            "events": "/v1/runs/" + run.ID + "/events",
        })
        return
    }
    ctx, cancel := context.WithTimeout(r.Context(), 2*cfg.TimeLimit)
    defer cancel()
    run, err = s.execute(ctx, run, inst, cfg)
    if err != nil {
        if errors.Is(err, opt.ErrInfeasible) {
            writeProblem(w, http.StatusUnprocessableEntity, "No feasible dispatch", err.Error(), r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Dispatch failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, run.Response)
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/runs" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    _, tenant := s.withTenant(r)
    q := r.URL.Query()
    limit := 100
    if v := q.Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListRuns(r.Context(), tenant, q.Get("status"), q.Get("cursor"), limit)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/{id}/events (SSE) and
// /v1/runs/{id}/ws.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/runs/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    switch {
    case len(parts) == 1:
        run, err := s.Store.GetRun(r.Context(), tenant, id)
        if err != nil {
            if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Run not found", id, path); return }
            writeProblem(w, 500, "Get run failed", err.Error(), path)
            return
        }
        writeJSON(w, http.StatusOK, run)
    case len(parts) == 2 && parts[1] == "events":
        s.runEventsSSE(w, r, tenant, id)
    case len(parts) == 2 && parts[1] == "ws":
        s.RunWSHandler(w, r, tenant, id)
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", path)
    }
}

// follow subscribes to a run and reports whether it is still running. A
// finished run yields its terminal event instead of a live channel.
func (s *Server) follow(ctx context.Context, tenant, id string) (chan RunEvent, *RunEvent, error) {
    ch := s.Broker.Subscribe(id)
    run, err := s.Store.GetRun(ctx, tenant, id)
    if err != nil {
        s.Broker.Unsubscribe(id, ch)
        return nil, nil, err
    }
    if run.Status == model.RunRunning { return ch, nil, nil }
    s.Broker.Unsubscribe(id, ch)
    evt := RunEvent{Type: EventRunFinished, Data: map[string]any{"runId": id, "status": run.Status, "objective": run.Objective}}
    if run.Error != "" {
        evt = RunEvent{Type: EventRunFailed, Data: map[string]any{"runId": id, "status": run.Status, "error": run.Error}}
    }
    return nil, &evt, nil
}

func (s *Server) runEventsSSE(w http.ResponseWriter, r *http.Request, tenant, id string) {
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    ch, done, err := s.follow(r.Context(), tenant, id)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Run not found", id, r.URL.Path); return }
        writeProblem(w, 500, "Get run failed", err.Error(), r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    send := func(evt RunEvent) {
        b, _ := json.Marshal(evt.Data)
        fmt.Fprintf(w, "event: %s\n", evt.Type)
        fmt.Fprintf(w, "data: %s\n\n", string(b))
        flusher.Flush()
    }
    if done != nil {
        send(*done)
        return
    }
    defer s.Broker.Unsubscribe(id, ch)
    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()
    ticker := time.NewTicker(15 * time.Second)
    defer ticker.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            send(evt)
            if evt.terminal() { return }
        case <-ticker.C:
            heartbeat()
        }
    }
}

// SolverConfigHandler handles GET/PUT /v1/solver/config. PUT replaces the
// tenant's overrides; the effective configuration is returned either way.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/solver/config" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    _, tenant := s.withTenant(r)
    switch r.Method {
    case http.MethodGet:
        overrides, err := s.Store.GetSolverConfig(r.Context(), tenant)
        if err != nil { writeProblem(w, 500, "Get config failed", err.Error(), r.URL.Path); return }
        cfg, err := s.solverConfig(r.Context(), tenant, nil)
        if err != nil { writeProblem(w, 500, "Stored config invalid", err.Error(), r.URL.Path); return }
        if overrides == nil { overrides = map[string]any{} }
        writeJSON(w, 200, map[string]any{"config": cfg, "overrides": overrides})
    case http.MethodPut:
        var body struct{ Config map[string]any `json:"config"` }
        if err := decodeJSON(w, r, &body); err != nil { writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path); return }
        if body.Config == nil { writeProblem(w, 400, "Missing config", "", r.URL.Path); return }
        cfg := s.Config
        b, _ := json.Marshal(body.Config)
        if err := opt.ParseConfig(b, &cfg); err != nil { writeProblem(w, 400, "Invalid solver config", err.Error(), r.URL.Path); return }
        if err := cfg.Validate(); err != nil { writeProblem(w, 400, "Invalid solver config", err.Error(), r.URL.Path); return }
        if err := s.Store.SaveSolverConfig(r.Context(), tenant, body.Config); err != nil { writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"config": cfg, "overrides": body.Config})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]any{"status": "ready", "build": buildinfo.Info()})
}
