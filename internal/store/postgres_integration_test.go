//go:build postgres_integration

package store

import (
    "os"
    "testing"

    "liftsched/internal/model"
)

func TestPostgresRunRoundTrip(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    defer func() { _ = p.Close() }()
    if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.Migrate(t.Context()); err != nil { t.Fatalf("Migrate: %v", err) }

    run := model.Run{TenantID: "t_it", RunSummary: model.RunSummary{Status: model.RunRunning, Elevators: 1, Requests: 1},
        Request: model.DispatchRequest{Floors: 5, Elevators: []model.ElevatorIn{{ID: 1, Capacity: 4}}}}
    id, err := p.SaveRun(t.Context(), run)
    if err != nil { t.Fatalf("SaveRun: %v", err) }
    run.ID = id
    run.Status = "optimal"
    run.Response = &model.DispatchResponse{RunID: id, Status: "optimal", Objective: 7}
    if _, err := p.SaveRun(t.Context(), run); err != nil { t.Fatalf("SaveRun update: %v", err) }
    got, err := p.GetRun(t.Context(), "t_it", id)
    if err != nil { t.Fatalf("GetRun: %v", err) }
    if got.Status != "optimal" || got.Response == nil || got.Response.Objective != 7 { t.Fatalf("round trip: %+v", got) }
    if _, _, err := p.ListRuns(t.Context(), "t_it", "", "", 1); err != nil { t.Fatalf("ListRuns: %v", err) }
    if err := p.SaveSolverConfig(t.Context(), "t_it", map[string]any{"pricing_columns": 3}); err != nil { t.Fatalf("SaveSolverConfig: %v", err) }
    cfg, err := p.GetSolverConfig(t.Context(), "t_it")
    if err != nil || cfg["pricing_columns"] != float64(3) { t.Fatalf("GetSolverConfig: %v %v", cfg, err) }
}
