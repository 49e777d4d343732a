package store

import (
    "context"
    "errors"
    "fmt"
    "testing"

    "liftsched/internal/model"
)

func TestMemoryRunLifecycle(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    run := model.Run{TenantID: "t1", RunSummary: model.RunSummary{Status: model.RunRunning},
        Request: model.DispatchRequest{Floors: 5, Config: map[string]any{"pricing_columns": 2}}}
    id, err := m.SaveRun(ctx, run)
    if err != nil || id == "" { t.Fatalf("SaveRun: %q %v", id, err) }

    run.ID = id
    run.Status = "optimal"
    run.Response = &model.DispatchResponse{RunID: id, Objective: 7}
    if _, err := m.SaveRun(ctx, run); err != nil { t.Fatalf("update: %v", err) }

    got, err := m.GetRun(ctx, "t1", id)
    if err != nil { t.Fatalf("GetRun: %v", err) }
    if got.Status != "optimal" || got.Response.Objective != 7 { t.Fatalf("stale run: %+v", got) }
    got.Response.Objective = 99
    again, _ := m.GetRun(ctx, "t1", id)
    if again.Response.Objective != 7 { t.Fatal("GetRun leaked internal state") }

    if _, err := m.GetRun(ctx, "t2", id); !errors.Is(err, ErrNotFound) { t.Fatalf("cross-tenant read: %v", err) }
    items, _, _ := m.ListRuns(ctx, "t1", "", "", 0)
    if len(items) != 1 { t.Fatalf("update must not duplicate the run, got %d", len(items)) }
}

func TestMemoryListRunsPagesNewestFirst(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    for i := 0; i < 5; i++ {
        status := "optimal"
        if i%2 == 1 { status = "heuristic" }
        _, _ = m.SaveRun(ctx, model.Run{TenantID: "t1", RunSummary: model.RunSummary{ID: fmt.Sprintf("r%d", i), Status: status}})
    }
    page, next, _ := m.ListRuns(ctx, "t1", "", "", 2)
    if len(page) != 2 || page[0].ID != "r4" || page[1].ID != "r3" || next != "r3" {
        t.Fatalf("first page: %+v next=%q", page, next)
    }
    page, next, _ = m.ListRuns(ctx, "t1", "", next, 2)
    if len(page) != 2 || page[0].ID != "r2" || next != "r1" {
        t.Fatalf("second page: %+v next=%q", page, next)
    }
    page, next, _ = m.ListRuns(ctx, "t1", "", next, 2)
    if len(page) != 1 || page[0].ID != "r0" || next != "" {
        t.Fatalf("last page: %+v next=%q", page, next)
    }
    only, _, _ := m.ListRuns(ctx, "t1", "heuristic", "", 10)
    if len(only) != 2 { t.Fatalf("status filter: %+v", only) }
}

func TestMemorySolverConfig(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    if cfg, err := m.GetSolverConfig(ctx, "t1"); cfg != nil || err != nil { t.Fatalf("want nil config, got %v %v", cfg, err) }
    in := map[string]any{"pricing_columns": 3}
    if err := m.SaveSolverConfig(ctx, "t1", in); err != nil { t.Fatal(err) }
    in["pricing_columns"] = 9
    cfg, _ := m.GetSolverConfig(ctx, "t1")
    if cfg["pricing_columns"] != 3 { t.Fatalf("config aliased caller map: %v", cfg) }
}
