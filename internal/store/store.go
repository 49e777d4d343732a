package store

import (
    "context"
    "github.com/pkg/errors"

    "liftsched/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store persists dispatch runs and per-tenant solver overrides.
type Store interface {
    // SaveRun inserts or replaces a run. An empty ID is assigned.
    SaveRun(ctx context.Context, run model.Run) (string, error)
    GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
    // ListRuns pages newest-first; cursor is the last id of the previous page.
    ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.RunSummary, string, error)

    GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error)
    SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error
}

func pageLimit(limit int) int {
    if limit <= 0 || limit > 500 { return 100 }
    return limit
}
