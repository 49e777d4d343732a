package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/tiendc/go-deepcopy"

    "liftsched/internal/model"
)

// Memory is an in-process Store used when no DATABASE_URL is configured.
type Memory struct {
    mu      sync.Mutex
    runs    map[string]model.Run
    order   map[string][]string // tenant -> run ids, oldest first
    configs map[string]map[string]any
}

func NewMemory() *Memory {
    return &Memory{
        runs:    map[string]model.Run{},
        order:   map[string][]string{},
        configs: map[string]map[string]any{},
    }
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) (string, error) {
    var cp model.Run
    if err := deepcopy.Copy(&cp, &run); err != nil { return "", err }
    m.mu.Lock(); defer m.mu.Unlock()
    if cp.ID == "" { cp.ID = uuid.New().String() }
    if cp.CreatedAt.IsZero() { cp.CreatedAt = time.Now().UTC() }
    if prev, ok := m.runs[cp.ID]; ok {
        cp.CreatedAt = prev.CreatedAt
    } else {
        m.order[cp.TenantID] = append(m.order[cp.TenantID], cp.ID)
    }
    m.runs[cp.ID] = cp
    return cp.ID, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.runs[id]
    if !ok || r.TenantID != tenantID { return model.Run{}, ErrNotFound }
    var out model.Run
    if err := deepcopy.Copy(&out, &r); err != nil { return model.Run{}, err }
    return out, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.RunSummary, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    limit = pageLimit(limit)
    ids := m.order[tenantID]
    start := len(ids) - 1
    if cursor != "" {
        for i := range ids { if ids[i] == cursor { start = i-1; break } }
    }
    items := []model.RunSummary{}
    next := ""
    for i := start; i >= 0; i-- {
        r := m.runs[ids[i]]
        if status != "" && r.Status != status { continue }
        if len(items) == limit { next = items[len(items)-1].ID; break }
        items = append(items, r.RunSummary)
    }
    return items, next, nil
}

func (m *Memory) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    cfg := m.configs[tenantID]
    if cfg == nil { return nil, nil }
    out := make(map[string]any, len(cfg))
    for k, v := range cfg { out[k] = v }
    return out, nil
}

func (m *Memory) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    m.mu.Lock(); defer m.mu.Unlock()
    cp := make(map[string]any, len(cfg))
    for k, v := range cfg { cp[k] = v }
    m.configs[tenantID] = cp
    return nil
}
