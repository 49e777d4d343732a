package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "math"
    "strconv"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"
    "github.com/pkg/errors"

    "liftsched/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatch_runs (
    id          uuid PRIMARY KEY,
    tenant_id   text NOT NULL,
    status      text NOT NULL,
    objective   double precision NOT NULL DEFAULT 0,
    elevators   int NOT NULL,
    requests    int NOT NULL,
    elapsed_ms  bigint NOT NULL DEFAULT 0,
    error       text,
    request     jsonb NOT NULL,
    response    jsonb,
    created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dispatch_runs_tenant_created ON dispatch_runs (tenant_id, created_at DESC, id DESC);
CREATE TABLE IF NOT EXISTS solver_config (
    tenant_id   text PRIMARY KEY,
    config      jsonb NOT NULL,
    updated_at  timestamptz NOT NULL DEFAULT now()
);`

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, errors.Wrap(err, "open postgres")
    }
    if err := db.Ping(); err != nil {
        return nil, errors.Wrap(err, "ping postgres")
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Migrate creates the tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, schema)
    return errors.Wrap(err, "migrate")
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) (string, error) {
    if run.ID == "" { run.ID = uuid.New().String() }
    if run.CreatedAt.IsZero() { run.CreatedAt = time.Now().UTC() }
    req, err := json.Marshal(run.Request)
    if err != nil { return "", err }
    var resp any
    if run.Response != nil {
        b, err := json.Marshal(run.Response)
        if err != nil { return "", err }
        resp = string(b)
    }
    _, err = p.db.ExecContext(ctx, `INSERT INTO dispatch_runs (id, tenant_id, status, objective, elevators, requests, elapsed_ms, error, request, response, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO UPDATE SET status=$3, objective=$4, elapsed_ms=$7, error=$8, response=$10`,
        run.ID, run.TenantID, run.Status, finite(run.Objective), run.Elevators, run.Requests, run.ElapsedMs, nullIfEmpty(run.Error), string(req), resp, run.CreatedAt)
    if err != nil { return "", errors.Wrapf(err, "save run %s", run.ID) }
    return run.ID, nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
    if _, err := uuid.Parse(id); err != nil { return model.Run{}, ErrNotFound }
    row := p.db.QueryRowContext(ctx, `SELECT id::text, status, objective, elevators, requests, elapsed_ms, error, request, response, created_at
        FROM dispatch_runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    var r model.Run
    var errText sql.NullString
    var req, resp []byte
    if err := row.Scan(&r.ID, &r.Status, &r.Objective, &r.Elevators, &r.Requests, &r.ElapsedMs, &errText, &req, &resp, &r.CreatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
        return model.Run{}, err
    }
    r.TenantID = tenantID
    r.Error = errText.String
    if err := json.Unmarshal(req, &r.Request); err != nil { return model.Run{}, errors.Wrap(err, "decode request") }
    if len(resp) > 0 {
        r.Response = &model.DispatchResponse{}
        if err := json.Unmarshal(resp, r.Response); err != nil { return model.Run{}, errors.Wrap(err, "decode response") }
    }
    return r, nil
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.RunSummary, string, error) {
    limit = pageLimit(limit)
    q := `SELECT id::text, status, objective, elevators, requests, elapsed_ms, error, created_at FROM dispatch_runs WHERE tenant_id=$1`
    args := []any{tenantID}
    if status != "" {
        args = append(args, status)
        q += ` AND status=$2`
    }
    if cursor != "" {
        if _, err := uuid.Parse(cursor); err != nil { return nil, "", errors.Errorf("bad cursor %q", cursor) }
        args = append(args, cursor)
        n := len(args)
        q += ` AND (created_at, id) < (SELECT created_at, id FROM dispatch_runs WHERE id=$` + strconv.Itoa(n) + `)`
    }
    args = append(args, limit)
    q += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.RunSummary{}
    var last string
    for rows.Next() {
        var s model.RunSummary
        var errText sql.NullString
        if err := rows.Scan(&s.ID, &s.Status, &s.Objective, &s.Elevators, &s.Requests, &s.ElapsedMs, &errText, &s.CreatedAt); err != nil { return nil, "", err }
        s.Error = errText.String
        out = append(out, s)
        last = s.ID
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) GetSolverConfig(ctx context.Context, tenantID string) (map[string]any, error) {
    row := p.db.QueryRowContext(ctx, `SELECT config FROM solver_config WHERE tenant_id=$1`, tenantID)
    var js []byte
    if err := row.Scan(&js); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return nil, nil }
        return nil, err
    }
    var cfg map[string]any
    if err := json.Unmarshal(js, &cfg); err != nil { return nil, err }
    return cfg, nil
}

func (p *Postgres) SaveSolverConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
    b, err := json.Marshal(cfg)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO solver_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, string(b))
    return err
}

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }

// finite maps infeasible or unbounded objectives to 0 for storage.
func finite(f float64) float64 {
    if math.IsNaN(f) || math.IsInf(f, 0) { return 0 }
    return f
}

