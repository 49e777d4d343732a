package api

import (
    "context"
    "time"

    "github.com/google/uuid"
    "github.com/pkg/errors"
    log "github.com/sirupsen/logrus"

    "liftsched/internal/model"
    "liftsched/internal/opt"
)

// newRun records a dispatch in the running state and returns it.
func (s *Server) newRun(ctx context.Context, tenant string, req model.DispatchRequest, inst *opt.Instance) (model.Run, error) {
    run := model.Run{
        TenantID: tenant,
        RunSummary: model.RunSummary{
            ID:        uuid.New().String(),
            Status:    model.RunRunning,
            Elevators: inst.NumElevators(),
            Requests:  inst.NumRequests(),
            CreatedAt: time.Now().UTC(),
        },
        Request: req,
    }
    _, err := s.Store.SaveRun(ctx, run)
    return run, err
}

// execute solves a recorded run, publishing progress under its id, and
// stores the outcome.
func (s *Server) execute(ctx context.Context, run model.Run, inst *opt.Instance, cfg opt.Config) (model.Run, error) {
    logger := s.Log.WithFields(log.Fields{"run": run.ID, "tenant": run.TenantID})
    progress := func(ev opt.Event) {
        s.Broker.Publish(run.ID, RunEvent{Type: "solver." + string(ev.Kind), Data: map[string]any{
            "runId":     run.ID,
            "node":      ev.Node,
            "depth":     ev.Depth,
            "bound":     ev.Bound,
            "incumbent": ev.Incumbent,
            "columns":   ev.Columns,
            "elapsedMs": ev.Elapsed,
        }})
    }
    res, err := opt.Solve(ctx, inst, opt.Options{Config: &cfg, Logger: logger, Progress: progress})
    if err != nil {
        run.Status = model.RunFailed
        if errors.Is(err, opt.ErrInfeasible) { run.Status = string(opt.StatusInfeasible) }
        run.Error = err.Error()
        if _, serr := s.Store.SaveRun(context.Background(), run); serr != nil {
            logger.WithError(serr).Error("store failed run")
        }
        s.Broker.Publish(run.ID, RunEvent{Type: EventRunFailed, Data: map[string]any{"runId": run.ID, "status": run.Status, "error": run.Error}})
        return run, err
    }
    resp := model.FromResult(run.ID, inst, res)
    run.Status = resp.Status
    run.Objective = resp.Objective
    run.ElapsedMs = resp.Stats.ElapsedMs
    run.Response = &resp
    if _, err := s.Store.SaveRun(context.Background(), run); err != nil {
        logger.WithError(err).Error("store finished run")
        return run, err
    }
    s.Broker.Publish(run.ID, RunEvent{Type: EventRunFinished, Data: map[string]any{
        "runId":     run.ID,
        "status":    resp.Status,
        "objective": resp.Objective,
        "nodes":     resp.Stats.Nodes,
    }})
    return run, nil
}

// background runs execute detached from the request, bounded by twice the
// solver time limit.
func (s *Server) background(run model.Run, inst *opt.Instance, cfg opt.Config) {
    s.runs.Add(1)
    s.inflight.Add(1)
    go func() {
        defer s.runs.Done()
        defer s.inflight.Add(-1)
        ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.TimeLimit)
        defer cancel()
        _, _ = s.execute(ctx, run, inst, cfg)
    }()
}
