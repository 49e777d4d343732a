package opt

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"liftsched/internal/lp"
	"liftsched/internal/metrics"
)

// Status describes how a Result was obtained.
type Status string

const (
	// StatusOptimal: the search tree was exhausted.
	StatusOptimal Status = "optimal"
	// StatusFeasible: an integral incumbent exists but a budget stopped the
	// search.
	StatusFeasible Status = "feasible"
	// StatusHeuristic: no incumbent was found in budget; the seeded root
	// LP was solved once and returned as-is.
	StatusHeuristic  Status = "heuristic"
	StatusInfeasible Status = "infeasible"
)

// Stats summarises one solve.
type Stats struct {
	Status          Status        `json:"status"`
	Nodes           int           `json:"nodes"`
	LPSolves        int           `json:"lp_solves"`
	Columns         int           `json:"columns"`
	PricingCalls    int           `json:"pricing_calls"`
	PricingNodes    int           `json:"pricing_nodes"`
	Iterations      int           `json:"iterations"`
	RootBound       float64       `json:"root_bound"`
	LagrangianBound float64       `json:"lagrangian_bound,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
}

// EventKind names a progress event.
type EventKind string

const (
	EventRootSolved EventKind = "root_solved"
	EventNodeSolved EventKind = "node_solved"
	EventIncumbent  EventKind = "incumbent"
	EventBranch     EventKind = "branch"
	EventFallback   EventKind = "fallback"
	EventDone       EventKind = "done"
)

// Event reports search progress to Options.Progress.
type Event struct {
	Kind      EventKind `json:"kind"`
	Node      int       `json:"node"`
	Depth     int       `json:"depth"`
	Bound     float64   `json:"bound"`
	Incumbent float64   `json:"incumbent,omitempty"`
	Columns   int       `json:"columns"`
	Elapsed   float64   `json:"elapsed_ms"`
}

// Options configure Solve. The zero value uses DefaultConfig, the gonum
// simplex and the standard logrus logger.
type Options struct {
	Config   *Config
	Solver   lp.Solver
	Logger   log.FieldLogger
	Progress func(Event)
}

// Result is the outcome of Solve.
type Result struct {
	Solution *Solution `json:"solution"`
	Stats    Stats     `json:"stats"`
}

// Solve runs branch-and-price on a snapshot of inst. It returns
// ErrInfeasible when no assignment covering every request exists.
func Solve(ctx context.Context, inst *Instance, opts Options) (*Result, error) {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	snap, err := inst.Snapshot()
	if err != nil {
		return nil, err
	}
	snap.RequestIndex(-1) // build the index before any concurrent reader
	if opts.Solver == nil {
		opts.Solver = lp.NewSimplex(cfg.ArtificialCost)
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	d := &driver{
		inst:     snap,
		cfg:      cfg,
		solver:   opts.Solver,
		log:      opts.Logger,
		progress: opts.Progress,
		start:    time.Now(),
	}
	res, err := d.run(ctx)
	d.stats.Elapsed = time.Since(d.start)
	status := d.stats.Status
	if err != nil && status == "" {
		status = "error"
	}
	metrics.SolveDuration.WithLabelValues(string(status)).Observe(d.stats.Elapsed.Seconds())
	metrics.SolveOutcomes.WithLabelValues(string(status)).Inc()
	if err != nil {
		return nil, err
	}
	res.Stats = d.stats
	d.log.WithFields(log.Fields{
		"status":    d.stats.Status,
		"nodes":     d.stats.Nodes,
		"columns":   d.stats.Columns,
		"objective": res.Solution.Objective,
		"elapsed":   d.stats.Elapsed,
	}).Info("solve finished")
	return res, nil
}
