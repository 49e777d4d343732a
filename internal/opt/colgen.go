package opt

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"liftsched/internal/metrics"
)

// generator runs column generation on one branch-and-bound node.
type generator struct {
	inst    *Instance
	cfg     Config
	master  *Master
	sc      *searchContext
	pricers []*Pricing
	next    int
	log     log.FieldLogger
	stats   *Stats
}

func newGenerator(inst *Instance, cfg Config, m *Master, sc *searchContext, logger log.FieldLogger, stats *Stats) *generator {
	g := &generator{inst: inst, cfg: cfg, master: m, sc: sc, log: logger, stats: stats}
	for e := range inst.Elevators {
		g.pricers = append(g.pricers, NewPricing(inst, e, cfg))
	}
	return g
}

// run alternates master solves and pricing rounds until no elevator yields
// an improving column. It returns (nil, nil) when the node is infeasible.
// A solution returned before convergence (iteration cap or cancelled
// context) is still a valid restricted LP optimum.
func (g *generator) run(ctx context.Context) (*Solution, bool, error) {
	var last *Solution
	for iter := 0; iter < g.cfg.MaxColumnIterations; iter++ {
		if ctx.Err() != nil {
			if last == nil {
				return nil, false, ctx.Err()
			}
			return last, false, nil
		}
		g.stats.Iterations++
		g.stats.LPSolves++
		metrics.SolverLPSolves.Inc()
		sol, err := g.master.Solve(ctx)
		if err != nil {
			return nil, false, err
		}
		if sol == nil {
			if g.injectFeasibility() == 0 {
				g.log.Debug("node infeasible after feasibility columns")
				return nil, false, nil
			}
			continue
		}
		last = sol
		added, err := g.round(ctx, sol.Duals)
		if err != nil {
			return nil, false, err
		}
		if added == 0 {
			return sol, true, nil
		}
	}
	g.log.WithField("iterations", g.cfg.MaxColumnIterations).Warn("column generation hit the iteration cap")
	if last == nil {
		return nil, false, nil
	}
	return last, false, nil
}

func (g *generator) injectFeasibility() int {
	n := 0
	for _, s := range g.sc.seedColumns(false) {
		if g.master.AddSchedule(s, s.Elevator) {
			n++
		}
	}
	g.stats.Columns += n
	metrics.SolverColumns.Add(float64(n))
	return n
}

// round prices elevators until one of them yields improving columns (or,
// in parallel mode, prices all of them) and merges the columns serially.
func (g *generator) round(ctx context.Context, d *Duals) (int, error) {
	for _, p := range g.pricers {
		p.Update(d, g.master.Allowed)
	}
	if g.cfg.ParallelPricing {
		return g.parallelRound(ctx, d)
	}
	for k := range g.pricers {
		e := (g.next + k) % len(g.pricers)
		cols := g.price(ctx, e)
		if n := g.admit(cols, d); n > 0 {
			g.next = (e + 1) % len(g.pricers)
			return n, nil
		}
	}
	return 0, nil
}

func (g *generator) parallelRound(ctx context.Context, d *Duals) (int, error) {
	results := make([][]Column, len(g.pricers))
	eg, ctx := errgroup.WithContext(ctx)
	for e := range g.pricers {
		eg.Go(func() error {
			results[e] = g.pricers[e].Solve(ctx)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for e, cols := range results {
		g.stats.PricingCalls++
		g.stats.PricingNodes += g.pricers[e].Expanded()
		n += g.admit(cols, d)
	}
	return n, nil
}

func (g *generator) price(ctx context.Context, e int) []Column {
	cols := g.pricers[e].Solve(ctx)
	g.stats.PricingCalls++
	g.stats.PricingNodes += g.pricers[e].Expanded()
	return cols
}

// admit adds the columns whose reduced cost, recomputed against the master
// duals, is improving.
func (g *generator) admit(cols []Column, d *Duals) int {
	n := 0
	for _, c := range cols {
		rc := d.ReducedCost(g.inst, &c.Schedule)
		if math.Abs(rc-c.ReducedCost) > 1e-6*math.Max(1, math.Abs(rc)) {
			g.log.WithFields(log.Fields{"elevator": c.Elevator, "pricing": c.ReducedCost, "master": rc}).
				Warn("reduced cost mismatch")
		}
		if rc >= -g.cfg.Epsilon {
			continue
		}
		if g.master.AddSchedule(c.Schedule, c.Elevator) {
			n++
		}
	}
	g.stats.Columns += n
	metrics.SolverColumns.Add(float64(n))
	return n
}

// lagrangianBound refines a lower bound on the node by projected subgradient
// steps over the coverage multipliers, starting from the LP duals. Only the
// restricted master's columns enter the relaxation, and the returned primal
// solution is untouched.
func lagrangianBound(inst *Instance, cols []Schedule, d *Duals, lc LagrangianConfig) float64 {
	u := make([]float64, len(inst.Requests))
	for r := range u {
		u[r] = math.Max(0, d.Request[r])
	}
	byElevator := make([][]int, len(inst.Elevators))
	for j, s := range cols {
		byElevator[s.Elevator] = append(byElevator[s.Elevator], j)
	}
	idx := make([][]int, len(cols))
	for j, s := range cols {
		for _, id := range s.Requests {
			r, _ := inst.RequestIndex(id)
			idx[j] = append(idx[j], r)
		}
	}
	best := math.Inf(-1)
	g := make([]float64, len(u))
	for k := 0; k < lc.Iterations; k++ {
		var val float64
		for r := range u {
			val += u[r]
			g[r] = 1
		}
		for _, js := range byElevator {
			pick, pickVal := -1, math.Inf(1)
			for _, j := range js {
				v := cols[j].Cost
				for _, r := range idx[j] {
					v -= u[r]
				}
				if v < pickVal {
					pick, pickVal = j, v
				}
			}
			if pick < 0 {
				return best
			}
			val += pickVal
			for _, r := range idx[pick] {
				g[r]--
			}
		}
		best = math.Max(best, val)
		step := lc.Step / float64(k+1)
		for r := range u {
			u[r] = math.Max(0, u[r]+step*g[r])
		}
	}
	return best
}
