package opt

import (
	"container/heap"
	"context"
	"math"
	"slices"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"liftsched/internal/lp"
	"liftsched/internal/metrics"
)

// bbNode is one node of the integer search. It owns its master.
type bbNode struct {
	id     int
	depth  int
	master *Master
	sol    *Solution
	bound  float64
}

type bbQueue []*bbNode

func (q bbQueue) Len() int { return len(q) }
func (q bbQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].id < q[j].id
}
func (q bbQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *bbQueue) Push(x any)   { *q = append(*q, x.(*bbNode)) }
func (q *bbQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

type driver struct {
	inst     *Instance
	cfg      Config
	solver   lp.Solver
	log      log.FieldLogger
	progress func(Event)
	start    time.Time

	stats     Stats
	incumbent *Solution
	nextID    int
}

func (d *driver) emit(ev Event) {
	ev.Elapsed = float64(time.Since(d.start).Microseconds()) / 1000
	if d.incumbent != nil {
		ev.Incumbent = d.incumbent.Objective
	}
	if d.progress != nil {
		d.progress(ev)
	}
}

// newNodeMaster wires a per-node search context into m.
func (d *driver) newNodeMaster(m *Master) *searchContext {
	sc := newSearchContext(d.inst, d.cfg, m)
	m.SetFallback(sc.greedySchedule)
	return sc
}

func (d *driver) seed(m *Master, sc *searchContext) {
	n := 0
	for _, s := range sc.seedColumns(true) {
		if m.AddSchedule(s, s.Elevator) {
			n++
		}
	}
	d.stats.Columns += n
	metrics.SolverColumns.Add(float64(n))
}

func (d *driver) solveNode(ctx context.Context, id int, m *Master, sc *searchContext) (*Solution, bool, error) {
	g := newGenerator(d.inst, d.cfg, m, sc, d.log.WithField("node", id), &d.stats)
	return g.run(ctx)
}

func (d *driver) run(ctx context.Context) (*Result, error) {
	sctx, cancel := context.WithDeadline(ctx, d.start.Add(d.cfg.TimeLimit))
	defer cancel()

	root := NewMaster(d.inst, d.cfg, d.solver)
	sc := d.newNodeMaster(root)
	d.seed(root, sc)
	sol, converged, err := d.solveNode(sctx, 0, root, sc)
	if err != nil {
		if ctx.Err() == nil && sctx.Err() != nil {
			return d.fallback(ctx)
		}
		return nil, err
	}
	if sol == nil {
		d.stats.Status = StatusInfeasible
		return nil, ErrInfeasible
	}
	d.stats.RootBound = sol.Objective
	if d.cfg.Lagrangian.Enabled && converged {
		d.stats.LagrangianBound = lagrangianBound(d.inst, sol.Schedules, sol.Duals, d.cfg.Lagrangian)
	}
	d.emit(Event{Kind: EventRootSolved, Bound: sol.Objective, Columns: root.NumColumns()})

	q := &bbQueue{}
	heap.Push(q, &bbNode{id: 0, master: root, sol: sol, bound: sol.Objective})
	d.nextID = 1
	stopped := false
	for q.Len() > 0 {
		if sctx.Err() != nil || d.stats.Nodes >= d.cfg.MaxBranchNodes {
			stopped = true
			break
		}
		n := heap.Pop(q).(*bbNode)
		d.stats.Nodes++
		metrics.SolverNodes.Inc()
		if d.incumbent != nil && n.bound >= d.incumbent.Objective-d.cfg.Epsilon {
			continue
		}
		d.emit(Event{Kind: EventNodeSolved, Node: n.id, Depth: n.depth, Bound: n.bound, Columns: n.master.NumColumns()})
		if n.sol.Integral && n.sol.covers(d.inst) {
			d.offer(n, n.sol)
			continue
		}
		if n.sol.requestIntegral(d.inst) {
			if r := n.sol.round(d.inst); r != nil {
				d.offer(n, r)
				continue
			}
		}
		r, g1, g2, ok := selectBranch(d.inst, n.sol, d.cfg.Epsilon)
		if !ok {
			d.log.WithField("node", n.id).Warn("fractional solution without a branching candidate")
			continue
		}
		d.log.WithFields(log.Fields{"node": n.id, "request": d.inst.Requests[r].ID, "g1": g1, "g2": g2}).
			Debug("branching")
		d.emit(Event{Kind: EventBranch, Node: n.id, Depth: n.depth, Bound: n.bound})
		for _, groups := range [2][2][]int{{g1, g2}, {g2, g1}} {
			m := n.master.Clone()
			m.AddBranchingConstraint(r, groups[0], true)
			m.AddBranchingConstraint(r, groups[1], false)
			csc := d.newNodeMaster(m)
			id := d.nextID
			d.nextID++
			csol, _, err := d.solveNode(sctx, id, m, csc)
			if err != nil {
				if ctx.Err() == nil && sctx.Err() != nil {
					stopped = true
					break
				}
				return nil, err
			}
			if csol == nil {
				continue
			}
			bound := math.Max(csol.Objective, n.bound)
			if d.incumbent != nil && bound >= d.incumbent.Objective-d.cfg.Epsilon {
				continue
			}
			heap.Push(q, &bbNode{id: id, depth: n.depth + 1, master: m, sol: csol, bound: bound})
		}
		if stopped {
			break
		}
	}

	if d.incumbent == nil {
		d.log.WithField("nodes", d.stats.Nodes).Warn("no integral incumbent, using heuristic fallback")
		return d.fallback(ctx)
	}
	d.stats.Status = StatusOptimal
	if stopped || q.Len() > 0 {
		d.stats.Status = StatusFeasible
	}
	d.emit(Event{Kind: EventDone, Bound: d.stats.RootBound})
	return &Result{Solution: d.incumbent}, nil
}

func (d *driver) offer(n *bbNode, s *Solution) {
	if d.incumbent != nil && s.Objective >= d.incumbent.Objective-d.cfg.Epsilon {
		return
	}
	d.incumbent = s
	d.log.WithFields(log.Fields{"node": n.id, "objective": s.Objective}).Debug("new incumbent")
	d.emit(Event{Kind: EventIncumbent, Node: n.id, Depth: n.depth, Bound: n.bound})
}

// fallback seeds a fresh root, solves its LP once and returns it. A
// fractional LP is replaced by the partition routes when they exist.
func (d *driver) fallback(ctx context.Context) (*Result, error) {
	m := NewMaster(d.inst, d.cfg, d.solver)
	sc := d.newNodeMaster(m)
	d.seed(m, sc)
	d.stats.LPSolves++
	metrics.SolverLPSolves.Inc()
	sol, err := m.Solve(ctx)
	if err != nil {
		return nil, err
	}
	if sol == nil {
		d.stats.Status = StatusInfeasible
		return nil, ErrInfeasible
	}
	if !sol.Integral {
		if r := sol.round(d.inst); r != nil && sol.requestIntegral(d.inst) {
			sol = r
		} else if p := partitionSolution(d.inst, sc, sol); p != nil {
			sol = p
		}
	}
	d.stats.Status = StatusHeuristic
	d.emit(Event{Kind: EventFallback, Bound: sol.Objective, Columns: m.NumColumns()})
	return &Result{Solution: sol}, nil
}

// partitionSolution selects each elevator's partition route among the
// columns of sol.
func partitionSolution(inst *Instance, sc *searchContext, sol *Solution) *Solution {
	part, ok := sc.Partition()
	if !ok {
		return nil
	}
	values := make([]float64, len(sol.Schedules))
	var obj float64
	for e := range inst.Elevators {
		s, ok := sc.build(e, part[e])
		if !ok {
			return nil
		}
		key := s.Key()
		j := slices.IndexFunc(sol.Schedules, func(c Schedule) bool { return c.Key() == key })
		if j < 0 {
			return nil
		}
		values[j] = 1
		obj += sol.Schedules[j].Cost
	}
	out := &Solution{Values: values, Schedules: sol.Schedules, Objective: obj, Duals: sol.Duals, Integral: true, eps: sol.eps}
	if !out.covers(inst) {
		return nil
	}
	return out
}

// selectBranch picks the fractional request whose elevator flows split most
// evenly into two groups. Elevators with no flow join the lighter group so
// the two children partition all elevators.
func selectBranch(inst *Instance, sol *Solution, eps float64) (int, []int, []int, bool) {
	best, bestScore := -1, math.Inf(1)
	var bestG1, bestG2 []int
	for r, f := range sol.flows(inst) {
		var support, idle []int
		fractional := false
		for e, v := range f {
			if v > eps {
				support = append(support, e)
				if v < 1-eps {
					fractional = true
				}
			} else {
				idle = append(idle, e)
			}
		}
		if !fractional || len(support) < 2 {
			continue
		}
		sort.SliceStable(support, func(a, b int) bool { return f[support[a]] > f[support[b]] })
		var g1, g2 []int
		var s1, s2 float64
		for _, e := range support {
			if s1 <= s2 {
				g1, s1 = append(g1, e), s1+f[e]
			} else {
				g2, s2 = append(g2, e), s2+f[e]
			}
		}
		score := math.Abs(0.5-s1) + math.Abs(0.5-s2)
		if score < bestScore-1e-12 {
			if s1 <= s2 {
				g1 = append(g1, idle...)
			} else {
				g2 = append(g2, idle...)
			}
			best, bestScore, bestG1, bestG2 = r, score, g1, g2
		}
	}
	if best < 0 {
		return 0, nil, nil, false
	}
	slices.Sort(bestG1)
	slices.Sort(bestG2)
	return best, bestG1, bestG2, true
}
