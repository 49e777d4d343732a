package opt

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"

	"liftsched/internal/lp"
)

// Branch is a branching decision on one request: its flow into Group is
// forced to 1 (Assign) or 0.
type Branch struct {
	Request int   // index into Instance.Requests
	Group   []int // elevator indices
	Assign  bool
}

func (b Branch) covers(e, r int) bool {
	return b.Request == r && slices.Contains(b.Group, e)
}

// scheduleCollection is the master's column store, deduplicated by key.
type scheduleCollection struct {
	items []Schedule
	keys  map[string]int
}

func (c *scheduleCollection) add(s Schedule) bool {
	if c.keys == nil {
		c.keys = map[string]int{}
	}
	k := s.Key()
	if _, dup := c.keys[k]; dup {
		return false
	}
	c.keys[k] = len(c.items)
	c.items = append(c.items, s)
	return true
}

// Master is the restricted set-partitioning LP. It is a list of column and
// branching definitions; every Solve builds a fresh lp.Problem from them, so
// clones never share solver state.
type Master struct {
	inst     *Instance
	cfg      Config
	solver   lp.Solver
	cols     scheduleCollection
	branches []Branch
	fallback func(e int) (Schedule, bool)
}

// NewMaster returns an empty master for inst.
func NewMaster(inst *Instance, cfg Config, solver lp.Solver) *Master {
	return &Master{inst: inst, cfg: cfg, solver: solver}
}

// SetFallback installs the greedy schedule source used in place of
// degenerate columns.
func (m *Master) SetFallback(f func(e int) (Schedule, bool)) { m.fallback = f }

func (m *Master) degenerate(s Schedule) bool {
	return math.IsNaN(s.Cost) || math.IsInf(s.Cost, 0) || s.Cost >= m.cfg.FallbackCostThreshold
}

// AddSchedule appends s as a column of elevator e and reports whether a new
// column was added. A degenerate schedule is replaced by the greedy
// fallback schedule of e; duplicates are ignored.
func (m *Master) AddSchedule(s Schedule, e int) bool {
	m.inst.Elevator(e)
	s.Elevator = e
	if m.degenerate(s) {
		if m.fallback == nil {
			return false
		}
		g, ok := m.fallback(e)
		if !ok || m.degenerate(g) {
			return false
		}
		s = g
		s.Elevator = e
	}
	for _, id := range s.Requests {
		if _, ok := m.inst.RequestIndex(id); !ok {
			panic(fmt.Sprintf("opt: schedule serves unknown request %d", id))
		}
	}
	return m.cols.add(s)
}

// AddBranchingConstraint forces the flow of request r into group to 1
// (assign) or 0.
func (m *Master) AddBranchingConstraint(r int, group []int, assign bool) {
	m.inst.Request(r)
	for _, e := range group {
		m.inst.Elevator(e)
	}
	m.branches = append(m.branches, Branch{Request: r, Group: slices.Clone(group), Assign: assign})
}

// Allowed reports whether the branching decisions let elevator e serve r.
func (m *Master) Allowed(e, r int) bool {
	for _, b := range m.branches {
		if b.Request != r {
			continue
		}
		in := slices.Contains(b.Group, e)
		if b.Assign != in {
			return false
		}
	}
	return true
}

// Clone replays every column and branching decision into a new master.
// The fallback is not carried over; it belongs to the caller's search node.
func (m *Master) Clone() *Master {
	c := NewMaster(m.inst, m.cfg, m.solver)
	for _, s := range m.cols.items {
		c.AddSchedule(s, s.Elevator)
	}
	for _, b := range m.branches {
		c.AddBranchingConstraint(b.Request, b.Group, b.Assign)
	}
	return c
}

func (m *Master) Columns() []Schedule { return m.cols.items }
func (m *Master) Branches() []Branch  { return m.branches }
func (m *Master) NumColumns() int     { return len(m.cols.items) }


func (m *Master) loadLimit() float64 {
	if m.cfg.MaxRequestsPerElevator > 0 {
		return float64(m.cfg.MaxRequestsPerElevator)
	}
	return float64(max(1, len(m.inst.Requests)))
}

// row layout: elevators, requests, loads, branches.
func (m *Master) problem() lp.Problem {
	nE, nR := len(m.inst.Elevators), len(m.inst.Requests)
	var p lp.Problem
	for _, e := range m.inst.Elevators {
		p.Rows = append(p.Rows, lp.Row{Name: fmt.Sprintf("elev/%d", e.ID), Sense: lp.Equal, RHS: 1})
	}
	for _, r := range m.inst.Requests {
		p.Rows = append(p.Rows, lp.Row{Name: fmt.Sprintf("req/%d", r.ID), Sense: lp.Equal, RHS: 1})
	}
	for _, e := range m.inst.Elevators {
		p.Rows = append(p.Rows, lp.Row{Name: fmt.Sprintf("load/%d", e.ID), Sense: lp.LessEqual, RHS: m.loadLimit()})
	}
	for k, b := range m.branches {
		rhs := 0.0
		if b.Assign {
			rhs = 1
		}
		p.Rows = append(p.Rows, lp.Row{Name: fmt.Sprintf("branch/%d", k), Sense: lp.Equal, RHS: rhs})
	}
	for j, s := range m.cols.items {
		col := lp.Column{Name: fmt.Sprintf("x%d", j), Cost: s.Cost}
		col.Entries = append(col.Entries, lp.Entry{Row: s.Elevator, Value: 1})
		served := 0
		for _, id := range s.Requests {
			r, _ := m.inst.RequestIndex(id)
			col.Entries = append(col.Entries, lp.Entry{Row: nE + r, Value: 1})
			served++
			for k, b := range m.branches {
				if b.covers(s.Elevator, r) {
					col.Entries = append(col.Entries, lp.Entry{Row: 2*nE + nR + k, Value: 1})
				}
			}
		}
		if served > 0 {
			col.Entries = append(col.Entries, lp.Entry{Row: nE + nR + s.Elevator, Value: float64(served)})
		}
		p.Columns = append(p.Columns, col)
	}
	return p
}

// Solve solves the restricted LP. An infeasible LP yields (nil, nil).
func (m *Master) Solve(ctx context.Context) (*Solution, error) {
	p := m.problem()
	res, err := m.solver.Solve(ctx, p)
	if errors.Is(err, lp.ErrInfeasible) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opt: master solve")
	}
	nE, nR := len(m.inst.Elevators), len(m.inst.Requests)
	d := &Duals{
		Elevator: slices.Clone(res.Duals[:nE]),
		Request:  slices.Clone(res.Duals[nE : nE+nR]),
		Load:     slices.Clone(res.Duals[nE+nR : 2*nE+nR]),
		Branch:   slices.Clone(res.Duals[2*nE+nR:]),
		branches: slices.Clone(m.branches),
	}
	return newSolution(m.inst, slices.Clone(m.cols.items), res.Primal, res.Objective, d, m.cfg.Epsilon), nil
}

// Duals are the row prices of one master solve.
type Duals struct {
	Elevator []float64
	Request  []float64
	Load     []float64
	Branch   []float64
	branches []Branch
}

// RequestDual is the effective price of request r for elevator e: its
// coverage dual plus the load dual of e and every branching row that a
// column of e serving r would touch.
func (d *Duals) RequestDual(e, r int) float64 {
	v := d.Request[r] + d.Load[e]
	for k, b := range d.branches {
		if b.covers(e, r) {
			v += d.Branch[k]
		}
	}
	return v
}

// ReducedCost is cost minus the effective duals of the served unassigned
// requests minus the elevator dual.
func (d *Duals) ReducedCost(inst *Instance, s *Schedule) float64 {
	rc := s.Cost - d.Elevator[s.Elevator]
	for _, id := range s.Requests {
		r, ok := inst.RequestIndex(id)
		if !ok {
			panic(fmt.Sprintf("opt: schedule serves unknown request %d", id))
		}
		rc -= d.RequestDual(s.Elevator, r)
	}
	return rc
}
