package lp

import (
	"context"
	"errors"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestSimplexEqualityWithDuals(t *testing.T) {
	// min x0 + 2 x1  s.t.  x0 + x1 = 1
	p := Problem{
		Rows: []Row{{Name: "cover", Sense: Equal, RHS: 1}},
		Columns: []Column{
			{Name: "x0", Cost: 1, Entries: []Entry{{Row: 0, Value: 1}}},
			{Name: "x1", Cost: 2, Entries: []Entry{{Row: 0, Value: 1}}},
		},
	}
	res, err := NewSimplex(1e4).Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !near(res.Objective, 1) || !near(res.Primal[0], 1) || !near(res.Primal[1], 0) {
		t.Fatalf("unexpected primal %+v", res)
	}
	if got := res.Duals[0]; !near(got, 1) {
		t.Fatalf("dual: want 1, got %v", got)
	}
}

func TestSimplexLessEqualDualIsNonPositive(t *testing.T) {
	// min -x  s.t.  x <= 3
	p := Problem{
		Rows:    []Row{{Name: "cap", Sense: LessEqual, RHS: 3}},
		Columns: []Column{{Name: "x", Cost: -1, Entries: []Entry{{Row: 0, Value: 1}}}},
	}
	res, err := NewSimplex(1e4).Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !near(res.Primal[0], 3) || !near(res.Objective, -3) {
		t.Fatalf("unexpected primal %+v", res)
	}
	if !near(res.Duals[0], -1) {
		t.Fatalf("dual: want -1, got %v", res.Duals[0])
	}
}

func TestSimplexInfeasible(t *testing.T) {
	p := Problem{
		Rows: []Row{{Name: "a", Sense: Equal, RHS: 1}, {Name: "b", Sense: Equal, RHS: 2}},
		Columns: []Column{
			{Name: "x", Cost: 1, Entries: []Entry{{Row: 0, Value: 1}, {Row: 1, Value: 1}}},
		},
	}
	_, err := NewSimplex(1e4).Solve(context.Background(), p)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("want ErrInfeasible, got %v", err)
	}
}

func TestSimplexComplementarySlackness(t *testing.T) {
	// a small set-partitioning master: two elevators, one request.
	p := Problem{
		Rows: []Row{
			{Name: "elev/0", Sense: Equal, RHS: 1},
			{Name: "elev/1", Sense: Equal, RHS: 1},
			{Name: "req/0", Sense: Equal, RHS: 1},
		},
		Columns: []Column{
			{Name: "e0-empty", Cost: 0, Entries: []Entry{{Row: 0, Value: 1}}},
			{Name: "e1-empty", Cost: 0, Entries: []Entry{{Row: 1, Value: 1}}},
			{Name: "e0-r0", Cost: 5, Entries: []Entry{{Row: 0, Value: 1}, {Row: 2, Value: 1}}},
			{Name: "e1-r0", Cost: 8, Entries: []Entry{{Row: 1, Value: 1}, {Row: 2, Value: 1}}},
		},
	}
	res, err := NewSimplex(1e4).Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !near(res.Objective, 5) {
		t.Fatalf("objective: want 5, got %v", res.Objective)
	}
	var dualObj float64
	for i, r := range p.Rows {
		dualObj += r.RHS * res.Duals[i]
	}
	if !near(dualObj, res.Objective) {
		t.Fatalf("strong duality violated: primal %v dual %v", res.Objective, dualObj)
	}
	for j, c := range p.Columns {
		rc := c.Cost
		for _, e := range c.Entries {
			rc -= e.Value * res.Duals[e.Row]
		}
		if rc < -1e-6 {
			t.Fatalf("column %s has negative reduced cost %v at optimum", c.Name, rc)
		}
		if res.Primal[j] > 1e-6 && math.Abs(rc) > 1e-6 {
			t.Fatalf("basic column %s has reduced cost %v", c.Name, rc)
		}
	}
}

func TestSimplexUnknownRow(t *testing.T) {
	p := Problem{Columns: []Column{{Name: "x", Entries: []Entry{{Row: 2, Value: 1}}}}}
	if _, err := NewSimplex(0).Solve(context.Background(), p); err == nil {
		t.Fatal("expected validation error")
	}
}
