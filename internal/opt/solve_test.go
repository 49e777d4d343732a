package opt

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func mustSolve(t *testing.T, inst *Instance, opts Options) *Result {
	t.Helper()
	res, err := Solve(context.Background(), inst, opts)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	return res
}

// checkPartition asserts the set-partition and convexity properties.
func checkPartition(t *testing.T, inst *Instance, sol *Solution) {
	t.Helper()
	if !sol.IsIntegral() {
		t.Fatalf("solution not integral: %v", sol.Values)
	}
	served := map[int]int{}
	perElevator := map[int]int{}
	for _, s := range sol.SelectedSchedules() {
		perElevator[s.Elevator]++
		for _, id := range s.Requests {
			served[id]++
		}
	}
	for _, r := range inst.Requests {
		if served[r.ID] != 1 {
			t.Fatalf("request %d served %d times", r.ID, served[r.ID])
		}
	}
	for e := range inst.Elevators {
		if perElevator[e] != 1 {
			t.Fatalf("elevator %d selects %d schedules", e, perElevator[e])
		}
	}
}

func TestSolveSingleRequest(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddRequest(req(1, 1, 5))

	res := mustSolve(t, inst, solveOpts())
	if !approx(res.Solution.Objective, 7) {
		t.Fatalf("objective: want 7, got %v", res.Solution.Objective)
	}
	checkPartition(t, inst, res.Solution)
	if res.Stats.Status != StatusOptimal {
		t.Fatalf("status: %s", res.Stats.Status)
	}
}

func TestSolveNoRequests(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddElevator(idle(2, 6, 4))

	res := mustSolve(t, inst, solveOpts())
	if !approx(res.Solution.Objective, 0) {
		t.Fatalf("objective: want 0, got %v", res.Solution.Objective)
	}
	checkPartition(t, inst, res.Solution)
	for _, s := range res.Solution.SelectedSchedules() {
		if len(s.Stops) != 1 || s.Stops[0].Floor != inst.Elevators[s.Elevator].Floor {
			t.Fatalf("want a current-floor-only schedule, got %s", s.String())
		}
	}
}

func TestSolveEquidistantElevators(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddElevator(idle(2, 9, 4))
	inst.AddRequest(req(1, 5, 8))

	res := mustSolve(t, inst, solveOpts())
	checkPartition(t, inst, res.Solution)
	// reach floor 5 at t=7 (wait 7), ride startup + 3 floors (5.5)
	if !approx(res.Solution.Objective, 12.5) {
		t.Fatalf("objective: want 12.5, got %v", res.Solution.Objective)
	}
	serving := 0
	for _, s := range res.Solution.SelectedSchedules() {
		if s.Serves(1) {
			serving++
		}
	}
	if serving != 1 {
		t.Fatalf("request served by %d elevators", serving)
	}
}

// randomInstance builds three cars and five requests in a ten-floor shaft.
func randomInstance(seed int64) *Instance {
	rng := rand.New(rand.NewSource(seed))
	inst := NewInstance(10, testTiming())
	for e := 1; e <= 3; e++ {
		inst.AddElevator(idle(e, rng.Intn(10), 1+rng.Intn(3)))
	}
	for i := 1; i <= 5; i++ {
		start := rng.Intn(10)
		dest := (start + 1 + rng.Intn(9)) % 10
		r := req(i, start, dest)
		r.Calls[0].Release = float64(rng.Intn(10))
		inst.AddRequest(r)
	}
	return inst
}

// branchingInstance returns the first random instance whose root LP is
// fractional, together with its optimal result and progress events.
func branchingInstance(t *testing.T) (int64, *Result, []Event) {
	t.Helper()
	for seed := int64(1); seed <= 400; seed++ {
		var events []Event
		opts := solveOpts()
		opts.Progress = func(ev Event) { events = append(events, ev) }
		res, err := Solve(context.Background(), randomInstance(seed), opts)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if res.Stats.Nodes > 1 && res.Stats.Status == StatusOptimal {
			return seed, res, events
		}
	}
	t.Fatal("no random instance needed branching")
	return 0, nil, nil
}

func TestSolveBranchesFractionalRoot(t *testing.T) {
	seed, res, events := branchingInstance(t)
	inst := randomInstance(seed)
	checkPartition(t, inst, res.Solution)
	if res.Solution.Objective < res.Stats.RootBound-1e-6 {
		t.Fatalf("seed %d: objective %v below root bound %v", seed, res.Solution.Objective, res.Stats.RootBound)
	}
	branched := false
	for _, ev := range events {
		switch ev.Kind {
		case EventBranch:
			branched = true
		case EventNodeSolved:
			if ev.Depth > 0 && ev.Bound < res.Stats.RootBound-1e-6 {
				t.Fatalf("seed %d: node %d bound %v below root bound %v", seed, ev.Node, ev.Bound, res.Stats.RootBound)
			}
		}
	}
	if !branched {
		t.Fatalf("seed %d: no branch event in %v", seed, events)
	}
}

func TestSolveNodeCapFallsBackToHeuristic(t *testing.T) {
	seed, best, _ := branchingInstance(t)
	inst := randomInstance(seed)
	opts := solveOpts()
	opts.Config.MaxBranchNodes = 1
	res := mustSolve(t, inst, opts)
	if res.Stats.Status != StatusHeuristic {
		t.Fatalf("seed %d: status %s", seed, res.Stats.Status)
	}
	checkPartition(t, inst, res.Solution)
	if res.Solution.Objective < best.Solution.Objective-1e-6 {
		t.Fatalf("seed %d: heuristic %v beats the optimum %v", seed, res.Solution.Objective, best.Solution.Objective)
	}
}

func TestSolveDeadlineFallsBackToHeuristic(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddElevator(idle(2, 9, 4))
	inst.AddRequest(req(1, 5, 8))
	opts := solveOpts()
	opts.Config.TimeLimit = time.Nanosecond
	var kinds []EventKind
	opts.Progress = func(ev Event) { kinds = append(kinds, ev.Kind) }

	res := mustSolve(t, inst, opts)
	if res.Stats.Status != StatusHeuristic {
		t.Fatalf("status: %s", res.Stats.Status)
	}
	checkPartition(t, inst, res.Solution)
	if len(kinds) == 0 || kinds[len(kinds)-1] != EventFallback {
		t.Fatalf("events: %v", kinds)
	}
}

func TestSolveCapacityPenaltyWithOneElevator(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 1))
	inst.AddRequest(req(1, 1, 5))
	inst.AddRequest(req(2, 1, 5))

	res := mustSolve(t, inst, solveOpts())
	checkPartition(t, inst, res.Solution)
	sel := res.Solution.SelectedSchedules()
	if len(sel) != 1 || len(sel[0].Requests) != 2 {
		t.Fatalf("one schedule must serve both requests: %v", sel)
	}
	if !approx(sel[0].Penalty, inst.Timing.CapacityPenalty) {
		t.Fatalf("penalty: want %v, got %v", inst.Timing.CapacityPenalty, sel[0].Penalty)
	}
	if !approx(res.Solution.Objective, 14+inst.Timing.CapacityPenalty) {
		t.Fatalf("objective: want 19, got %v", res.Solution.Objective)
	}
}

func TestSolveCapacitySplitsAcrossElevators(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 1))
	inst.AddElevator(idle(2, 1, 1))
	inst.AddRequest(req(1, 1, 5))
	inst.AddRequest(req(2, 1, 5))

	res := mustSolve(t, inst, solveOpts())
	checkPartition(t, inst, res.Solution)
	if !approx(res.Solution.Objective, 14) {
		t.Fatalf("objective: want 14, got %v", res.Solution.Objective)
	}
	for _, s := range res.Solution.SelectedSchedules() {
		if len(s.Requests) != 1 || s.Penalty != 0 {
			t.Fatalf("each elevator should carry one request: %s", s.String())
		}
	}
}

func TestSolveAssignedRequestsStayWithTheirElevator(t *testing.T) {
	inst := NewInstance(10, testTiming())
	e := idle(1, 0, 4)
	e.Assigned = []Request{req(100, 3, 7)}
	inst.AddElevator(e)
	inst.AddElevator(idle(2, 9, 4))
	inst.AddRequest(req(1, 8, 2))

	res := mustSolve(t, inst, solveOpts())
	checkPartition(t, inst, res.Solution)
	for _, s := range res.Solution.SelectedSchedules() {
		picked := map[int]bool{}
		for _, st := range s.Stops {
			for _, id := range st.Picked {
				picked[id] = true
			}
		}
		if s.Elevator == 0 && !picked[100] {
			t.Fatalf("assigned request dropped from its elevator: %s", s.String())
		}
		if s.Serves(100) {
			t.Fatal("assigned requests are not reported as served unassigned requests")
		}
	}
}

func TestSolveLargerInstanceIsPartition(t *testing.T) {
	inst := NewInstance(12, testTiming())
	inst.AddElevator(idle(1, 0, 4))
	inst.AddElevator(idle(2, 6, 4))
	inst.AddElevator(Elevator{ID: 3, Floor: 11, Capacity: 4, Direction: Down, Loaded: []Call{call(11, 4)}})
	for i, fl := range [][2]int{{1, 9}, {10, 2}, {5, 0}, {3, 7}, {8, 11}} {
		r := req(i+1, fl[0], fl[1])
		r.Calls[0].Release = float64(i)
		inst.AddRequest(r)
	}
	opts := solveOpts()
	opts.Config.Lagrangian.Enabled = true
	var events []Event
	opts.Progress = func(ev Event) { events = append(events, ev) }

	res := mustSolve(t, inst, opts)
	checkPartition(t, inst, res.Solution)
	if res.Stats.LagrangianBound > res.Stats.RootBound+1e-6 {
		t.Fatalf("lagrangian bound %v above root LP %v", res.Stats.LagrangianBound, res.Stats.RootBound)
	}
	if len(events) == 0 || events[0].Kind != EventRootSolved {
		t.Fatalf("progress events: %v", events)
	}
}

func TestSolveParallelPricing(t *testing.T) {
	build := func() *Instance {
		inst := NewInstance(10, testTiming())
		inst.AddElevator(idle(1, 0, 4))
		inst.AddElevator(idle(2, 9, 4))
		inst.AddRequest(req(1, 2, 6))
		inst.AddRequest(req(2, 7, 3))
		inst.AddRequest(req(3, 5, 8))
		return inst
	}
	serialInst := build()
	serial := mustSolve(t, serialInst, solveOpts())
	checkPartition(t, serialInst, serial.Solution)

	opts := solveOpts()
	opts.Config.ParallelPricing = true
	parallelInst := build()
	parallel := mustSolve(t, parallelInst, opts)
	checkPartition(t, parallelInst, parallel.Solution)
	if parallel.Stats.PricingCalls%len(parallelInst.Elevators) != 0 {
		t.Fatalf("parallel rounds price every elevator, got %d calls", parallel.Stats.PricingCalls)
	}
}

func TestSolveRejectsEmptyFleet(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddRequest(req(1, 1, 5))
	if _, err := Solve(context.Background(), inst, solveOpts()); !errors.Is(err, ErrNoElevators) {
		t.Fatalf("want ErrNoElevators, got %v", err)
	}
}

func TestSolveRejectsBadRequest(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddRequest(req(1, 4, 4))
	if _, err := Solve(context.Background(), inst, solveOpts()); !errors.Is(err, ErrInvalidInstance) {
		t.Fatalf("want ErrInvalidInstance, got %v", err)
	}
}

func TestSolveDoesNotMutateInput(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddRequest(req(1, 1, 5))
	mustSolve(t, inst, solveOpts())
	if len(inst.Requests) != 1 || inst.Elevators[0].Floor != 1 {
		t.Fatal("input instance changed")
	}
}
