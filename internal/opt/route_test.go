package opt

import (
	"testing"
)

func TestBuildSingleRequestCost(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddRequest(req(7, 1, 5))

	s, ok := newBuilder(inst, 0, []int{0}, DefaultConfig()).greedy()
	if !ok {
		t.Fatal("builder found no route")
	}
	// pickup at t=0, dwell 2, startup 1 + 4 floors * 1.5 riding
	if !approx(s.Cost, 7) {
		t.Fatalf("cost: want 7, got %v (%s)", s.Cost, s.String())
	}
	if len(s.Stops) != 2 || s.Stops[0].Floor != 1 || s.Stops[1].Floor != 5 {
		t.Fatalf("unexpected stops %s", s.String())
	}
	if !approx(s.Stops[1].Arrival, 9) {
		t.Fatalf("arrival at 5: want 9, got %v", s.Stops[1].Arrival)
	}
	if s.Stops[0].Depart != Up || s.Stops[1].Depart != Idle {
		t.Fatalf("depart directions: %v %v", s.Stops[0].Depart, s.Stops[1].Depart)
	}
	if len(s.Requests) != 1 || s.Requests[0] != 7 {
		t.Fatalf("requests: %v", s.Requests)
	}
}

func TestBuildChargesWaitForReleasedCall(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 4))
	inst.AddRequest(req(1, 3, 6))

	s, ok := newBuilder(inst, 0, []int{0}, DefaultConfig()).greedy()
	if !ok {
		t.Fatal("builder found no route")
	}
	// arrive at 3 after startup + 2 floors = 4; ride startup + 3 floors = 5.5
	if !approx(s.Cost, 9.5) {
		t.Fatalf("cost: want 9.5, got %v (%s)", s.Cost, s.String())
	}
}

func TestBuildCapacityPenalty(t *testing.T) {
	inst := NewInstance(10, testTiming())
	inst.AddElevator(idle(1, 1, 1))
	inst.AddRequest(req(1, 1, 5))
	inst.AddRequest(req(2, 1, 5))

	s, ok := newBuilder(inst, 0, []int{0, 1}, DefaultConfig()).greedy()
	if !ok {
		t.Fatal("builder found no route")
	}
	if !approx(s.Penalty, inst.Timing.CapacityPenalty) {
		t.Fatalf("penalty: want one excess call, got %v", s.Penalty)
	}
	if !approx(s.Cost, 14+inst.Timing.CapacityPenalty) {
		t.Fatalf("cost: want 19, got %v", s.Cost)
	}
	if len(s.Stops[0].Picked) != 2 {
		t.Fatalf("both requests should board at the first stop: %s", s.String())
	}
}

func TestLoadedCallsAreDroppedFirst(t *testing.T) {
	inst := NewInstance(10, testTiming())
	e := Elevator{ID: 1, Floor: 2, Capacity: 4, Direction: Up, Loaded: []Call{call(0, 4)}}
	inst.AddElevator(e)

	s, ok := newBuilder(inst, 0, nil, DefaultConfig()).greedy()
	if !ok {
		t.Fatal("builder found no route")
	}
	if len(s.Stops) != 1 || s.Stops[0].Floor != 4 || len(s.Stops[0].Dropped) != 1 {
		t.Fatalf("unexpected stops %s", s.String())
	}
	// already moving: no startup, two floors riding
	if !approx(s.Cost, 3) {
		t.Fatalf("cost: want 3, got %v", s.Cost)
	}
	if len(s.Requests) != 0 {
		t.Fatalf("loaded calls are not unassigned requests: %v", s.Requests)
	}
}

func TestRouteCloneDoesNotAlias(t *testing.T) {
	tm := testTiming()
	e := idle(1, 1, 4)
	r := newRoute(&tm, &e)
	r.pickup(req(1, 1, 5))
	c := r.clone()
	c.pickup(req(2, 1, 3))
	if len(r.current().Picked) != 1 || len(c.current().Picked) != 2 {
		t.Fatalf("clone shares the open stop: %v vs %v", r.current().Picked, c.current().Picked)
	}
	if r.load() != 1 {
		t.Fatalf("parent load changed: %d", r.load())
	}
}
