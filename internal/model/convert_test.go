package model

import (
    "context"
    "testing"

    "liftsched/internal/opt"
)

func TestToInstanceExpandsShorthand(t *testing.T) {
    wc := 2.0
    req := DispatchRequest{
        Floors: 10,
        Timing: TimingIn{StopTime: 2, DriveTime: 1.5, StartupTime: 1},
        Elevators: []ElevatorIn{{ID: 7, Capacity: 4, Floor: 3, Direction: "up", Directions: []string{"up"}}},
        Requests: []RequestIn{
            {ID: 1, Start: 1, Dest: 5, Passengers: 3, WaitCost: &wc},
            {ID: 2, Calls: []CallIn{{Start: 6, Dest: 2, WaitCost: 1, TravelCost: 1}}},
        },
    }
    inst, err := req.ToInstance()
    if err != nil { t.Fatalf("ToInstance: %v", err) }
    if got := inst.Elevators[0]; got.Direction != opt.Up || len(got.Directions) != 1 || got.Directions[0] != opt.Up {
        t.Fatalf("elevator: %+v", got)
    }
    r := inst.Requests[0]
    if r.Size() != 3 || r.Calls[0].WaitCost != 2 || r.Calls[0].TravelCost != 1 {
        t.Fatalf("shorthand request: %+v", r)
    }
    if inst.Requests[1].Direction() != opt.Down {
        t.Fatalf("explicit calls: %+v", inst.Requests[1])
    }
}

func TestToInstanceRejectsDirections(t *testing.T) {
    cases := []ElevatorIn{
        {ID: 1, Capacity: 4, Direction: "sideways"},
        {ID: 1, Capacity: 4, Directions: []string{"idle"}},
    }
    for _, e := range cases {
        req := DispatchRequest{Floors: 5, Elevators: []ElevatorIn{e}}
        if _, err := req.ToInstance(); err == nil {
            t.Fatalf("want error for %+v", e)
        }
    }
}

func TestFromResultUsesExternalIDs(t *testing.T) {
    req := DispatchRequest{
        Floors:    10,
        Timing:    TimingIn{StopTime: 2, DriveTime: 1.5, StartupTime: 1, CapacityPenalty: 5},
        Elevators: []ElevatorIn{{ID: 42, Capacity: 4, Floor: 1}},
        Requests:  []RequestIn{{ID: 9, Start: 1, Dest: 5}},
    }
    inst, err := req.ToInstance()
    if err != nil { t.Fatal(err) }
    res, err := opt.Solve(context.Background(), inst, opt.Options{})
    if err != nil { t.Fatalf("solve: %v", err) }
    out := FromResult("run-1", inst, res)
    if out.RunID != "run-1" || out.Status != string(opt.StatusOptimal) {
        t.Fatalf("header: %+v", out)
    }
    if len(out.Assignments) != 1 || out.Assignments[0] != (Assignment{RequestID: 9, ElevatorID: 42}) {
        t.Fatalf("assignments: %+v", out.Assignments)
    }
    if len(out.Elevators) != 1 || out.Elevators[0].Stops[0].Floor != 1 || len(out.Elevators[0].Stops[0].Picked) != 1 {
        t.Fatalf("plan: %+v", out.Elevators)
    }
}
