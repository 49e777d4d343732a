package model

import (
    "sort"
    "strings"

    "github.com/pkg/errors"

    "liftsched/internal/opt"
)

func parseDirection(s string) (opt.Direction, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "idle":
        return opt.Idle, nil
    case "up":
        return opt.Up, nil
    case "down":
        return opt.Down, nil
    }
    return opt.Idle, errors.Errorf("unknown direction %q", s)
}

func (c CallIn) call() opt.Call {
    return opt.Call{Release: c.Release, Start: c.Start, Dest: c.Dest, WaitCost: c.WaitCost, TravelCost: c.TravelCost}
}

// request expands the shorthand form. Shorthand calls cost 1 per unit of
// wait and travel unless overridden.
func (r RequestIn) request() opt.Request {
    out := opt.Request{ID: r.ID}
    if len(r.Calls) > 0 {
        for _, c := range r.Calls { out.Calls = append(out.Calls, c.call()) }
        return out
    }
    wc, tc := 1.0, 1.0
    if r.WaitCost != nil { wc = *r.WaitCost }
    if r.TravelCost != nil { tc = *r.TravelCost }
    n := r.Passengers
    if n <= 0 { n = 1 }
    for i := 0; i < n; i++ {
        out.Calls = append(out.Calls, opt.Call{Release: r.Release, Start: r.Start, Dest: r.Dest, WaitCost: wc, TravelCost: tc})
    }
    return out
}

// ToInstance projects the request onto a solver instance. Structural checks
// (floors in range, duplicate ids) are left to Instance.Validate.
func (d DispatchRequest) ToInstance() (*opt.Instance, error) {
    inst := opt.NewInstance(d.Floors, opt.Timing{
        StopTime:        d.Timing.StopTime,
        LoadTime:        d.Timing.LoadTime,
        DriveTime:       d.Timing.DriveTime,
        StartupTime:     d.Timing.StartupTime,
        CapacityPenalty: d.Timing.CapacityPenalty,
    })
    for _, e := range d.Elevators {
        dir, err := parseDirection(e.Direction)
        if err != nil { return nil, errors.Wrapf(err, "elevator %d", e.ID) }
        el := opt.Elevator{ID: e.ID, Capacity: e.Capacity, Floor: e.Floor, Direction: dir, Time: e.Time}
        for _, c := range e.Loaded { el.Loaded = append(el.Loaded, c.call()) }
        for _, r := range e.Assigned { el.Assigned = append(el.Assigned, r.request()) }
        for _, s := range e.Directions {
            dd, err := parseDirection(s)
            if err != nil || dd == opt.Idle { return nil, errors.Errorf("elevator %d: bad departure direction %q", e.ID, s) }
            el.Directions = append(el.Directions, dd)
        }
        inst.AddElevator(el)
    }
    for _, r := range d.Requests {
        inst.AddRequest(r.request())
    }
    return inst, nil
}

// FromResult renders a solver result for the wire, addressing elevators by
// their external ids.
func FromResult(runID string, inst *opt.Instance, res *opt.Result) DispatchResponse {
    out := DispatchResponse{
        RunID:       runID,
        Status:      string(res.Stats.Status),
        Assignments: []Assignment{},
        Elevators:   []ElevatorPlan{},
        Stats: RunStats{
            Nodes:           res.Stats.Nodes,
            LPSolves:        res.Stats.LPSolves,
            Columns:         res.Stats.Columns,
            PricingCalls:    res.Stats.PricingCalls,
            Iterations:      res.Stats.Iterations,
            RootBound:       res.Stats.RootBound,
            LagrangianBound: res.Stats.LagrangianBound,
            ElapsedMs:       res.Stats.Elapsed.Milliseconds(),
        },
    }
    if res.Solution == nil { return out }
    out.Objective = res.Solution.Objective
    for _, s := range res.Solution.SelectedSchedules() {
        eid := inst.Elevators[s.Elevator].ID
        plan := ElevatorPlan{ElevatorID: eid, Cost: s.Cost, Penalty: s.Penalty, Requests: s.Requests}
        for _, st := range s.Stops {
            plan.Stops = append(plan.Stops, StopOut{
                Floor:   st.Floor,
                Arrival: st.Arrival,
                Depart:  st.Depart.String(),
                Picked:  st.Picked,
                Dropped: len(st.Dropped),
            })
        }
        out.Elevators = append(out.Elevators, plan)
        for _, id := range s.Requests {
            out.Assignments = append(out.Assignments, Assignment{RequestID: id, ElevatorID: eid})
        }
    }
    sort.Slice(out.Elevators, func(i, j int) bool { return out.Elevators[i].ElevatorID < out.Elevators[j].ElevatorID })
    sort.Slice(out.Assignments, func(i, j int) bool { return out.Assignments[i].RequestID < out.Assignments[j].RequestID })
    return out
}
