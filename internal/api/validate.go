package api

import (
    "github.com/pkg/errors"

    "liftsched/internal/model"
)

const (
    maxElevators = 64
    maxRequests  = 2000
    // maxPassengers bounds the calls of one request and the calls already
    // on board one car; shorthand requests expand to one call per passenger.
    maxPassengers = 64
)

// validateDispatchRequest rejects requests the solver would refuse or that
// are too large to serve inline. Shaft bounds are left to Instance.Validate.
func validateDispatchRequest(req *model.DispatchRequest) error {
    if req.Floors < 2 {
        return errors.Errorf("floors must be >= 2, got %d", req.Floors)
    }
    if len(req.Elevators) == 0 {
        return errors.New("at least one elevator is required")
    }
    if len(req.Elevators) > maxElevators {
        return errors.Errorf("at most %d elevators per dispatch", maxElevators)
    }
    if len(req.Requests) > maxRequests {
        return errors.Errorf("at most %d requests per dispatch", maxRequests)
    }
    t := req.Timing
    if t.StopTime < 0 || t.LoadTime < 0 || t.DriveTime < 0 || t.StartupTime < 0 || t.CapacityPenalty < 0 {
        return errors.New("timing values must be >= 0")
    }
    elevators := map[int]struct{}{}
    for _, e := range req.Elevators {
        if _, dup := elevators[e.ID]; dup {
            return errors.Errorf("duplicate elevator id %d", e.ID)
        }
        elevators[e.ID] = struct{}{}
        if e.Capacity <= 0 {
            return errors.Errorf("elevator %d: capacity must be > 0", e.ID)
        }
        if len(e.Loaded) > maxPassengers {
            return errors.Errorf("elevator %d: at most %d loaded calls", e.ID, maxPassengers)
        }
        if len(e.Assigned) > maxRequests {
            return errors.Errorf("elevator %d: at most %d assigned requests", e.ID, maxRequests)
        }
        for _, r := range e.Assigned {
            if err := validateRequest(r); err != nil {
                return errors.Wrapf(err, "elevator %d", e.ID)
            }
        }
    }
    for _, r := range req.Requests {
        if err := validateRequest(r); err != nil {
            return err
        }
    }
    return nil
}

func validateRequest(r model.RequestIn) error {
    if r.Passengers < 0 || r.Passengers > maxPassengers {
        return errors.Errorf("request %d: passengers must be between 0 and %d", r.ID, maxPassengers)
    }
    if len(r.Calls) > maxPassengers {
        return errors.Errorf("request %d: at most %d calls", r.ID, maxPassengers)
    }
    if len(r.Calls) == 0 && r.Start == r.Dest {
        return errors.Errorf("request %d: start and dest must differ", r.ID)
    }
    if (r.WaitCost != nil && *r.WaitCost < 0) || (r.TravelCost != nil && *r.TravelCost < 0) {
        return errors.Errorf("request %d: costs must be >= 0", r.ID)
    }
    return nil
}
