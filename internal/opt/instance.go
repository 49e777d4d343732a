package opt

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Timing holds the building's time constants.
type Timing struct {
	StopTime        float64 `json:"stop_time"`        // door dwell per stop
	LoadTime        float64 `json:"load_time"`        // per call boarding or alighting
	DriveTime       float64 `json:"drive_time"`       // per floor
	StartupTime     float64 `json:"startup_time"`     // departing a stop or from rest
	CapacityPenalty float64 `json:"capacity_penalty"` // per call boarded above capacity
}

// Instance is the input of a solve. Populate it with AddElevator and
// AddRequest, then hand it to Solve, which works on a snapshot.
type Instance struct {
	Floors    int        `json:"floors"`
	Timing    Timing     `json:"timing"`
	Elevators []Elevator `json:"elevators"`
	Requests  []Request  `json:"requests"` // unassigned

	index map[int]int
}

// NewInstance returns an empty instance for a shaft of the given height.
func NewInstance(floors int, t Timing) *Instance {
	return &Instance{Floors: floors, Timing: t}
}

// AddElevator appends e and returns its index.
func (in *Instance) AddElevator(e Elevator) int {
	in.Elevators = append(in.Elevators, e)
	return len(in.Elevators) - 1
}

// AddRequest appends an unassigned request and returns its index.
func (in *Instance) AddRequest(r Request) int {
	in.Requests = append(in.Requests, r)
	in.index = nil
	return len(in.Requests) - 1
}

func (in *Instance) NumElevators() int { return len(in.Elevators) }
func (in *Instance) NumRequests() int  { return len(in.Requests) }

// RequestIndex maps an unassigned request id to its index.
func (in *Instance) RequestIndex(id int) (int, bool) {
	if in.index == nil {
		in.index = make(map[int]int, len(in.Requests))
		for i, r := range in.Requests {
			in.index[r.ID] = i
		}
	}
	i, ok := in.index[id]
	return i, ok
}

// Request returns the unassigned request at index i. An index out of range
// is a caller bug.
func (in *Instance) Request(i int) Request {
	if i < 0 || i >= len(in.Requests) {
		panic(fmt.Sprintf("opt: request index %d out of range [0,%d)", i, len(in.Requests)))
	}
	return in.Requests[i]
}

// Elevator returns the elevator at index e. An index out of range is a
// caller bug.
func (in *Instance) Elevator(e int) *Elevator {
	if e < 0 || e >= len(in.Elevators) {
		panic(fmt.Sprintf("opt: elevator index %d out of range [0,%d)", e, len(in.Elevators)))
	}
	return &in.Elevators[e]
}

// Snapshot returns an independent deep copy.
func (in *Instance) Snapshot() (*Instance, error) {
	out := &Instance{}
	if err := deepcopy.Copy(out, in); err != nil {
		return nil, errors.Wrap(err, "opt: snapshot instance")
	}
	out.index = nil
	return out, nil
}

// Validate checks the instance before a solve.
func (in *Instance) Validate() error {
	if len(in.Elevators) == 0 {
		return ErrNoElevators
	}
	if in.Floors < 2 {
		return errors.Wrapf(ErrInvalidInstance, "need at least 2 floors, got %d", in.Floors)
	}
	t := in.Timing
	if t.StopTime < 0 || t.LoadTime < 0 || t.DriveTime < 0 || t.StartupTime < 0 || t.CapacityPenalty < 0 {
		return errors.Wrap(ErrInvalidInstance, "timing constants must not be negative")
	}
	seen := map[int]string{}
	checkRequest := func(r Request, owner string) error {
		if prev, dup := seen[r.ID]; dup {
			return errors.Wrapf(ErrInvalidInstance, "request id %d used by %s and %s", r.ID, prev, owner)
		}
		seen[r.ID] = owner
		if len(r.Calls) == 0 {
			return errors.Wrapf(ErrInvalidInstance, "request %d has no calls", r.ID)
		}
		for _, c := range r.Calls {
			if c.Start != r.Start() || c.Dest != r.Dest() {
				return errors.Wrapf(ErrInvalidInstance, "request %d mixes floors across calls", r.ID)
			}
			if err := in.checkCall(c); err != nil {
				return errors.Wrapf(err, "request %d", r.ID)
			}
		}
		return nil
	}
	for i, e := range in.Elevators {
		if e.Capacity <= 0 {
			return errors.Wrapf(ErrInvalidInstance, "elevator %d has capacity %d", e.ID, e.Capacity)
		}
		if e.Floor < 0 || e.Floor >= in.Floors {
			return errors.Wrapf(ErrInvalidInstance, "elevator %d at floor %d outside [0,%d)", e.ID, e.Floor, in.Floors)
		}
		for _, c := range e.Loaded {
			if c.Dest < 0 || c.Dest >= in.Floors {
				return errors.Wrapf(ErrInvalidInstance, "elevator %d carries a call to floor %d", e.ID, c.Dest)
			}
			if e.Direction != Idle && directionOf(e.Floor, c.Dest) == -e.Direction {
				return errors.Wrapf(ErrInvalidInstance, "elevator %d heads %s but carries a call to floor %d", e.ID, e.Direction, c.Dest)
			}
		}
		for _, r := range e.Assigned {
			if err := checkRequest(r, fmt.Sprintf("elevator %d", i)); err != nil {
				return err
			}
		}
	}
	for _, r := range in.Requests {
		if err := checkRequest(r, "the unassigned list"); err != nil {
			return err
		}
	}
	return nil
}

func (in *Instance) checkCall(c Call) error {
	switch {
	case c.Start < 0 || c.Start >= in.Floors || c.Dest < 0 || c.Dest >= in.Floors:
		return errors.Wrapf(ErrInvalidInstance, "call %d->%d outside [0,%d)", c.Start, c.Dest, in.Floors)
	case c.Start == c.Dest:
		return errors.Wrapf(ErrInvalidInstance, "call starts and ends at floor %d", c.Start)
	case c.WaitCost < 0 || c.TravelCost < 0 || c.Release < 0:
		return errors.Wrap(ErrInvalidInstance, "call costs and release must not be negative")
	}
	return nil
}
