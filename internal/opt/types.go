package opt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tiendc/go-deepcopy"
)

// Direction is the travel direction of an elevator or a request.
type Direction int

const (
	Down Direction = -1
	Idle Direction = 0
	Up   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "idle"
}

func directionOf(from, to int) Direction {
	switch {
	case to > from:
		return Up
	case to < from:
		return Down
	}
	return Idle
}

// Call is one passenger unit of a request.
type Call struct {
	Release    float64 `json:"release"`
	Start      int     `json:"start"`
	Dest       int     `json:"dest"`
	WaitCost   float64 `json:"wait_cost"`
	TravelCost float64 `json:"travel_cost"`
}

// Direction returns the direction the call travels in.
func (c Call) Direction() Direction { return directionOf(c.Start, c.Dest) }

// Request is a pickup-to-drop trip of one or more calls sharing start and
// destination. The first call defines both floors.
type Request struct {
	ID    int    `json:"id"`
	Calls []Call `json:"calls"`
}

func (r Request) Start() int { return r.Calls[0].Start }
func (r Request) Dest() int  { return r.Calls[0].Dest }

func (r Request) Direction() Direction { return r.Calls[0].Direction() }

// Size is the number of capacity units the request occupies.
func (r Request) Size() int { return len(r.Calls) }

// Release is the earliest release time among the calls.
func (r Request) Release() float64 {
	t := r.Calls[0].Release
	for _, c := range r.Calls[1:] {
		if c.Release < t {
			t = c.Release
		}
	}
	return t
}

// Elevator is the current state of one car.
type Elevator struct {
	ID        int       `json:"id"`
	Capacity  int       `json:"capacity"`
	Floor     int       `json:"floor"`
	Direction Direction `json:"direction"`
	Time      float64   `json:"time"`
	// Loaded calls are on board and must be dropped.
	Loaded []Call `json:"loaded,omitempty"`
	// Assigned requests are promised to this car and not yet picked up.
	Assigned []Request `json:"assigned,omitempty"`
	// Directions restricts the directions an idle car may depart in.
	// Empty means both.
	Directions []Direction `json:"directions,omitempty"`
}

func (e Elevator) mayDepart(d Direction) bool {
	if len(e.Directions) == 0 {
		return true
	}
	for _, x := range e.Directions {
		if x == d {
			return true
		}
	}
	return false
}

// Stop is one visited floor of a schedule.
type Stop struct {
	Floor   int       `json:"floor"`
	Arrival float64   `json:"arrival"`
	Depart  Direction `json:"depart"`
	Picked  []int     `json:"picked,omitempty"`  // request ids boarded here
	Dropped []Call    `json:"dropped,omitempty"` // calls alighting here
	Pending []int     `json:"pending,omitempty"` // floors still owed a drop when leaving
}

// Schedule is the route of one elevator. Schedules are never mutated once
// they have been handed to a master or a solution.
type Schedule struct {
	Elevator int     `json:"elevator"` // index into Instance.Elevators
	Stops    []Stop  `json:"stops"`
	Cost     float64 `json:"cost"`
	Penalty  float64 `json:"penalty"`
	// Requests are the ids of the unassigned requests served, ascending.
	Requests []int `json:"requests,omitempty"`
}

// Serves reports whether the schedule picks up the unassigned request id.
func (s *Schedule) Serves(id int) bool {
	for _, r := range s.Requests {
		if r == id {
			return true
		}
	}
	return false
}

// Key identifies a schedule by its elevator and timed stop sequence.
func (s *Schedule) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Elevator))
	for _, st := range s.Stops {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(st.Floor))
		b.WriteByte('@')
		b.WriteString(strconv.FormatFloat(st.Arrival, 'f', 4, 64))
		for _, id := range st.Picked {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(id))
		}
	}
	return b.String()
}

// Clone returns a deep copy.
func (s *Schedule) Clone() Schedule {
	var out Schedule
	if err := deepcopy.Copy(&out, s); err != nil {
		panic(fmt.Sprintf("opt: clone schedule: %v", err))
	}
	return out
}

func (s *Schedule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "elevator %d cost %.3f:", s.Elevator, s.Cost)
	for _, st := range s.Stops {
		fmt.Fprintf(&b, " %d@%.2f", st.Floor, st.Arrival)
		if len(st.Picked) > 0 {
			fmt.Fprintf(&b, "+%v", st.Picked)
		}
		if len(st.Dropped) > 0 {
			fmt.Fprintf(&b, "-%d", len(st.Dropped))
		}
	}
	return b.String()
}

// Column is a priced candidate schedule proposed to the master.
type Column struct {
	Schedule    Schedule
	Elevator    int
	Cost        float64
	ReducedCost float64
}
