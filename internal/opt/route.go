package opt

import (
	"math"
	"slices"
)

// rider is a call on board.
type rider struct {
	call    Call
	request int  // request id, -1 for calls loaded before the solve
	riding  bool // false until the car first moves after boarding
}

// route is the incremental cost cursor of one car. Cost is charged as time
// passes, so the cost of any prefix never exceeds the cost of an extension:
//
//   - moving charges every rider,
//   - dwelling at a stop charges only riders that boarded at an earlier stop,
//   - boarding charges the calls' wait and any capacity excess.
type route struct {
	timing   *Timing
	capacity int
	floor    int
	time     float64
	dir      Direction
	atStop   bool // doors opened at this floor and the car has not left
	resting  bool // has not moved since the solve started
	cost     float64
	penalty  float64
	riders   []rider
	stops    []Stop
}

func newRoute(t *Timing, e *Elevator) route {
	r := route{
		timing:   t,
		capacity: e.Capacity,
		floor:    e.Floor,
		time:     e.Time,
		dir:      e.Direction,
		resting:  e.Direction == Idle,
	}
	for _, c := range e.Loaded {
		r.riders = append(r.riders, rider{call: c, request: -1, riding: true})
	}
	return r
}

// clone copies the cursor. Earlier stops are shared since they are never
// written again; the open stop is copied.
func (r *route) clone() route {
	c := *r
	c.riders = slices.Clone(r.riders)
	c.stops = slices.Clone(r.stops)
	if r.atStop && len(c.stops) > 0 {
		last := &c.stops[len(c.stops)-1]
		last.Picked = slices.Clone(last.Picked)
		last.Dropped = slices.Clone(last.Dropped)
		last.Pending = slices.Clone(last.Pending)
	}
	return c
}

func (r *route) load() int { return len(r.riders) }

func (r *route) advance(dt float64) {
	if dt <= 0 {
		return
	}
	var rate float64
	for _, x := range r.riders {
		if x.riding {
			rate += x.call.TravelCost
		}
	}
	r.cost += dt * rate
	r.time += dt
}

// open makes sure a stop exists at the current floor. The dwell is charged by
// the caller once the stop's riders are settled.
func (r *route) open() bool {
	if r.atStop {
		return false
	}
	r.stops = append(r.stops, Stop{Floor: r.floor, Arrival: r.time})
	r.atStop = true
	return true
}

func (r *route) current() *Stop { return &r.stops[len(r.stops)-1] }

// arrival is the time the doors open at the current floor, either now or
// when the current stop was opened.
func (r *route) arrival() float64 {
	if r.atStop {
		return r.current().Arrival
	}
	return r.time
}

func (r *route) hasDropHere() bool {
	for _, x := range r.riders {
		if x.call.Dest == r.floor {
			return true
		}
	}
	return false
}

// drop lets every call destined for the current floor alight.
func (r *route) drop() int {
	opened := r.open()
	kept := r.riders[:0:0]
	var gone []Call
	for _, x := range r.riders {
		if x.call.Dest == r.floor {
			gone = append(gone, x.call)
			continue
		}
		kept = append(kept, x)
	}
	r.riders = kept
	if opened {
		r.advance(r.timing.StopTime)
	}
	r.advance(r.timing.LoadTime * float64(len(gone)))
	st := r.current()
	st.Dropped = append(st.Dropped, gone...)
	r.markPending()
	return len(gone)
}

// pickup boards every call of req. Capacity is not enforced here; boarding
// above it is charged CapacityPenalty per excess call.
func (r *route) pickup(req Request) {
	opened := r.open()
	if opened {
		r.advance(r.timing.StopTime)
	}
	at := r.current().Arrival
	for _, c := range req.Calls {
		r.cost += c.WaitCost * math.Max(0, at-c.Release)
	}
	before := r.load()
	for _, c := range req.Calls {
		r.riders = append(r.riders, rider{call: c, request: req.ID})
	}
	over := excess(r.load(), r.capacity) - excess(before, r.capacity)
	if over > 0 {
		p := r.timing.CapacityPenalty * float64(over)
		r.penalty += p
		r.cost += p
	}
	r.advance(r.timing.LoadTime * float64(req.Size()))
	if r.dir == Idle {
		r.dir = req.Direction()
	}
	st := r.current()
	st.Picked = append(st.Picked, req.ID)
	r.markPending()
}

func excess(load, capacity int) int {
	if load > capacity {
		return load - capacity
	}
	return 0
}

// move drives one floor in direction d.
func (r *route) move(d Direction) {
	if r.atStop {
		r.current().Depart = d
	}
	for i := range r.riders {
		r.riders[i].riding = true
	}
	dt := r.timing.DriveTime
	if r.atStop || r.resting {
		dt += r.timing.StartupTime
	}
	r.advance(dt)
	r.floor += int(d)
	r.dir = d
	r.atStop = false
	r.resting = false
}

func (r *route) markPending() {
	st := r.current()
	st.Pending = st.Pending[:0]
	for _, x := range r.riders {
		if !slices.Contains(st.Pending, x.call.Dest) {
			st.Pending = append(st.Pending, x.call.Dest)
		}
	}
	slices.Sort(st.Pending)
}

// schedule freezes the cursor into a Schedule for elevator e. Only request
// ids found in isUnassigned are reported as served.
func (r *route) schedule(e int, start *Elevator, isUnassigned func(id int) bool) Schedule {
	s := Schedule{Elevator: e, Cost: r.cost, Penalty: r.penalty}
	if len(r.stops) == 0 {
		s.Stops = []Stop{{Floor: start.Floor, Arrival: start.Time}}
		return s
	}
	s.Stops = make([]Stop, len(r.stops))
	for i, st := range r.stops {
		st.Picked = slices.Clone(st.Picked)
		st.Dropped = slices.Clone(st.Dropped)
		st.Pending = slices.Clone(st.Pending)
		s.Stops[i] = st
		for _, id := range st.Picked {
			if isUnassigned(id) {
				s.Requests = append(s.Requests, id)
			}
		}
	}
	s.Stops[len(s.Stops)-1].Depart = Idle
	slices.Sort(s.Requests)
	return s
}
