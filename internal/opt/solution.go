package opt

import (
	"math"
)

// Solution is an immutable snapshot of one LP (or rounded) solve.
type Solution struct {
	Values    []float64  `json:"values"`
	Schedules []Schedule `json:"schedules"`
	Objective float64    `json:"objective"`
	Duals     *Duals     `json:"-"`
	Integral  bool       `json:"integral"`

	eps float64
}

func newSolution(inst *Instance, cols []Schedule, values []float64, obj float64, d *Duals, eps float64) *Solution {
	s := &Solution{Values: values, Schedules: cols, Objective: obj, Duals: d, eps: eps}
	s.Integral = s.checkIntegral()
	return s
}

func (s *Solution) checkIntegral() bool {
	for _, v := range s.Values {
		if math.Abs(v) > s.eps && math.Abs(v-1) > s.eps {
			return false
		}
	}
	return true
}

// IsIntegral reports whether every value is within Epsilon of 0 or 1.
func (s *Solution) IsIntegral() bool { return s.Integral }

// SelectedSchedules returns the schedules whose value is within Epsilon of 1.
func (s *Solution) SelectedSchedules() []Schedule {
	var out []Schedule
	for j, v := range s.Values {
		if v >= 1-s.eps {
			out = append(out, s.Schedules[j])
		}
	}
	return out
}

// RequestDuals returns the coverage duals, nil when the solution carries none.
func (s *Solution) RequestDuals() []float64 {
	if s.Duals == nil {
		return nil
	}
	return s.Duals.Request
}

// ElevatorDuals returns the convexity duals, nil when the solution carries
// none.
func (s *Solution) ElevatorDuals() []float64 {
	if s.Duals == nil {
		return nil
	}
	return s.Duals.Elevator
}

// flows returns, per request index, the LP flow into each elevator.
func (s *Solution) flows(inst *Instance) [][]float64 {
	out := make([][]float64, inst.NumRequests())
	for r := range out {
		out[r] = make([]float64, inst.NumElevators())
	}
	for j, v := range s.Values {
		if v <= s.eps {
			continue
		}
		sc := &s.Schedules[j]
		for _, id := range sc.Requests {
			r, _ := inst.RequestIndex(id)
			out[r][sc.Elevator] += v
		}
	}
	return out
}

// requestIntegral reports whether every request flows wholly into one
// elevator, even if the columns themselves are fractional.
func (s *Solution) requestIntegral(inst *Instance) bool {
	for _, f := range s.flows(inst) {
		for _, v := range f {
			if math.Abs(v) > s.eps && math.Abs(v-1) > s.eps {
				return false
			}
		}
	}
	return true
}

// round picks the cheapest positive column of every elevator. It is only
// meaningful for a request-integral solution.
func (s *Solution) round(inst *Instance) *Solution {
	pick := make([]int, len(inst.Elevators))
	for e := range pick {
		pick[e] = -1
	}
	for j, v := range s.Values {
		if v <= s.eps {
			continue
		}
		e := s.Schedules[j].Elevator
		if pick[e] < 0 || s.Schedules[j].Cost < s.Schedules[pick[e]].Cost {
			pick[e] = j
		}
	}
	values := make([]float64, len(s.Values))
	var obj float64
	for _, j := range pick {
		if j < 0 {
			return nil
		}
		values[j] = 1
		obj += s.Schedules[j].Cost
	}
	out := &Solution{Values: values, Schedules: s.Schedules, Objective: obj, Duals: s.Duals, eps: s.eps}
	out.Integral = true
	if !out.covers(inst) {
		return nil
	}
	return out
}

// covers checks the set-partition property of the selected schedules.
func (s *Solution) covers(inst *Instance) bool {
	count := make([]int, len(inst.Requests))
	perElevator := make([]int, len(inst.Elevators))
	for _, sc := range s.SelectedSchedules() {
		perElevator[sc.Elevator]++
		for _, id := range sc.Requests {
			r, _ := inst.RequestIndex(id)
			count[r]++
		}
	}
	for _, c := range count {
		if c != 1 {
			return false
		}
	}
	for _, c := range perElevator {
		if c != 1 {
			return false
		}
	}
	return true
}
