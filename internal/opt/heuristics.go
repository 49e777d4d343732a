package opt

import (
	"math"
	"slices"
	"sort"
)

// relocatePasses bounds the local search that polishes the partition.
const relocatePasses = 2

// searchContext holds the heuristic state of one branch-and-bound node. It
// is created per node and never shared, so siblings cannot see each other's
// partitions.
type searchContext struct {
	inst    *Instance
	cfg     Config
	allowed func(e, r int) bool

	built     bool
	feasible  bool
	partition [][]int // per elevator, request indices
}

func newSearchContext(inst *Instance, cfg Config, m *Master) *searchContext {
	return &searchContext{inst: inst, cfg: cfg, allowed: m.Allowed}
}

// newBuilder returns a pricing problem without optional requests in which
// reqs are treated as mandatory for elevator e.
func newBuilder(inst *Instance, e int, reqs []int, cfg Config) *Pricing {
	p := NewPricing(inst, e, cfg)
	p.mandatory = slices.Clone(p.start.Assigned)
	for _, r := range reqs {
		p.mandatory = append(p.mandatory, inst.Request(r))
	}
	return p
}

// build sweeps elevator e through its mandatory work plus reqs.
func (sc *searchContext) build(e int, reqs []int) (Schedule, bool) {
	return newBuilder(sc.inst, e, reqs, sc.cfg).greedy()
}

func (sc *searchContext) cost(e int, reqs []int) float64 {
	s, ok := sc.build(e, reqs)
	if !ok {
		return math.Inf(1)
	}
	return s.Cost
}

// Partition assigns every request to the nearest elevator allowed to serve
// it, then relocates requests while that lowers the summed cost. It returns
// false when some request has no allowed elevator. The result is computed
// once per context.
func (sc *searchContext) Partition() ([][]int, bool) {
	if sc.built {
		return sc.partition, sc.feasible
	}
	sc.built = true
	part := make([][]int, len(sc.inst.Elevators))
	t := &sc.inst.Timing
	for r, req := range sc.inst.Requests {
		best, bestScore := -1, math.Inf(1)
		for e := range sc.inst.Elevators {
			if !sc.allowed(e, r) {
				continue
			}
			el := &sc.inst.Elevators[e]
			score := t.DriveTime*float64(abs(el.Floor-req.Start())) +
				t.StopTime*float64(len(part[e])+len(el.Assigned))
			if score < bestScore {
				best, bestScore = e, score
			}
		}
		if best < 0 {
			return nil, false
		}
		part[best] = append(part[best], r)
	}
	sc.relocate(part)
	sc.partition, sc.feasible = part, true
	return part, true
}

// relocate moves single requests between elevators while the total cost of
// the partition schedules improves.
func (sc *searchContext) relocate(part [][]int) {
	costs := make([]float64, len(part))
	for e := range part {
		costs[e] = sc.cost(e, part[e])
	}
	for pass := 0; pass < relocatePasses; pass++ {
		improved := false
		for from := range part {
			for k := 0; k < len(part[from]); k++ {
				r := part[from][k]
				rest := slices.Delete(slices.Clone(part[from]), k, k+1)
				restCost := sc.cost(from, rest)
				for to := range part {
					if to == from || !sc.allowed(to, r) {
						continue
					}
					grown := append(slices.Clone(part[to]), r)
					grownCost := sc.cost(to, grown)
					if restCost+grownCost+sc.cfg.Epsilon < costs[from]+costs[to] {
						part[from], part[to] = rest, grown
						costs[from], costs[to] = restCost, grownCost
						improved = true
						k--
						break
					}
				}
			}
		}
		if !improved {
			break
		}
	}
}

// greedySchedule is the fallback column of elevator e: its mandatory work
// plus the nearest request of its partition share.
func (sc *searchContext) greedySchedule(e int) (Schedule, bool) {
	part, ok := sc.Partition()
	if !ok || len(part[e]) == 0 {
		return sc.build(e, nil)
	}
	el := &sc.inst.Elevators[e]
	near := part[e][0]
	for _, r := range part[e][1:] {
		if abs(sc.inst.Requests[r].Start()-el.Floor) < abs(sc.inst.Requests[near].Start()-el.Floor) {
			near = r
		}
	}
	return sc.build(e, []int{near})
}

// seedColumns returns, per elevator, the empty route, single and pair
// request routes and the partition route. The empty routes are left out
// when withEmpty is false.
func (sc *searchContext) seedColumns(withEmpty bool) []Schedule {
	var out []Schedule
	add := func(s Schedule, ok bool) {
		if ok {
			out = append(out, s)
		}
	}
	part, partOK := sc.Partition()
	for e := range sc.inst.Elevators {
		if withEmpty {
			add(sc.build(e, nil))
		}
		var mine []int
		for r := range sc.inst.Requests {
			if sc.allowed(e, r) {
				mine = append(mine, r)
				add(sc.build(e, []int{r}))
			}
		}
		for _, pair := range sc.closestPairs(mine) {
			add(sc.build(e, pair[:]))
		}
		if partOK && len(part[e]) > 1 {
			add(sc.build(e, part[e]))
		}
	}
	return out
}

// closestPairs returns at most MaxPairColumns pairs, nearest first.
func (sc *searchContext) closestPairs(reqs []int) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(reqs); i++ {
		for j := i + 1; j < len(reqs); j++ {
			pairs = append(pairs, [2]int{reqs[i], reqs[j]})
		}
	}
	gap := func(p [2]int) int {
		a, b := sc.inst.Requests[p[0]], sc.inst.Requests[p[1]]
		return abs(a.Start()-b.Start()) + abs(a.Dest()-b.Dest())
	}
	sort.SliceStable(pairs, func(i, j int) bool { return gap(pairs[i]) < gap(pairs[j]) })
	if len(pairs) > sc.cfg.MaxPairColumns {
		pairs = pairs[:sc.cfg.MaxPairColumns]
	}
	return pairs
}
