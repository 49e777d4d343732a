package opt

import (
	"math"
	"slices"
	"sort"
)

// candidate is an unassigned request offered to one elevator's pricing.
type candidate struct {
	index int // into Instance.Requests
	req   Request
	dual  float64 // effective dual for this elevator
}

// pricingNode is one partial route in the pricing search tree. Each node owns
// its own copies of everything it mutates.
type pricingNode struct {
	route
	pending []int  // mandatory requests not yet picked up
	closed  []bool // per candidate: served or declined
	served  int
	dualSum float64
	gaveUp  bool
	ended   bool
	bound   float64
	seq     int
}

func (n *pricingNode) clone() *pricingNode {
	return &pricingNode{
		route:   n.route.clone(),
		pending: slices.Clone(n.pending),
		closed:  slices.Clone(n.closed),
		served:  n.served,
		dualSum: n.dualSum,
		gaveUp:  n.gaveUp,
	}
}

func (p *Pricing) optionalOpen(n *pricingNode) bool {
	return !n.gaveUp && n.served < p.cfg.OptionalCap && len(p.candidates) > 0
}

func (p *Pricing) anyOpen(n *pricingNode) bool {
	return slices.Contains(n.closed, false)
}

func (p *Pricing) fits(n *pricingNode, r Request) bool {
	return n.load()+r.Size() <= n.capacity
}

func compatible(dir Direction, r Request) bool {
	return dir == Idle || dir == r.Direction()
}

// canEnd reports whether the car could stop working here.
func (p *Pricing) canEnd(n *pricingNode) bool {
	return len(n.pending) == 0 && n.load() == 0
}

// isLast is the terminal test of the search.
func (p *Pricing) isLast(n *pricingNode) bool {
	if n.ended {
		return true
	}
	if !p.canEnd(n) {
		return false
	}
	return !p.optionalOpen(n) || n.served > 0 || !p.anyOpen(n)
}

// workAhead reports whether anything lies strictly beyond the current floor
// in direction d.
func (p *Pricing) workAhead(n *pricingNode, d Direction) bool {
	for _, x := range n.riders {
		if directionOf(n.floor, x.call.Dest) == d {
			return true
		}
	}
	for _, i := range n.pending {
		if directionOf(n.floor, p.mandatory[i].Start()) == d {
			return true
		}
	}
	if p.optionalOpen(n) {
		for ci, c := range p.candidates {
			if !n.closed[ci] && directionOf(n.floor, c.req.Start()) == d {
				return true
			}
		}
	}
	return false
}

// workHere reports whether a pickup heading in d waits at the current floor.
func (p *Pricing) workHere(n *pricingNode, d Direction) bool {
	for _, i := range n.pending {
		r := p.mandatory[i]
		if r.Start() == n.floor && r.Direction() == d {
			return true
		}
	}
	if p.optionalOpen(n) {
		for ci, c := range p.candidates {
			if !n.closed[ci] && c.req.Start() == n.floor && c.req.Direction() == d && p.fits(n, c.req) {
				return true
			}
		}
	}
	return false
}

func (p *Pricing) inShaft(f int) bool { return f >= 0 && f < p.inst.Floors }

// expand produces the children of a non-terminal node, in rule order.
func (p *Pricing) expand(n *pricingNode) []*pricingNode {
	// 1. drops are never skipped
	if n.hasDropHere() {
		c := n.clone()
		c.drop()
		return []*pricingNode{c}
	}

	// 2. mandatory pickups are never skipped; boarding order at one stop
	// does not change the cost, so the lowest index goes first
	for k, i := range n.pending {
		r := p.mandatory[i]
		if r.Start() == n.floor && compatible(n.dir, r) {
			c := n.clone()
			c.pickup(r)
			c.pending = slices.Delete(c.pending, k, k+1)
			return []*pricingNode{c}
		}
	}

	var kids []*pricingNode
	if p.optionalOpen(n) {
		// 3. optional pickups here, plus one child declining all of them
		here := p.pickableHere(n)
		if len(here) > 0 {
			for _, ci := range p.bestByPotential(n, here) {
				c := n.clone()
				c.pickup(p.candidates[ci].req)
				c.closed[ci] = true
				c.served++
				c.dualSum += p.candidates[ci].dual
				for _, cj := range here {
					if cj < ci {
						c.closed[cj] = true
					}
				}
				kids = append(kids, c)
			}
			skip := n.clone()
			for _, ci := range here {
				skip.closed[ci] = true
			}
			return append(kids, skip)
		}
		// 4. full car
		if n.load() > 0 && p.anyOpen(n) && !p.anyFits(n) {
			c := n.clone()
			c.gaveUp = true
			kids = append(kids, c)
		}
	}

	// 5. moves
	kids = append(kids, p.moves(n)...)

	// 6. end
	if len(kids) == 0 && p.canEnd(n) {
		c := n.clone()
		c.ended = true
		kids = append(kids, c)
	}
	return kids
}

func (p *Pricing) pickableHere(n *pricingNode) []int {
	var out []int
	for ci, c := range p.candidates {
		if n.closed[ci] || c.req.Start() != n.floor {
			continue
		}
		if compatible(n.dir, c.req) && p.fits(n, c.req) {
			out = append(out, ci)
		}
	}
	return out
}

func (p *Pricing) anyFits(n *pricingNode) bool {
	for ci, c := range p.candidates {
		if !n.closed[ci] && p.fits(n, c.req) {
			return true
		}
	}
	return false
}

// bestByPotential caps the optional fan-out at the most promising requests.
func (p *Pricing) bestByPotential(n *pricingNode, here []int) []int {
	if len(here) <= p.cfg.OptionalFanout {
		return here
	}
	gain := func(ci int) float64 {
		c := p.candidates[ci]
		return c.dual - p.minCost(&n.route, c.req)
	}
	sorted := slices.Clone(here)
	sort.SliceStable(sorted, func(a, b int) bool { return gain(sorted[a]) > gain(sorted[b]) })
	sorted = sorted[:p.cfg.OptionalFanout]
	slices.Sort(sorted)
	return sorted
}

func (p *Pricing) moves(n *pricingNode) []*pricingNode {
	if n.dir == Idle {
		var kids []*pricingNode
		for _, d := range []Direction{Up, Down} {
			if p.start.mayDepart(d) && p.inShaft(n.floor+int(d)) && p.workAhead(n, d) {
				c := n.clone()
				c.move(d)
				kids = append(kids, c)
			}
		}
		return kids
	}
	if p.inShaft(n.floor+int(n.dir)) && p.workAhead(n, n.dir) {
		c := n.clone()
		c.move(n.dir)
		return []*pricingNode{c}
	}
	if back := -n.dir; p.workAhead(n, back) || p.workHere(n, back) {
		c := n.clone()
		c.dir = back
		return []*pricingNode{c}
	}
	return nil
}

// minCost is a lower bound on what serving r adds to any extension of the
// cursor: the wait at the earliest possible arrival and the direct ride.
func (p *Pricing) minCost(n *route, r Request) float64 {
	t := &p.inst.Timing
	at := n.arrival()
	if n.floor != r.Start() {
		at = n.time + t.DriveTime*math.Abs(float64(r.Start()-n.floor))
		if n.atStop || n.resting {
			at += t.StartupTime
		}
	}
	ride := t.StartupTime + t.DriveTime*math.Abs(float64(r.Dest()-r.Start()))
	var cost float64
	for _, c := range r.Calls {
		cost += c.WaitCost*math.Max(0, at-c.Release) + c.TravelCost*ride
	}
	return cost
}

func (p *Pricing) reducedCost(n *pricingNode) float64 {
	return n.cost - n.dualSum - p.elevDual
}

// lowerBound never exceeds the reduced cost of any terminal descendant of n.
// Only the largest gains that still fit under OptionalCap are subtracted.
func (p *Pricing) lowerBound(n *pricingNode) float64 {
	rc := p.reducedCost(n)
	if p.isLast(n) || !p.optionalOpen(n) {
		return rc
	}
	var gains []float64
	for ci, c := range p.candidates {
		if n.closed[ci] {
			continue
		}
		if g := c.dual - p.minCost(&n.route, c.req); g > 0 {
			gains = append(gains, g)
		}
	}
	left := p.cfg.OptionalCap - n.served
	if len(gains) > left {
		sort.Sort(sort.Reverse(sort.Float64Slice(gains)))
		gains = gains[:left]
	}
	for _, g := range gains {
		rc -= g
	}
	return rc
}
