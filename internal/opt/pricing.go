package opt

import (
	"container/heap"
	"context"
	"slices"
)

// Pricing searches one elevator's routes for columns of negative reduced
// cost by best-first branch-and-bound over pricingNodes.
type Pricing struct {
	inst     *Instance
	cfg      Config
	elevator int
	start    *Elevator

	mandatory  []Request
	candidates []candidate
	elevDual   float64

	seq      int
	expanded int
}

// NewPricing prepares the pricing problem of elevator e. Call Update before
// Solve.
func NewPricing(inst *Instance, e int, cfg Config) *Pricing {
	start := inst.Elevator(e)
	return &Pricing{
		inst:      inst,
		cfg:       cfg,
		elevator:  e,
		start:     start,
		mandatory: start.Assigned,
	}
}

// Update installs new duals and the requests the elevator may serve.
// Requests whose effective dual cannot pay for their cheapest possible
// service are dropped up front.
func (p *Pricing) Update(d *Duals, allowed func(e, r int) bool) {
	p.elevDual = d.Elevator[p.elevator]
	p.candidates = p.candidates[:0]
	root := newRoute(&p.inst.Timing, p.start)
	for r, req := range p.inst.Requests {
		if allowed != nil && !allowed(p.elevator, r) {
			continue
		}
		if req.Size() > p.start.Capacity {
			continue
		}
		dual := d.RequestDual(p.elevator, r)
		if dual-p.minCost(&root, req) <= p.cfg.Epsilon {
			continue
		}
		p.candidates = append(p.candidates, candidate{index: r, req: req, dual: dual})
	}
}

// Expanded returns the number of nodes branched in the last Solve.
func (p *Pricing) Expanded() int { return p.expanded }

func (p *Pricing) newRoot() *pricingNode {
	n := &pricingNode{
		route:  newRoute(&p.inst.Timing, p.start),
		closed: make([]bool, len(p.candidates)),
	}
	for i := range p.mandatory {
		n.pending = append(n.pending, i)
	}
	return n
}

// roots returns the current floor and, for a moving car carrying calls,
// every drop floor ahead, nearest first. A root beyond a nearer drop floor
// passes it without stopping and owes that drop on the way back.
func (p *Pricing) roots() []*pricingNode {
	base := p.newRoot()
	out := []*pricingNode{base}
	d := p.start.Direction
	if d == Idle || base.hasDropHere() {
		return out
	}
	var ahead []int
	for _, x := range base.riders {
		if directionOf(base.floor, x.call.Dest) == d && !slices.Contains(ahead, x.call.Dest) {
			ahead = append(ahead, x.call.Dest)
		}
	}
	slices.SortFunc(ahead, func(a, b int) int { return abs(a-base.floor) - abs(b-base.floor) })
	r := base.clone()
	for _, f := range ahead {
		for r.floor != f {
			r.move(d)
		}
		out = append(out, r.clone())
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (p *Pricing) isUnassigned(id int) bool {
	_, ok := p.inst.RequestIndex(id)
	return ok
}

func (p *Pricing) push(h *nodeHeap, n *pricingNode) {
	p.seq++
	n.seq = p.seq
	heap.Push(h, n)
}

// Solve returns up to PricingColumns distinct columns with reduced cost
// below -Epsilon, cheapest first. The search is deterministic for fixed
// duals and allowed sets.
//
// Nodes pop in bound order and a terminal's bound is its reduced cost, so
// accepted columns arrive cheapest first and theta never needs tightening:
// the search stops as soon as the k-th column is accepted.
func (p *Pricing) Solve(ctx context.Context) []Column {
	theta := -p.cfg.Epsilon
	p.seq, p.expanded = 0, 0
	h := &nodeHeap{}
	for _, n := range p.roots() {
		n.bound = p.lowerBound(n)
		if n.bound < theta {
			p.push(h, n)
		}
	}
	var out []Column
	seen := map[string]bool{}
	for h.Len() > 0 {
		if p.expanded%512 == 0 && ctx.Err() != nil {
			break
		}
		n := heap.Pop(h).(*pricingNode)
		if n.bound >= theta {
			continue
		}
		if p.isLast(n) {
			rc := p.reducedCost(n)
			if rc >= theta {
				continue
			}
			s := n.schedule(p.elevator, p.start, p.isUnassigned)
			key := s.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Column{Schedule: s, Elevator: p.elevator, Cost: s.Cost, ReducedCost: rc})
			if len(out) >= p.cfg.PricingColumns {
				break
			}
			continue
		}
		if p.expanded >= p.cfg.PricingMaxNodes {
			break
		}
		p.expanded++
		for _, c := range p.expand(n) {
			c.bound = p.lowerBound(c)
			if c.bound < theta {
				p.push(h, c)
			}
		}
	}
	return out
}

// greedy descends the search tree taking the first child, or the move
// toward the nearest work when an idle car could go either way. It is used
// to build heuristic schedules with no optional requests.
func (p *Pricing) greedy() (Schedule, bool) {
	n := p.newRoot()
	limit := 4 * (p.inst.Floors + 2) * (len(p.mandatory) + n.load() + 2)
	for step := 0; step < limit; step++ {
		if p.isLast(n) {
			return n.schedule(p.elevator, p.start, p.isUnassigned), true
		}
		kids := p.expand(n)
		if len(kids) == 0 {
			return Schedule{}, false
		}
		n = kids[0]
		for _, k := range kids[1:] {
			if p.nearestWork(k) < p.nearestWork(n) {
				n = k
			}
		}
	}
	return Schedule{}, false
}

func (p *Pricing) nearestWork(n *pricingNode) int {
	best := p.inst.Floors
	for _, x := range n.riders {
		best = min(best, abs(x.call.Dest-n.floor))
	}
	for _, i := range n.pending {
		best = min(best, abs(p.mandatory[i].Start()-n.floor))
	}
	return best
}

// nodeHeap orders nodes by bound, then by creation order.
type nodeHeap []*pricingNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].bound != h[j].bound {
		return h[i].bound < h[j].bound
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(*pricingNode)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}
