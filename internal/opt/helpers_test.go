package opt

import (
	"context"
	"io"
	"math"
	"testing"

	log "github.com/sirupsen/logrus"

	"liftsched/internal/lp"
)

func testTiming() Timing {
	return Timing{StopTime: 2, DriveTime: 1.5, StartupTime: 1, CapacityPenalty: 5}
}

func call(start, dest int) Call {
	return Call{Start: start, Dest: dest, WaitCost: 1, TravelCost: 1}
}

func req(id, start, dest int) Request {
	return Request{ID: id, Calls: []Call{call(start, dest)}}
}

func idle(id, floor, capacity int) Elevator {
	return Elevator{ID: id, Floor: floor, Capacity: capacity}
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func solveOpts() Options {
	cfg := DefaultConfig()
	return Options{Config: &cfg, Logger: quietLogger()}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// rootMaster seeds a master the way the driver does and runs column
// generation on it.
func rootMaster(t *testing.T, inst *Instance, cfg Config) (*Master, *Solution) {
	t.Helper()
	inst.RequestIndex(-1)
	m := NewMaster(inst, cfg, lp.NewSimplex(cfg.ArtificialCost))
	sc := newSearchContext(inst, cfg, m)
	m.SetFallback(sc.greedySchedule)
	for _, s := range sc.seedColumns(true) {
		m.AddSchedule(s, s.Elevator)
	}
	var stats Stats
	g := newGenerator(inst, cfg, m, sc, quietLogger(), &stats)
	sol, _, err := g.run(context.Background())
	if err != nil {
		t.Fatalf("column generation: %v", err)
	}
	if sol == nil {
		t.Fatal("root infeasible")
	}
	return m, sol
}
