package api

import (
    "sync"

    "liftsched/internal/metrics"
)

// RunEvent is one progress message of a dispatch run.
type RunEvent struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

// Terminal events end a run's stream.
const (
    EventRunFinished = "run.finished"
    EventRunFailed   = "run.failed"
)

func (e RunEvent) terminal() bool { return e.Type == EventRunFinished || e.Type == EventRunFailed }

// Broker fans run events out to in-process subscribers. Slow subscribers
// miss events rather than block the solver.
type Broker struct {
    mu      sync.Mutex
    subs    map[string]map[chan RunEvent]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan RunEvent {
    ch := make(chan RunEvent, 32)
    b.mu.Lock()
    if b.subs[runID] == nil { b.subs[runID] = map[chan RunEvent]struct{}{} }
    b.subs[runID][ch] = struct{}{}
    b.mu.Unlock()
    metrics.StreamSubscribers.Inc()
    return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan RunEvent) {
    b.mu.Lock()
    m := b.subs[runID]
    _, ok := m[ch]
    if ok {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, runID) }
    }
    b.mu.Unlock()
    if ok {
        close(ch)
        metrics.StreamSubscribers.Dec()
    }
}

func (b *Broker) Publish(runID string, evt RunEvent) {
    b.mu.Lock()
    m := b.subs[runID]
    for ch := range m {
        if evt.terminal() {
            // make room so the end of a run is never dropped
            select { case ch <- evt: continue; default: }
            select { case <-ch: default: }
        }
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}
