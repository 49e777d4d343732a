package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    rid := "r1"
    ch := b.Subscribe(rid)

    evt := RunEvent{Type: "solver.node_solved", Data: map[string]any{"x": 1}}
    b.Publish(rid, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["x"].(int) != 1 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(rid, ch)
    if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
    // a second unsubscribe is a no-op
    b.Unsubscribe(rid, ch)
}

func TestBrokerKeepsTerminalEventWhenFull(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("r1")
    defer b.Unsubscribe("r1", ch)
    for i := 0; i < cap(ch)+5; i++ {
        b.Publish("r1", RunEvent{Type: "solver.node_solved"})
    }
    b.Publish("r1", RunEvent{Type: EventRunFinished})
    var last RunEvent
    for len(ch) > 0 { last = <-ch }
    if last.Type != EventRunFinished { t.Fatalf("terminal event dropped, last=%s", last.Type) }
}

func TestBrokerIsolatesRuns(t *testing.T) {
    b := NewBroker()
    a := b.Subscribe("a")
    defer b.Unsubscribe("a", a)
    b.Publish("b", RunEvent{Type: "solver.root_solved"})
    select {
    case evt := <-a:
        t.Fatalf("received event of another run: %+v", evt)
    case <-time.After(20 * time.Millisecond):
    }
}
