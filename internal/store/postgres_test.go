package store

import (
    "math"
    "testing"
)

func TestPageLimit(t *testing.T) {
    cases := map[int]int{0: 100, -3: 100, 7: 7, 500: 500, 501: 100}
    for in, want := range cases {
        if got := pageLimit(in); got != want { t.Fatalf("pageLimit(%d): want %d, got %d", in, want, got) }
    }
}

func TestNullIfEmpty(t *testing.T) {
    if v := nullIfEmpty(""); v != nil { t.Fatalf("empty -> nil expected") }
    if v := nullIfEmpty("x"); v != "x" { t.Fatalf("non-empty passthrough expected, got %v", v) }
}

func TestFinite(t *testing.T) {
    for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
        if finite(f) != 0 { t.Fatalf("finite(%v) should be 0", f) }
    }
    if finite(12.5) != 12.5 { t.Fatal("finite values pass through") }
}
