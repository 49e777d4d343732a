// Package lp is the linear-programming boundary of the optimiser.
//
// The master model never talks to an LP engine directly; it builds a Problem
// (named rows, sparse columns) and hands it to a Solver. Any engine that can
// return primal values, the objective and one dual price per row can be
// plugged in. Simplex is the default engine, backed by gonum.
package lp

import (
	"context"

	"github.com/pkg/errors"
)

// Sense is the relation of a row to its right-hand side.
type Sense int

const (
	Equal Sense = iota
	LessEqual
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case Equal:
		return "="
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	}
	return "?"
}

// Row is one named constraint.
type Row struct {
	Name  string
	Sense Sense
	RHS   float64
}

// Entry is a non-zero coefficient of a column.
type Entry struct {
	Row   int
	Value float64
}

// Column is one non-negative variable with its objective coefficient.
type Column struct {
	Name    string
	Cost    float64
	Entries []Entry
}

// Problem is "minimise Σ cost·x subject to rows, x >= 0".
type Problem struct {
	Rows    []Row
	Columns []Column
}

// Validate checks that every entry references an existing row.
func (p Problem) Validate() error {
	for j, c := range p.Columns {
		for _, e := range c.Entries {
			if e.Row < 0 || e.Row >= len(p.Rows) {
				return errors.Errorf("lp: column %d (%s) references row %d of %d", j, c.Name, e.Row, len(p.Rows))
			}
		}
	}
	return nil
}

// Result is an optimal primal/dual pair.
type Result struct {
	Primal    []float64 // one value per column
	Objective float64
	Duals     []float64 // one price per row, sign convention of a minimisation
}

// Solver solves a Problem. Implementations return ErrInfeasible (possibly
// wrapped) when no feasible point exists.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Result, error)
}

var (
	ErrInfeasible = errors.New("lp: problem is infeasible")
	ErrUnbounded  = errors.New("lp: problem is unbounded")
)
