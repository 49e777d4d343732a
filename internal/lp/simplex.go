package lp

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// Simplex solves problems with gonum's dense simplex.
//
// gonum returns primal values only, so the dual prices come from a second
// solve of the dual program. Both programs are put in a form that has an
// identity starting basis: every row gets a slack (<=) or an artificial
// variable priced at ArtificialCost (= and >=). A positive artificial in the
// optimum means the original rows cannot be met.
type Simplex struct {
	Tol            float64
	FeasTol        float64
	ArtificialCost float64
}

// NewSimplex returns a Simplex with the given artificial (big-M) price.
func NewSimplex(artificialCost float64) *Simplex {
	return &Simplex{Tol: 1e-10, FeasTol: 1e-7, ArtificialCost: artificialCost}
}

type standardForm struct {
	c      []float64
	a      *mat.Dense
	b      []float64
	basis  []int
	sign   []float64 // +1 or -1 per row after normalising b >= 0
	cols   []int     // structural column j of the Problem -> column in a, or -1
	artifs []int
}

func (s *Simplex) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return 1e-10
}

func (s *Simplex) feasTol() float64 {
	if s.FeasTol > 0 {
		return s.FeasTol
	}
	return 1e-7
}

func (s *Simplex) bigM() float64 {
	if s.ArtificialCost > 0 {
		return s.ArtificialCost
	}
	return 1e6
}

// Solve implements Solver.
func (s *Simplex) Solve(ctx context.Context, p Problem) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(p.Rows) == 0 {
		return solveUnconstrained(p)
	}
	sf, err := s.standardForm(p)
	if err != nil {
		return Result{}, err
	}
	_, x, err := gonumlp.Simplex(sf.c, sf.a, sf.b, s.tol(), sf.basis)
	if err != nil {
		if errors.Is(err, gonumlp.ErrInfeasible) {
			return Result{}, ErrInfeasible
		}
		if errors.Is(err, gonumlp.ErrUnbounded) {
			return Result{}, ErrUnbounded
		}
		return Result{}, errors.Wrap(err, "lp: primal simplex")
	}
	for _, j := range sf.artifs {
		if x[j] > s.feasTol() {
			return Result{}, ErrInfeasible
		}
	}
	res := Result{Primal: make([]float64, len(p.Columns))}
	for j, k := range sf.cols {
		if k < 0 {
			continue
		}
		v := x[k]
		if v < 0 && v > -s.feasTol() {
			v = 0
		}
		res.Primal[j] = v
		res.Objective += p.Columns[j].Cost * v
	}
	y, err := s.dual(sf)
	if err != nil {
		return Result{}, err
	}
	res.Duals = make([]float64, len(p.Rows))
	for i := range y {
		res.Duals[i] = sf.sign[i] * y[i]
	}
	return res, nil
}

func solveUnconstrained(p Problem) (Result, error) {
	res := Result{Primal: make([]float64, len(p.Columns))}
	for _, c := range p.Columns {
		if c.Cost < 0 {
			return Result{}, ErrUnbounded
		}
	}
	return res, nil
}

// standardForm lays out [structural | slack/surplus | artificial] with b >= 0.
func (s *Simplex) standardForm(p Problem) (standardForm, error) {
	m := len(p.Rows)
	sf := standardForm{
		b:    make([]float64, m),
		sign: make([]float64, m),
		cols: make([]int, len(p.Columns)),
	}
	senses := make([]Sense, m)
	for i, r := range p.Rows {
		sf.sign[i] = 1
		senses[i] = r.Sense
		sf.b[i] = r.RHS
		if r.RHS < 0 {
			sf.sign[i] = -1
			sf.b[i] = -r.RHS
			switch r.Sense {
			case LessEqual:
				senses[i] = GreaterEqual
			case GreaterEqual:
				senses[i] = LessEqual
			}
		}
	}

	n := 0
	for j, c := range p.Columns {
		if columnIsZero(c) {
			if c.Cost < 0 {
				return sf, ErrUnbounded
			}
			sf.cols[j] = -1
			continue
		}
		sf.cols[j] = n
		n++
	}
	structural := n
	for _, sn := range senses {
		switch sn {
		case LessEqual:
			n++
		case GreaterEqual:
			n += 2
		case Equal:
			n++
		}
	}

	sf.a = mat.NewDense(m, n, nil)
	sf.c = make([]float64, n)
	for j, c := range p.Columns {
		k := sf.cols[j]
		if k < 0 {
			continue
		}
		sf.c[k] = c.Cost
		for _, e := range c.Entries {
			sf.a.Set(e.Row, k, sf.a.At(e.Row, k)+sf.sign[e.Row]*e.Value)
		}
	}
	sf.basis = make([]int, m)
	k := structural
	for i, sn := range senses {
		switch sn {
		case LessEqual:
			sf.a.Set(i, k, 1)
			sf.basis[i] = k
			k++
		case GreaterEqual:
			sf.a.Set(i, k, -1)
			k++
			sf.a.Set(i, k, 1)
			sf.c[k] = s.bigM()
			sf.basis[i] = k
			sf.artifs = append(sf.artifs, k)
			k++
		case Equal:
			sf.a.Set(i, k, 1)
			sf.c[k] = s.bigM()
			sf.basis[i] = k
			sf.artifs = append(sf.artifs, k)
			k++
		}
	}
	return sf, nil
}

func columnIsZero(c Column) bool {
	for _, e := range c.Entries {
		if e.Value != 0 {
			return false
		}
	}
	return true
}

// dual solves max bᵀy s.t. Aᵀy <= c with y = u - v and slacks w:
//
//	min -bᵀu + bᵀv  s.t.  Aᵀu - Aᵀv + w = c,  u, v, w >= 0.
func (s *Simplex) dual(sf standardForm) ([]float64, error) {
	m, n := sf.a.Dims()
	d := mat.NewDense(n, 2*m+n, nil)
	cost := make([]float64, 2*m+n)
	rhs := make([]float64, n)
	for i := 0; i < m; i++ {
		cost[i] = -sf.b[i]
		cost[m+i] = sf.b[i]
	}
	basis := make([]int, n)
	for j := 0; j < n; j++ {
		sign := 1.0
		if sf.c[j] < 0 {
			sign = -1
			basis = nil
		}
		for i := 0; i < m; i++ {
			v := sf.a.At(i, j)
			if v == 0 {
				continue
			}
			d.Set(j, i, sign*v)
			d.Set(j, m+i, -sign*v)
		}
		d.Set(j, 2*m+j, sign)
		rhs[j] = sign * sf.c[j]
		if basis != nil {
			basis[j] = 2*m + j
		}
	}
	_, z, err := gonumlp.Simplex(cost, d, rhs, s.tol(), basis)
	if err != nil {
		return nil, errors.Wrap(err, "lp: dual simplex")
	}
	y := make([]float64, m)
	for i := range y {
		y[i] = z[i] - z[m+i]
		if math.Abs(y[i]) < s.tol() {
			y[i] = 0
		}
	}
	return y, nil
}
