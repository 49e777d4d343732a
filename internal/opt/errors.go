package opt

import "github.com/pkg/errors"

var (
	// ErrInfeasible means no schedule set covers every request, even after
	// feasibility columns were injected.
	ErrInfeasible = errors.New("opt: no feasible assignment")
	// ErrNoElevators is returned for an instance without elevators.
	ErrNoElevators     = errors.New("opt: instance has no elevators")
	ErrInvalidInstance = errors.New("opt: invalid instance")
)
