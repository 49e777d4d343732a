package opt

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every tuning constant of the optimiser.
type Config struct {
	// Epsilon is the single numeric tolerance: reduced costs above -Epsilon
	// are not improving, primal values within Epsilon of 0 or 1 are integral.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
	// FallbackCostThreshold marks a schedule as degenerate when its cost is
	// at or above it; AddSchedule then substitutes a greedy schedule.
	FallbackCostThreshold float64 `yaml:"fallback_cost_threshold" json:"fallback_cost_threshold"`
	// ArtificialCost is the big-M price of the LP artificial variables.
	ArtificialCost float64 `yaml:"artificial_cost" json:"artificial_cost"`

	MaxColumnIterations int           `yaml:"max_column_iterations" json:"max_column_iterations"`
	MaxBranchNodes      int           `yaml:"max_branch_nodes" json:"max_branch_nodes"`
	TimeLimit           time.Duration `yaml:"time_limit" json:"time_limit"`

	PricingColumns  int `yaml:"pricing_columns" json:"pricing_columns"`
	PricingMaxNodes int `yaml:"pricing_max_nodes" json:"pricing_max_nodes"`
	OptionalFanout  int `yaml:"optional_fanout" json:"optional_fanout"`
	OptionalCap     int `yaml:"optional_cap" json:"optional_cap"`
	MaxPairColumns  int `yaml:"max_pair_columns" json:"max_pair_columns"`
	// MaxRequestsPerElevator is the right-hand side of the load rows.
	// Zero leaves the rows non-binding.
	MaxRequestsPerElevator int `yaml:"max_requests_per_elevator" json:"max_requests_per_elevator"`

	ParallelPricing bool `yaml:"parallel_pricing" json:"parallel_pricing"`

	Lagrangian LagrangianConfig `yaml:"lagrangian" json:"lagrangian"`
}

// LagrangianConfig controls the optional subgradient bound refinement.
type LagrangianConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Iterations int     `yaml:"iterations" json:"iterations"`
	Step       float64 `yaml:"step" json:"step"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Epsilon:               1e-6,
		FallbackCostThreshold: 1e5,
		ArtificialCost:        1e6,
		MaxColumnIterations:   200,
		MaxBranchNodes:        500,
		TimeLimit:             5 * time.Second,
		PricingColumns:        5,
		PricingMaxNodes:       20000,
		OptionalFanout:        4,
		OptionalCap:           3,
		MaxPairColumns:        32,
		Lagrangian: LagrangianConfig{
			Iterations: 30,
			Step:       1.0,
		},
	}
}

// Validate rejects configurations that would make the search ill-defined.
func (c Config) Validate() error {
	switch {
	case !(c.Epsilon > 0) || c.Epsilon >= 0.5:
		return errors.Errorf("config: epsilon must be in (0, 0.5), got %v", c.Epsilon)
	case !(c.FallbackCostThreshold > 0) || math.IsInf(c.FallbackCostThreshold, 0):
		return errors.Errorf("config: fallback_cost_threshold must be positive and finite, got %v", c.FallbackCostThreshold)
	case c.ArtificialCost <= c.FallbackCostThreshold:
		return errors.Errorf("config: artificial_cost (%v) must exceed fallback_cost_threshold (%v)", c.ArtificialCost, c.FallbackCostThreshold)
	case c.MaxColumnIterations <= 0:
		return errors.New("config: max_column_iterations must be positive")
	case c.MaxBranchNodes <= 0:
		return errors.New("config: max_branch_nodes must be positive")
	case c.TimeLimit <= 0:
		return errors.New("config: time_limit must be positive")
	case c.PricingColumns <= 0:
		return errors.New("config: pricing_columns must be positive")
	case c.PricingMaxNodes <= 0:
		return errors.New("config: pricing_max_nodes must be positive")
	case c.OptionalFanout <= 0 || c.OptionalCap <= 0:
		return errors.New("config: optional_fanout and optional_cap must be positive")
	case c.MaxPairColumns < 0 || c.MaxRequestsPerElevator < 0:
		return errors.New("config: max_pair_columns and max_requests_per_elevator must not be negative")
	case c.Lagrangian.Enabled && (c.Lagrangian.Iterations <= 0 || c.Lagrangian.Step <= 0):
		return errors.New("config: lagrangian iterations and step must be positive when enabled")
	}
	return nil
}

// LoadConfig overlays the YAML file at path on DefaultConfig. Durations are
// written as "2s".
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}
	if err := ParseConfig(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, cfg.Validate()
}

// ParseConfig decodes YAML into cfg, keeping the fields it does not mention.
func ParseConfig(b []byte, cfg *Config) error {
	return yaml.Unmarshal(b, cfg)
}
