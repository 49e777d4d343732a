package opt

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solver.yaml")
	body := "time_limit: 2s\npricing_columns: 3\nlagrangian:\n  enabled: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.TimeLimit != 2*time.Second || cfg.PricingColumns != 3 || !cfg.Lagrangian.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Epsilon != def.Epsilon || cfg.Lagrangian.Iterations != def.Lagrangian.Iterations {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
		{"big-M below guard", func(c *Config) { c.ArtificialCost = c.FallbackCostThreshold }},
		{"no iterations", func(c *Config) { c.MaxColumnIterations = 0 }},
		{"no time", func(c *Config) { c.TimeLimit = 0 }},
		{"no fanout", func(c *Config) { c.OptionalFanout = 0 }},
		{"lagrangian without step", func(c *Config) { c.Lagrangian = LagrangianConfig{Enabled: true, Iterations: 5} }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mut(&cfg)
		if cfg.Validate() == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}
