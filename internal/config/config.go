package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hybridsim/hybridsim/internal/simulate"
)

const (
	DefaultMaxStep      = 0.1
	DefaultDuration     = 10.0
	DefaultTolerance    = 1e-9
	DefaultMaxEventRate = 100
)

// Config is one run of one model: which system to build, how to
// integrate it, and the event-handling limits.
type Config struct {
	Model        string             `yaml:"model"`
	Integrator   string             `yaml:"integrator"`
	Duration     float64            `yaml:"duration"`
	MaxStep      float64            `yaml:"max_step"`
	Tolerance    float64            `yaml:"tolerance"`
	MaxEventRate int                `yaml:"max_event_rate"`
	InitState    []float64          `yaml:"init_state"`
	Params       map[string]float64 `yaml:"params"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:        "bouncer",
		Integrator:   "rk4",
		Duration:     DefaultDuration,
		MaxStep:      DefaultMaxStep,
		Tolerance:    DefaultTolerance,
		MaxEventRate: DefaultMaxEventRate,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	if c.MaxStep <= 0 {
		return fmt.Errorf("config: max_step must be positive, got %f", c.MaxStep)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("config: tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MaxEventRate <= 0 {
		return fmt.Errorf("config: max_event_rate must be positive, got %d", c.MaxEventRate)
	}
	return nil
}

// SimConfig translates the run options into the simulator's form.
func (c *Config) SimConfig() simulate.Config {
	return simulate.Config{
		MaxStep:              c.MaxStep,
		WitnessTolerance:     c.Tolerance,
		MaxEventsPerUnitTime: c.MaxEventRate,
		ValidateState:        true,
	}
}
