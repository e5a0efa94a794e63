package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"isoclass/internal/isodata"
)

// Initialisation strategies.
const (
	InitRandom   = "random"
	InitKMeansPP = "kmeanspp"
)

// Config is a complete classification run.
type Config struct {
	Clusters int    `yaml:"clusters"`
	Init     string `yaml:"init"`

	MaxIterations             int     `yaml:"max_iterations"`
	TerminalThreshold         float64 `yaml:"terminal_threshold"`
	MinNumVals                uint64  `yaml:"min_num_vals"`
	MinDistanceBetweenCentres float64 `yaml:"min_distance_between_centres"`
	StdDevThreshold           float64 `yaml:"stddev_threshold"`
	PropOverAvgDist           float64 `yaml:"prop_over_avg_dist"`

	Workers int    `yaml:"workers"`
	Seed    uint64 `yaml:"seed"` // 0 picks a time-based seed

	Outputs Outputs `yaml:"outputs"`
}

// Outputs names the optional artefacts written next to the label raster.
type Outputs struct {
	Report  string `yaml:"report,omitempty"`
	Centres string `yaml:"centres,omitempty"`
	Plot    string `yaml:"plot,omitempty"`
	Preview string `yaml:"preview,omitempty"`
}

// Default returns the settings used when neither a file nor flags say
// otherwise.
func Default() *Config {
	return &Config{
		Clusters:                  10,
		Init:                      InitRandom,
		MaxIterations:             20,
		TerminalThreshold:         0.05,
		MinNumVals:                100,
		MinDistanceBetweenCentres: 10,
		StdDevThreshold:           5,
		PropOverAvgDist:           2,
		Workers:                   1,
	}
}

// Load reads a YAML run file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Clusters < 1 {
		return fmt.Errorf("clusters must be at least 1, got %d", c.Clusters)
	}
	switch c.Init {
	case InitRandom, InitKMeansPP:
	default:
		return fmt.Errorf("init must be %q or %q, got %q", InitRandom, InitKMeansPP, c.Init)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if math.IsNaN(c.TerminalThreshold) || c.TerminalThreshold < 0 {
		return fmt.Errorf("terminal_threshold must be non-negative, got %v", c.TerminalThreshold)
	}
	if math.IsNaN(c.MinDistanceBetweenCentres) || c.MinDistanceBetweenCentres < 0 {
		return fmt.Errorf("min_distance_between_centres must be non-negative, got %v", c.MinDistanceBetweenCentres)
	}
	if math.IsNaN(c.StdDevThreshold) || c.StdDevThreshold < 0 {
		return fmt.Errorf("stddev_threshold must be non-negative, got %v", c.StdDevThreshold)
	}
	if math.IsNaN(c.PropOverAvgDist) || c.PropOverAvgDist < 0 {
		return fmt.Errorf("prop_over_avg_dist must be non-negative, got %v", c.PropOverAvgDist)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// Params returns the iteration controls for the classifier.
func (c *Config) Params() isodata.Params {
	return isodata.Params{
		TerminalThreshold:         c.TerminalThreshold,
		MaxIterations:             c.MaxIterations,
		MinNumVals:                c.MinNumVals,
		MinDistanceBetweenCentres: c.MinDistanceBetweenCentres,
		StdDevThreshold:           c.StdDevThreshold,
		PropOverAvgDist:           c.PropOverAvgDist,
	}
}
