package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isoclass/internal/isodata"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `clusters: 4
terminal_threshold: .inf
min_num_vals: 7
workers: 3
seed: 99
outputs:
  report: run.json
  plot: conv.png
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Clusters)
	assert.True(t, math.IsInf(cfg.TerminalThreshold, 1))
	assert.Equal(t, uint64(7), cfg.MinNumVals)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "run.json", cfg.Outputs.Report)
	assert.Equal(t, "conv.png", cfg.Outputs.Plot)

	// untouched keys keep defaults
	assert.Equal(t, InitRandom, cfg.Init)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 2.0, cfg.PropOverAvgDist)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")

	_, err = Load(writeConfig(t, "clusters: [1, 2"))
	assert.ErrorContains(t, err, "parsing config YAML")

	_, err = Load(writeConfig(t, "clusters: 0\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"clusters", func(c *Config) { c.Clusters = 0 }},
		{"init", func(c *Config) { c.Init = "forgy" }},
		{"max iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"terminal threshold", func(c *Config) { c.TerminalThreshold = -1 }},
		{"terminal threshold NaN", func(c *Config) { c.TerminalThreshold = math.NaN() }},
		{"min distance", func(c *Config) { c.MinDistanceBetweenCentres = -0.5 }},
		{"stddev threshold", func(c *Config) { c.StdDevThreshold = -2 }},
		{"prop over avg", func(c *Config) { c.PropOverAvgDist = -1 }},
		{"workers", func(c *Config) { c.Workers = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Clusters = 12
	cfg.Init = InitKMeansPP
	cfg.Outputs.Centres = "centres.csv"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParams(t *testing.T) {
	cfg := Default()
	want := isodata.Params{
		TerminalThreshold:         0.05,
		MaxIterations:             20,
		MinNumVals:                100,
		MinDistanceBetweenCentres: 10,
		StdDevThreshold:           5,
		PropOverAvgDist:           2,
	}
	assert.Equal(t, want, cfg.Params())
}
