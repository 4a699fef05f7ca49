package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/san-kum/foamrun/internal/residual"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFoamRoot   = "/opt"
	DefaultVersion    = "openfoam9"
	DefaultSolver     = "twoLiquidMixingFoam"
	DefaultProcessors = 6
	DefaultFrameRate  = 10
	DefaultDataDir    = ".foamrun"
	DefaultStopGrace  = 5.0
)

var (
	ErrProcessors = errors.New("config: processors must be at least 1")
	ErrFrameRate  = errors.New("config: frame rate must be positive")
	ErrChartSize  = errors.New("config: chart width and height must not be negative")
)

type Config struct {
	CaseDir    string          `yaml:"case_dir"`
	Mesh       string          `yaml:"mesh"`
	Solver     string          `yaml:"solver"`
	Processors int             `yaml:"processors"`
	DataDir    string          `yaml:"data_dir"`
	OpenFOAM   OpenFOAMConfig  `yaml:"openfoam"`
	Residuals  ResidualsConfig `yaml:"residuals"`
	Chart      ChartConfig     `yaml:"chart"`
}

type OpenFOAMConfig struct {
	Root    string `yaml:"root"`
	Version string `yaml:"version"`
	// seconds between SIGTERM and kill when stopping a run
	StopGrace float64 `yaml:"stop_grace"`
}

type ResidualsConfig struct {
	SolverTags []string                 `yaml:"solver_tags,omitempty"`
	Duplicates residual.DuplicatePolicy `yaml:"duplicates"`
}

type ChartConfig struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	LogScale  bool `yaml:"log_scale"`
	FrameRate int  `yaml:"frame_rate"`
}

func DefaultConfig() *Config {
	return &Config{
		CaseDir:    ".",
		Solver:     DefaultSolver,
		Processors: DefaultProcessors,
		DataDir:    DefaultDataDir,
		OpenFOAM: OpenFOAMConfig{
			Root:      DefaultFoamRoot,
			Version:   DefaultVersion,
			StopGrace: DefaultStopGrace,
		},
		Residuals: ResidualsConfig{
			Duplicates: residual.AppendAll,
		},
		Chart: ChartConfig{
			LogScale:  true,
			FrameRate: DefaultFrameRate,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Processors < 1 {
		return ErrProcessors
	}
	if c.Chart.FrameRate <= 0 {
		return ErrFrameRate
	}
	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return ErrChartSize
	}
	if _, err := residual.NewPatterns(c.Residuals.SolverTags...); err != nil {
		return fmt.Errorf("config: solver_tags: %w", err)
	}
	return nil
}

// ExpandPaths resolves a leading ~ in every path setting.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.CaseDir, &c.Mesh, &c.DataDir, &c.OpenFOAM.Root} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*p = expanded
	}
	return nil
}

// Patterns compiles the residual matchers including configured extra tags.
func (c *Config) Patterns() (*residual.Patterns, error) {
	return residual.NewPatterns(c.Residuals.SolverTags...)
}

// Apply copies the non-zero fields of a preset onto c.
func (c *Config) Apply(p *Config) {
	if p == nil {
		return
	}
	if p.Solver != "" {
		c.Solver = p.Solver
	}
	if p.Processors > 0 {
		c.Processors = p.Processors
	}
	if len(p.Residuals.SolverTags) > 0 {
		c.Residuals.SolverTags = append([]string{}, p.Residuals.SolverTags...)
	}
	if p.Residuals.Duplicates != residual.AppendAll {
		c.Residuals.Duplicates = p.Residuals.Duplicates
	}
}
