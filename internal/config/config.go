// Package config provides configuration management for the churn simulator.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"churnsim/internal/dataset"
	"churnsim/internal/features"
	"churnsim/internal/logger"
	"churnsim/internal/risk"
)

// Configuration validation errors.
var (
	ErrMissingInputPath     = errors.New("input.path is required")
	ErrMissingOutputPath    = errors.New("output.path is required")
	ErrInvalidSeparator     = errors.New("input.separator must not be empty")
	ErrMissingColumnName    = errors.New("column name must not be empty")
	ErrDuplicateColumnName  = errors.New("column name is used more than once")
	ErrInvalidNetworkBounds = errors.New("features.network_bounds.min must be below max")
	ErrNegativeBonus        = errors.New("features.max_age_price_bonus must be non-negative")
	ErrNonFiniteValue       = errors.New("value must be a finite number")
	ErrMissingFemaleLabel   = errors.New("risk.female_label is required")
	ErrSameInputOutput      = errors.New("output paths must differ from each other and from input.path")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("logging.format must be 'text' or 'json'")
)

// Config represents the complete simulator configuration.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Columns    dataset.Schema   `yaml:"columns"`
	Features   FeaturesConfig   `yaml:"features"`
	Risk       RiskConfig       `yaml:"risk"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig locates the semi-structured customer records.
type InputConfig struct {
	Path      string `yaml:"path"`
	Separator string `yaml:"separator"`
}

// OutputConfig defines where results are written. Report and metrics
// files are optional.
type OutputConfig struct {
	Path        string `yaml:"path"`
	ReportPath  string `yaml:"report_path"`
	MetricsPath string `yaml:"metrics_path"`
}

// FeaturesConfig parameterizes the feature modifications.
type FeaturesConfig struct {
	CoveragePenalties features.CoveragePenalties `yaml:"coverage_penalties"`
	NetworkBounds     features.Bounds            `yaml:"network_bounds"`
	MaxAgePriceBonus  float64                    `yaml:"max_age_price_bonus"`
}

// RiskConfig holds the risk model coefficients.
type RiskConfig struct {
	FemaleLabel string       `yaml:"female_label"`
	Weights     risk.Weights `yaml:"weights"`
}

// SimulationConfig controls the random label draw. A nil seed means a
// fresh seed per run.
type SimulationConfig struct {
	Seed *uint64 `yaml:"seed"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration that reproduces the reference
// telecom dataset.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Path:      "telecom_churn_semi_structured.json",
			Separator: dataset.DefaultSeparator,
		},
		Output: OutputConfig{
			Path: "telecom_churn_modified.csv",
		},
		Columns: dataset.DefaultSchema(),
		Features: FeaturesConfig{
			CoveragePenalties: features.DefaultCoveragePenalties(),
			NetworkBounds:     features.DefaultNetworkBounds(),
			MaxAgePriceBonus:  features.DefaultMaxAgePriceBonus,
		},
		Risk: RiskConfig{
			FemaleLabel: risk.DefaultFemaleLabel,
			Weights:     risk.DefaultWeights(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logger.FormatText,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
// A coverage_penalties table in the file replaces the default table.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var penalties struct {
		Features struct {
			CoveragePenalties features.CoveragePenalties `yaml:"coverage_penalties"`
		} `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &penalties); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if penalties.Features.CoveragePenalties != nil {
		cfg.Features.CoveragePenalties = penalties.Features.CoveragePenalties
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return ErrMissingInputPath
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}

	if c.Input.Separator == "" {
		return ErrInvalidSeparator
	}

	if err := c.validatePaths(); err != nil {
		return err
	}

	if err := c.validateColumns(); err != nil {
		return err
	}

	bounds := c.Features.NetworkBounds
	if !isFinite(bounds.Min) || !isFinite(bounds.Max) {
		return fmt.Errorf("%w: features.network_bounds", ErrNonFiniteValue)
	}

	if bounds.Min >= bounds.Max {
		return ErrInvalidNetworkBounds
	}

	if !isFinite(c.Features.MaxAgePriceBonus) {
		return fmt.Errorf("%w: features.max_age_price_bonus", ErrNonFiniteValue)
	}

	if c.Features.MaxAgePriceBonus < 0 {
		return ErrNegativeBonus
	}

	for location, penalty := range c.Features.CoveragePenalties {
		if !isFinite(penalty) {
			return fmt.Errorf("%w: features.coverage_penalties.%s", ErrNonFiniteValue, location)
		}
	}

	w := c.Risk.Weights
	weights := map[string]float64{
		"price":   w.Price,
		"tenure":  w.Tenure,
		"network": w.Network,
		"age":     w.Age,
		"gender":  w.Gender,
	}

	for name, v := range weights {
		if !isFinite(v) {
			return fmt.Errorf("%w: risk.weights.%s", ErrNonFiniteValue, name)
		}
	}

	if c.Risk.FemaleLabel == "" {
		return ErrMissingFemaleLabel
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != logger.FormatText && c.Logging.Format != logger.FormatJSON {
		return ErrInvalidLogFormat
	}

	return nil
}

func (c *Config) validatePaths() error {
	seen := map[string]bool{filepath.Clean(c.Input.Path): true}

	for _, p := range []string{c.Output.Path, c.Output.ReportPath, c.Output.MetricsPath} {
		if p == "" {
			continue
		}

		clean := filepath.Clean(p)
		if seen[clean] {
			return fmt.Errorf("%w: %s", ErrSameInputOutput, p)
		}

		seen[clean] = true
	}

	return nil
}

func (c *Config) validateColumns() error {
	cols := c.Columns
	required := map[string]string{
		"location":        cols.Location,
		"age":             cols.Age,
		"gender":          cols.Gender,
		"network_quality": cols.NetworkQuality,
		"monthly_charge":  cols.MonthlyCharge,
		"tenure":          cols.Tenure,
		"churn":           cols.Churn,
	}

	for key, name := range required {
		if name == "" {
			return fmt.Errorf("%w: columns.%s", ErrMissingColumnName, key)
		}
	}

	seen := make(map[string]bool)

	for _, name := range cols.Names() {
		if name == "" {
			continue
		}

		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumnName, name)
		}

		seen[name] = true
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	seed := "random"
	if c.Simulation.Seed != nil {
		seed = fmt.Sprintf("%d", *c.Simulation.Seed)
	}

	return fmt.Sprintf(
		"Config{Input: %s, Output: %s, Seed: %s}",
		c.Input.Path,
		c.Output.Path,
		seed,
	)
}
