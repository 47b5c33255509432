package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/banshee-data/velocity.ptv/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for a tracking run.
// Every field is optional; the Get* methods supply the default for any
// field the file leaves out.
type TuningConfig struct {
	// Radii
	NeighborRadius *float64 `json:"neighbor_radius,omitempty" yaml:"neighbor_radius,omitempty"`
	SearchRadius   *float64 `json:"search_radius,omitempty" yaml:"search_radius,omitempty"`

	// Relaxation coefficients
	A *float64 `json:"a,omitempty" yaml:"a,omitempty"`
	B *float64 `json:"b,omitempty" yaml:"b,omitempty"`
	C *float64 `json:"c,omitempty" yaml:"c,omitempty"` // accepted, unused
	D *float64 `json:"d,omitempty" yaml:"d,omitempty"` // accepted, unused
	E *float64 `json:"e,omitempty" yaml:"e,omitempty"`
	F *float64 `json:"f,omitempty" yaml:"f,omitempty"`

	// Solver
	Iterations     *int     `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	MatchThreshold *float64 `json:"match_threshold,omitempty" yaml:"match_threshold,omitempty"`
	Workers        *int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	Index          *string  `json:"index,omitempty" yaml:"index,omitempty"`
	SelfRowPolicy  *string  `json:"self_row_policy,omitempty" yaml:"self_row_policy,omitempty"`

	// Velocity recovery
	FrameInterval *string `json:"frame_interval,omitempty" yaml:"frame_interval,omitempty"` // duration string like "1ms"
	LengthUnit    *string `json:"length_unit,omitempty" yaml:"length_unit,omitempty"`
	SpeedUnit     *string `json:"speed_unit,omitempty" yaml:"speed_unit,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// FromParams returns a fully populated config describing p.
func FromParams(p ptv.Params) *TuningConfig {
	return &TuningConfig{
		NeighborRadius: ptrFloat64(p.NeighborRadius),
		SearchRadius:   ptrFloat64(p.SearchRadius),
		A:              ptrFloat64(p.A),
		B:              ptrFloat64(p.B),
		C:              ptrFloat64(p.C),
		D:              ptrFloat64(p.D),
		E:              ptrFloat64(p.E),
		F:              ptrFloat64(p.F),
		Iterations:     ptrInt(p.Iterations),
		MatchThreshold: ptrFloat64(p.MatchThreshold),
		Workers:        ptrInt(p.Workers),
		Index:          ptrString(string(p.Index)),
		SelfRowPolicy:  ptrString(string(p.SelfRowPolicy)),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file is validated to ensure it has a .json, .yaml or .yml extension
// and is under the max file size. Fields omitted from the file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the file.
	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that can be checked in isolation. The solver
// parameters are checked again as a whole by ptv.Params.Validate.
func (c *TuningConfig) Validate() error {
	if c.Iterations != nil && *c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", *c.Iterations)
	}

	for _, coef := range []struct {
		name string
		val  *float64
	}{{"a", c.A}, {"b", c.B}, {"e", c.E}, {"f", c.F}} {
		if coef.val != nil && !(*coef.val > 0) {
			return fmt.Errorf("coefficient %s must be positive, got %f", coef.name, *coef.val)
		}
	}

	if c.MatchThreshold != nil {
		if *c.MatchThreshold <= 0 || *c.MatchThreshold >= 1 {
			return fmt.Errorf("match_threshold must be between 0 and 1 (exclusive), got %f", *c.MatchThreshold)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.Index != nil && *c.Index != "" && !ptv.IndexStrategy(*c.Index).Valid() {
		return fmt.Errorf("unknown index %q (valid: scan, grid, kdtree)", *c.Index)
	}

	if c.SelfRowPolicy != nil {
		switch ptv.SelfRowPolicy(*c.SelfRowPolicy) {
		case "", ptv.SelfRowAbort, ptv.SelfRowSkip:
		default:
			return fmt.Errorf("unknown self_row_policy %q (valid: abort, skip)", *c.SelfRowPolicy)
		}
	}

	// Validate FrameInterval can be parsed if set
	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_interval must be positive, got %s", d)
		}
	}

	if c.LengthUnit != nil && !units.IsValidLength(*c.LengthUnit) {
		return fmt.Errorf("unknown length_unit %q", *c.LengthUnit)
	}
	if c.SpeedUnit != nil && !units.IsValidSpeed(*c.SpeedUnit) {
		return fmt.Errorf("unknown speed_unit %q", *c.SpeedUnit)
	}

	return nil
}

// Params converts the config into engine parameters, falling back to the
// defaults for omitted fields.
func (c *TuningConfig) Params() ptv.Params {
	return ptv.Params{
		NeighborRadius: c.GetNeighborRadius(),
		SearchRadius:   c.GetSearchRadius(),
		Coefficients:   c.GetCoefficients(),
		Iterations:     c.GetIterations(),
		MatchThreshold: c.GetMatchThreshold(),
		Workers:        c.GetWorkers(),
		Index:          ptv.IndexStrategy(c.GetIndex()),
		SelfRowPolicy:  ptv.SelfRowPolicy(c.GetSelfRowPolicy()),
	}
}

// GetNeighborRadius returns the neighbor_radius value or the default.
func (c *TuningConfig) GetNeighborRadius() float64 {
	if c.NeighborRadius == nil {
		return ptv.DefaultNeighborRadius
	}
	return *c.NeighborRadius
}

// GetSearchRadius returns the search_radius value or the default.
func (c *TuningConfig) GetSearchRadius() float64 {
	if c.SearchRadius == nil {
		return ptv.DefaultSearchRadius
	}
	return *c.SearchRadius
}

// GetCoefficients returns a..f, each falling back to its default.
func (c *TuningConfig) GetCoefficients() ptv.Coefficients {
	co := ptv.DefaultCoefficients()
	for _, f := range []struct {
		src *float64
		dst *float64
	}{
		{c.A, &co.A}, {c.B, &co.B}, {c.C, &co.C},
		{c.D, &co.D}, {c.E, &co.E}, {c.F, &co.F},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return co
}

// GetIterations returns the iterations value or the default.
func (c *TuningConfig) GetIterations() int {
	if c.Iterations == nil {
		return ptv.DefaultIterations
	}
	return *c.Iterations
}

// GetMatchThreshold returns the match_threshold value or the default.
func (c *TuningConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return ptv.DefaultMatchThreshold
	}
	return *c.MatchThreshold
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetIndex returns the index value or the default.
func (c *TuningConfig) GetIndex() string {
	if c.Index == nil || *c.Index == "" {
		return string(ptv.IndexScan)
	}
	return *c.Index
}

// GetSelfRowPolicy returns the self_row_policy value or the default.
func (c *TuningConfig) GetSelfRowPolicy() string {
	if c.SelfRowPolicy == nil || *c.SelfRowPolicy == "" {
		return string(ptv.SelfRowAbort)
	}
	return *c.SelfRowPolicy
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil || d <= 0 {
		return time.Millisecond // default on parse error
	}
	return d
}

// GetLengthUnit returns the length_unit value or the default.
func (c *TuningConfig) GetLengthUnit() string {
	if c.LengthUnit == nil {
		return units.Millimetre
	}
	return *c.LengthUnit
}

// GetSpeedUnit returns the speed_unit value or the default.
func (c *TuningConfig) GetSpeedUnit() string {
	if c.SpeedUnit == nil {
		return units.MPS
	}
	return *c.SpeedUnit
}
