package respool

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/respool/internal/eviction"
	"github.com/hupe1980/respool/objectpool"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "RESPOOL_"

// EvictionWeights are the signed weights of the eviction score.
// See the eviction package for the formula.
type EvictionWeights struct {
	Priority  float64 `yaml:"priority" json:"priority" env:"PRIORITY"`
	Frequency float64 `yaml:"frequency" json:"frequency" env:"FREQUENCY"`
	Idle      float64 `yaml:"idle" json:"idle" env:"IDLE"`
	Size      float64 `yaml:"size" json:"size" env:"SIZE"`
}

func (w EvictionWeights) policyWeights() eviction.Weights {
	return eviction.Weights{
		Priority:  w.Priority,
		Frequency: w.Frequency,
		Idle:      w.Idle,
		Size:      w.Size,
	}
}

// Config is supplied once at construction.
type Config struct {
	// MaxEntries caps the number of cached entries. 0 disables the limit.
	MaxEntries int `yaml:"max_entries" json:"max_entries" env:"MAX_ENTRIES"`

	// MaxBytes is the soft memory budget. 0 disables byte pressure.
	MaxBytes int64 `yaml:"max_bytes" json:"max_bytes" env:"MAX_BYTES"`

	// CleanupThresholdRatio is the fraction of MaxBytes above which eviction
	// runs; eviction then reclaims down to that fraction.
	CleanupThresholdRatio float64 `yaml:"cleanup_threshold_ratio" json:"cleanup_threshold_ratio" env:"CLEANUP_THRESHOLD_RATIO"`

	// MaxConcurrentLoads bounds concurrently running factories.
	MaxConcurrentLoads int `yaml:"max_concurrent_loads" json:"max_concurrent_loads" env:"MAX_CONCURRENT_LOADS"`

	// LoadsPerSecond paces factory starts. 0 means unpaced.
	LoadsPerSecond float64 `yaml:"loads_per_second" json:"loads_per_second" env:"LOADS_PER_SECOND"`

	// MaintenanceIntervalMs is the maintenance tick period. 0 disables the ticker.
	MaintenanceIntervalMs int `yaml:"maintenance_interval_ms" json:"maintenance_interval_ms" env:"MAINTENANCE_INTERVAL_MS"`

	// ExemptHardSweep lets pressure eviction remove unreferenced exempt
	// entries once every non-exempt candidate is gone.
	ExemptHardSweep bool `yaml:"exempt_hard_sweep" json:"exempt_hard_sweep" env:"EXEMPT_HARD_SWEEP"`

	// SizeNormalizerBytes scales the size term of the eviction score.
	SizeNormalizerBytes int64 `yaml:"size_normalizer_bytes" json:"size_normalizer_bytes" env:"SIZE_NORMALIZER_BYTES"`

	ObjectPoolCaps  objectpool.Caps `yaml:"object_pool_caps" json:"object_pool_caps" envPrefix:"OBJECT_POOL_CAPS_"`
	EvictionWeights EvictionWeights `yaml:"eviction_weights" json:"eviction_weights" envPrefix:"EVICTION_WEIGHTS_"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	w := eviction.DefaultWeights()
	return Config{
		MaxEntries:            500,
		MaxBytes:              256 << 20,
		CleanupThresholdRatio: 0.8,
		MaxConcurrentLoads:    4,
		MaintenanceIntervalMs: 5000,
		SizeNormalizerBytes:   eviction.DefaultSizeNormalizer,
		ObjectPoolCaps:        objectpool.DefaultCaps(),
		EvictionWeights: EvictionWeights{
			Priority:  w.Priority,
			Frequency: w.Frequency,
			Idle:      w.Idle,
			Size:      w.Size,
		},
	}
}

// MaintenanceInterval returns MaintenanceIntervalMs as a duration.
func (c Config) MaintenanceInterval() time.Duration {
	return time.Duration(c.MaintenanceIntervalMs) * time.Millisecond
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("max_entries must be >= 0, got %d", c.MaxEntries))
	}
	if c.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("max_bytes must be >= 0, got %d", c.MaxBytes))
	}
	if c.CleanupThresholdRatio <= 0 || c.CleanupThresholdRatio > 1 {
		errs = append(errs, fmt.Errorf("cleanup_threshold_ratio must be in (0, 1], got %v", c.CleanupThresholdRatio))
	}
	if c.MaxConcurrentLoads < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_loads must be >= 1, got %d", c.MaxConcurrentLoads))
	}
	if c.LoadsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("loads_per_second must be >= 0, got %v", c.LoadsPerSecond))
	}
	if c.MaintenanceIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("maintenance_interval_ms must be >= 0, got %d", c.MaintenanceIntervalMs))
	}
	if c.SizeNormalizerBytes < 0 {
		errs = append(errs, fmt.Errorf("size_normalizer_bytes must be >= 0, got %d", c.SizeNormalizerBytes))
	}
	caps := c.ObjectPoolCaps
	if caps.Sprite < 0 || caps.Animated < 0 || caps.Container < 0 {
		errs = append(errs, fmt.Errorf("object_pool_caps must be >= 0, got %+v", caps))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// LoadConfig reads a YAML file on top of DefaultConfig. ${VAR} references in
// the file are expanded, then RESPOOL_* environment variables override the
// result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
