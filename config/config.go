package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Noofbiz/graspData/datasets"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all graspdata configuration.
type Config struct {
	Reader   ReaderConfig   `yaml:"reader"`
	Sampling SamplingConfig `yaml:"sampling"`
	Training TrainingConfig `yaml:"training"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ReaderConfig selects the shards to walk.
type ReaderConfig struct {
	Root           string `yaml:"root"`
	NumHooks       int    `yaml:"num_hooks"`
	Shape          string `yaml:"shape"`
	BadGrasps      bool   `yaml:"bad_grasps"`
	StartDir       int    `yaml:"start_dir"`
	StartFile      int    `yaml:"start_file"`
	EndDir         int    `yaml:"end_dir"`
	EndFile        int    `yaml:"end_file"`
	RecordsPerFile int    `yaml:"records_per_file"`
	CacheShards    int    `yaml:"cache_shards"`
	Seed           int64  `yaml:"seed"` // 0 = time based
}

// SamplingConfig configures random batches.
type SamplingConfig struct {
	BatchSize       int     `yaml:"batch_size"`
	GoodFraction    float64 `yaml:"good_fraction"`
	BatchesPerShard int     `yaml:"batches_per_shard"`
}

// TrainingConfig configures the grasp classifier.
type TrainingConfig struct {
	HiddenSizes   []int   `yaml:"hidden_sizes"`
	LearningRate  float64 `yaml:"learning_rate"`
	Epochs        int     `yaml:"epochs"`
	StepsPerEpoch int     `yaml:"steps_per_epoch"`
	Seed          int64   `yaml:"seed"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	rd := datasets.DefaultReaderConfig("SG_data")
	return &Config{
		Reader: ReaderConfig{
			Root:           rd.Root,
			NumHooks:       rd.NumHooks,
			Shape:          rd.Shape,
			BadGrasps:      true,
			StartDir:       rd.StartDir,
			StartFile:      rd.StartFile,
			EndDir:         rd.EndDir,
			EndFile:        rd.EndFile,
			RecordsPerFile: rd.RecordsPerFile,
		},
		Sampling: SamplingConfig{
			BatchSize:    256,
			GoodFraction: 0.5,
		},
		Training: TrainingConfig{
			HiddenSizes:   []int{64, 32},
			LearningRate:  0.01,
			Epochs:        10,
			StepsPerEpoch: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if root := os.Getenv("GRASPDATA_ROOT"); root != "" {
		c.Reader.Root = root
	}
	if hooks := os.Getenv("GRASPDATA_NUM_HOOKS"); hooks != "" {
		n, err := strconv.Atoi(hooks)
		if err != nil {
			return fmt.Errorf("invalid GRASPDATA_NUM_HOOKS %q: %w", hooks, err)
		}
		c.Reader.NumHooks = n
	}
	if level := os.Getenv("GRASPDATA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate checks the configuration without touching the dataset.
func (c *Config) Validate() error {
	if err := c.ReaderConfig(nil).Validate(); err != nil {
		return err
	}
	if c.Sampling.BatchSize <= 0 {
		return fmt.Errorf("sampling.batch_size must be positive, got %d", c.Sampling.BatchSize)
	}
	if math.IsNaN(c.Sampling.GoodFraction) || c.Sampling.GoodFraction < 0 || c.Sampling.GoodFraction > 1 {
		return fmt.Errorf("sampling.good_fraction must be within [0, 1], got %v", c.Sampling.GoodFraction)
	}
	if c.Sampling.BatchesPerShard < 0 {
		return fmt.Errorf("sampling.batches_per_shard must not be negative, got %d", c.Sampling.BatchesPerShard)
	}
	if c.Training.Epochs <= 0 {
		return fmt.Errorf("training.epochs must be positive, got %d", c.Training.Epochs)
	}
	if c.Training.StepsPerEpoch <= 0 {
		return fmt.Errorf("training.steps_per_epoch must be positive, got %d", c.Training.StepsPerEpoch)
	}
	if math.IsNaN(c.Training.LearningRate) || c.Training.LearningRate < 0 {
		return fmt.Errorf("training.learning_rate must not be negative, got %v", c.Training.LearningRate)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ReaderConfig converts the reader section for datasets.NewShardedReader.
func (c *Config) ReaderConfig(logger *zap.Logger) datasets.ReaderConfig {
	r := c.Reader
	return datasets.ReaderConfig{
		Root:           r.Root,
		NumHooks:       r.NumHooks,
		Shape:          r.Shape,
		BadGrasps:      r.BadGrasps,
		StartDir:       r.StartDir,
		StartFile:      r.StartFile,
		EndDir:         r.EndDir,
		EndFile:        r.EndFile,
		RecordsPerFile: r.RecordsPerFile,
		CacheShards:    r.CacheShards,
		Seed:           r.Seed,
		Logger:         logger,
	}
}
