package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Workload sources
const (
	SourceRandom = "random"
	SourceFile   = "file"
)

// Config represents the complete configuration of a simulation run
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Flush      FlushConfig      `yaml:"flush"`
	Workload   WorkloadConfig   `yaml:"workload"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds the cluster shape and workload size
type SimulationConfig struct {
	Nodes             int   `yaml:"nodes"`
	ReplicationFactor int   `yaml:"replication_factor"`
	Tablets           int   `yaml:"tablets"`
	// nil takes the default; 0 is an empty run
	Records           *int  `yaml:"records"`
	MaxPartitionKey   int64 `yaml:"max_partition_key"`
	MemTableSizeMin   int   `yaml:"memtable_size_min"`
	MemTableSizeMax   int   `yaml:"memtable_size_max"`
	PartitionSizeMin  int   `yaml:"partition_size_min"`
	PartitionSizeMax  int   `yaml:"partition_size_max"`
	Seed              int64 `yaml:"seed"`
	Workers           int   `yaml:"workers"`
}

// FlushConfig holds the flush threshold configuration
type FlushConfig struct {
	LowWatermark float64 `yaml:"low_watermark"`
}

// WorkloadConfig selects where mutations come from
type WorkloadConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
	Hold    bool   `yaml:"hold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Simulation.Nodes == 0 {
		cfg.Simulation.Nodes = 5
	}
	if cfg.Simulation.ReplicationFactor == 0 {
		cfg.Simulation.ReplicationFactor = 3
	}
	if cfg.Simulation.Tablets == 0 {
		cfg.Simulation.Tablets = 8
	}
	if cfg.Simulation.Records == nil {
		records := 37 * 1024
		cfg.Simulation.Records = &records
	}
	if cfg.Simulation.MaxPartitionKey == 0 {
		cfg.Simulation.MaxPartitionKey = 2048
	}
	if cfg.Simulation.MemTableSizeMin == 0 {
		cfg.Simulation.MemTableSizeMin = 500
	}
	if cfg.Simulation.MemTableSizeMax == 0 {
		cfg.Simulation.MemTableSizeMax = 600
	}
	if cfg.Simulation.PartitionSizeMin == 0 {
		cfg.Simulation.PartitionSizeMin = 1
	}
	if cfg.Simulation.PartitionSizeMax == 0 {
		cfg.Simulation.PartitionSizeMax = 16
	}

	if cfg.Flush.LowWatermark == 0 {
		cfg.Flush.LowWatermark = 0.90
	}

	if cfg.Workload.Source == "" {
		cfg.Workload.Source = SourceRandom
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9095
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Nodes < 1 {
		return fmt.Errorf("simulation.nodes must be positive")
	}
	if s.ReplicationFactor < 1 {
		return fmt.Errorf("simulation.replication_factor must be positive")
	}
	if s.ReplicationFactor > s.Nodes {
		return fmt.Errorf("simulation.replication_factor (%d) exceeds simulation.nodes (%d)",
			s.ReplicationFactor, s.Nodes)
	}
	if s.Tablets < 1 {
		return fmt.Errorf("simulation.tablets must be positive")
	}
	if s.MaxPartitionKey < 1 {
		return fmt.Errorf("simulation.max_partition_key must be positive")
	}
	// keys are drawn from [0, max_partition_key], a range of max_partition_key+1 values
	if s.MaxPartitionKey == math.MaxInt64 {
		return fmt.Errorf("simulation.max_partition_key must be below %d", int64(math.MaxInt64))
	}
	// the random bounds are drawn without repetition from [1, max_partition_key-2]
	if int64(s.Tablets-1) > max(s.MaxPartitionKey-2, 0) {
		return fmt.Errorf("simulation.tablets (%d) does not fit in a key space of %d",
			s.Tablets, s.MaxPartitionKey)
	}
	if s.Records == nil || *s.Records < 0 {
		return fmt.Errorf("simulation.records cannot be negative")
	}
	if s.MemTableSizeMin < 1 || s.MemTableSizeMax < s.MemTableSizeMin {
		return fmt.Errorf("simulation.memtable_size_min/max must satisfy 1 <= min <= max")
	}
	if s.PartitionSizeMin < 0 || s.PartitionSizeMax < s.PartitionSizeMin {
		return fmt.Errorf("simulation.partition_size_min/max must satisfy 0 <= min <= max")
	}
	if s.Workers < 0 {
		return fmt.Errorf("simulation.workers cannot be negative")
	}
	if c.Flush.LowWatermark <= 0 || c.Flush.LowWatermark > 1 {
		return fmt.Errorf("flush.low_watermark must be in (0, 1]")
	}
	switch c.Workload.Source {
	case SourceRandom:
	case SourceFile:
		if c.Workload.Path == "" {
			return fmt.Errorf("workload.path is required when workload.source is %q", SourceFile)
		}
	default:
		return fmt.Errorf("workload.source must be %q or %q", SourceRandom, SourceFile)
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	return nil
}
