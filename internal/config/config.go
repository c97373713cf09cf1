// Package config provides the configuration surface consumed by the
// flowlens pipeline. Every pipeline parameter is an explicit input; the
// pipeline itself reads no environment and no globals.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration for a flowlens run.
type Config struct {
	// VantagePoints are the observation points contributing batches.
	VantagePoints []string `yaml:"vantage_points"`

	// SeedLabels optionally assigns a ground-truth label to a vantage
	// point's sample; everything else starts as unknown.
	SeedLabels map[string]int `yaml:"seed_labels"`

	// InputDir holds one <vantage_point>.ndjson record file per batch.
	InputDir string `yaml:"input_dir"`

	Clustering ClusteringConfig `yaml:"clustering"`
	Refiner    RefinerConfig    `yaml:"refiner"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Training   TrainingConfig   `yaml:"training"`
	Anomaly    AnomalyConfig    `yaml:"anomaly"`

	// Seed drives every randomized stage (embedding, spectral
	// clustering, training). Identical inputs and an identical seed
	// reproduce identical outputs.
	Seed int64 `yaml:"seed"`

	// DatabaseURL enables the PostgreSQL store; empty keeps results in
	// memory only.
	DatabaseURL string `yaml:"database_url"`

	// RedisURL enables publishing the run handoff for visualization.
	RedisURL string `yaml:"redis_url"`

	// MetricsListen enables the Prometheus endpoint, e.g. ":9209".
	MetricsListen string `yaml:"metrics_listen"`
}

// ClusteringConfig parameterizes the clustering ensemble.
type ClusteringConfig struct {
	Epsilon    float64 `yaml:"epsilon"`
	MinSamples int     `yaml:"min_samples"`
	KClusters  int     `yaml:"k_clusters"`
}

// RefinerConfig parameterizes semi-supervised label propagation.
type RefinerConfig struct {
	Alpha      float64 `yaml:"alpha"`
	KNeighbors int     `yaml:"k_neighbors"`
}

// EmbeddingConfig parameterizes the manifold embedding.
type EmbeddingConfig struct {
	Neighbors int     `yaml:"neighbors"`
	MinDist   float64 `yaml:"min_dist"`
}

// TrainingConfig parameterizes reconstruction-model training.
type TrainingConfig struct {
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	HiddenSize   int     `yaml:"hidden_size"`
}

// AnomalyConfig parameterizes adaptive thresholding.
type AnomalyConfig struct {
	// Multiplier is k in mean + k*std.
	Multiplier float64 `yaml:"multiplier"`
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		InputDir: "data",
		Clustering: ClusteringConfig{
			Epsilon:    0.9,
			MinSamples: 2,
			KClusters:  2,
		},
		Refiner: RefinerConfig{
			Alpha:      0.8,
			KNeighbors: 3,
		},
		Embedding: EmbeddingConfig{
			Neighbors: 5,
			MinDist:   0.1,
		},
		Training: TrainingConfig{
			Epochs:       200,
			LearningRate: 0.01,
			HiddenSize:   4,
		},
		Anomaly: AnomalyConfig{
			Multiplier: 2.5,
		},
		Seed: 42,
	}
}

// Load reads a YAML config file over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnvOrDefault("FLOWLENS_DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnvOrDefault("FLOWLENS_REDIS_URL", cfg.RedisURL)
	cfg.InputDir = getEnvOrDefault("FLOWLENS_INPUT_DIR", cfg.InputDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field the pipeline depends on.
func (c *Config) Validate() error {
	if c.Clustering.Epsilon <= 0 {
		return &ConfigError{Field: "clustering.epsilon", Reason: "must be positive"}
	}
	if c.Clustering.MinSamples < 1 {
		return &ConfigError{Field: "clustering.min_samples", Reason: "must be at least 1"}
	}
	if c.Clustering.KClusters < 1 {
		return &ConfigError{Field: "clustering.k_clusters", Reason: "must be at least 1"}
	}
	if c.Refiner.Alpha < 0 || c.Refiner.Alpha >= 1 {
		return &ConfigError{Field: "refiner.alpha", Reason: "must be in [0, 1)"}
	}
	if c.Refiner.KNeighbors < 1 {
		return &ConfigError{Field: "refiner.k_neighbors", Reason: "must be at least 1"}
	}
	if c.Embedding.Neighbors < 1 {
		return &ConfigError{Field: "embedding.neighbors", Reason: "must be at least 1"}
	}
	if c.Training.Epochs < 1 {
		return &ConfigError{Field: "training.epochs", Reason: "must be at least 1"}
	}
	if c.Training.LearningRate <= 0 {
		return &ConfigError{Field: "training.learning_rate", Reason: "must be positive"}
	}
	if c.Training.HiddenSize < 1 {
		return &ConfigError{Field: "training.hidden_size", Reason: "must be at least 1"}
	}
	if c.Anomaly.Multiplier < 0 {
		return &ConfigError{Field: "anomaly.multiplier", Reason: "must be non-negative"}
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
