package main

import (
	"fmt"
	"strings"
	"time"

	classifier "github.com/FrenchMajesty/tiered-classifier"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CLASSIFIER_"

// envConfig mirrors the pipeline options that can be set from the
// environment. Example: CLASSIFIER_BATCH_SIZE=100, CLASSIFIER_MODE=precise.
type envConfig struct {
	Mode           string        `koanf:"mode"`
	BatchSize      int           `koanf:"batch_size"`
	Workers        int           `koanf:"workers"`
	CacheDir       string        `koanf:"cache_dir"`
	SampleBudget   int           `koanf:"sample_budget"`
	SampleFraction float64       `koanf:"sample_fraction"`
	TierTimeout    time.Duration `koanf:"tier_timeout"`
	LLMModel       string        `koanf:"llm_model"`
	LLMRateLimit   float64       `koanf:"llm_rate_limit"`
}

// loadEnvConfig reads CLASSIFIER_* environment variables into an envConfig
func loadEnvConfig() (envConfig, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// CLASSIFIER_BATCH_SIZE -> batch_size
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return envConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg envConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return envConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// pipelineConfig translates the environment config into a classifier.Config
func (c envConfig) pipelineConfig() classifier.Config {
	return classifier.Config{
		Mode:           classifier.Mode(c.Mode),
		BatchSize:      c.BatchSize,
		Workers:        c.Workers,
		CacheDir:       c.CacheDir,
		SampleBudget:   c.SampleBudget,
		SampleFraction: c.SampleFraction,
		TierTimeout:    c.TierTimeout,
	}
}
