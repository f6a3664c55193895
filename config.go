package classifier

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBatchSize is the number of records per batch
	DefaultBatchSize = 50

	// DefaultCacheDir is the default location for the durable cache
	DefaultCacheDir = "./classifier_cache"

	// DefaultSampleFraction is the share of records promoted to the LLM tier
	// in balanced mode when no absolute budget is configured
	DefaultSampleFraction = 0.1

	// DefaultTierTimeout bounds a single tier invocation over one batch
	DefaultTierTimeout = 30 * time.Second

	// DefaultSamplerSeed keeps balanced-mode runs reproducible
	DefaultSamplerSeed = 1
)

// Config holds configuration for the Pipeline
type Config struct {
	// Mode controls LLM tier usage. If empty, defaults to ModeBalanced.
	Mode Mode

	// BatchSize is the number of records processed per batch. If 0, uses DefaultBatchSize.
	BatchSize int

	// Workers bounds parallel batch dispatch for the cheap tiers. If <= 1,
	// batches run strictly sequentially. The LLM tier is always sequential.
	Workers int

	// CacheDir is where the durable cache lives. Only used when Cache is nil.
	CacheDir string

	// Cache is the result cache. If nil, a two-level store is opened at CacheDir
	// and owned (closed) by the pipeline.
	Cache CacheStore

	// SampleBudget is the absolute cap of records promoted to the LLM tier in
	// balanced mode. If 0, SampleFraction of the input is used instead.
	SampleBudget int

	// SampleFraction is the fractional budget used when SampleBudget is 0.
	// If 0, uses DefaultSampleFraction.
	SampleFraction float64

	// SamplerSeed seeds the random fill stage of the sampler. If 0, uses
	// DefaultSamplerSeed.
	SamplerSeed int64

	// TierTimeout bounds one tier call over one batch. If 0, uses DefaultTierTimeout.
	TierTimeout time.Duration

	// Rule, Model and LLM override the built-in tiers. Nil fields get defaults;
	// the default LLM tier defers client construction (and the OPENAI_API_KEY
	// lookup) until its first call.
	Rule  Tier
	Model Tier
	LLM   Tier

	// Progress is invoked after every batch in every phase. May be nil.
	Progress ProgressFunc

	// Logger receives pipeline logs. If nil, logging is disabled.
	Logger *zap.Logger
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeBalanced
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.SampleFraction == 0 {
		c.SampleFraction = DefaultSampleFraction
	}
	if c.SamplerSeed == 0 {
		c.SamplerSeed = DefaultSamplerSeed
	}
	if c.TierTimeout == 0 {
		c.TierTimeout = DefaultTierTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// validate rejects configuration mistakes before any work begins
func (c *Config) validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.SampleBudget < 0 {
		return fmt.Errorf("%w: sample budget must not be negative, got %d", ErrInvalidConfig, c.SampleBudget)
	}
	if c.SampleFraction < 0 || c.SampleFraction > 1 {
		return fmt.Errorf("%w: sample fraction must be in [0,1], got %g", ErrInvalidConfig, c.SampleFraction)
	}
	if c.TierTimeout < 0 {
		return fmt.Errorf("%w: tier timeout must not be negative, got %s", ErrInvalidConfig, c.TierTimeout)
	}
	return nil
}

// budgetFor resolves the sampling budget for an input of n records
func (c *Config) budgetFor(n int) int {
	if c.SampleBudget > 0 {
		return c.SampleBudget
	}
	budget := int(float64(n) * c.SampleFraction)
	if budget < 1 && n > 0 {
		budget = 1
	}
	return budget
}
