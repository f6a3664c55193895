// Package classifier implements a tiered, cache-aware batch classification
// pipeline for short support texts. Work is routed across classifiers of
// increasing cost (deterministic rules, a local sentiment model, a remote
// LLM) with content-addressed caching, fixed-size batching and strategic
// sub-sampling of the expensive tier.
package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/FrenchMajesty/tiered-classifier/cache"
	"go.uber.org/zap"
)

// Pipeline composes the tiers, the cache and the orchestrator into a single
// classify call. One pipeline can serve many runs; each run gets its own
// metrics collector so concurrent runs never corrupt each other's counters.
type Pipeline struct {
	cfg   Config
	rule  Tier
	model Tier
	llm   Tier

	store      CacheStore
	ownedStore *cache.Store
	log        *zap.Logger

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closing   bool
}

// NewPipeline creates a Pipeline from the given configuration. Configuration
// mistakes are the only errors this package surfaces; everything at run time
// is recovered with fallback labels.
func NewPipeline(cfg Config) (*Pipeline, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:   cfg,
		rule:  cfg.Rule,
		model: cfg.Model,
		llm:   cfg.LLM,
		store: cfg.Cache,
		log:   cfg.Logger,
	}

	if p.rule == nil {
		p.rule = NewRuleTier()
	}
	if p.model == nil {
		p.model = NewModelTier()
	}
	if p.llm == nil {
		p.llm = NewDefaultLLMTier()
	}

	if p.store == nil {
		store, err := cache.Open(cache.Options{
			Dir:    cfg.CacheDir,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		p.store = store
		p.ownedStore = store
	}

	return p, nil
}

// ClassifyCollection runs every record through the tier cascade and returns
// the enriched copy plus the run's metrics. mode overrides the configured
// mode when non-empty. The input is never mutated and the output preserves
// its order and length exactly. Partial tier failures are absorbed; the only
// returned errors are an invalid mode or a pipeline that was already closed.
func (p *Pipeline) ClassifyCollection(ctx context.Context, records []Record, mode Mode) ([]LabeledRecord, *BenchmarkMetrics, error) {
	p.closeMu.RLock()
	if p.closing {
		p.closeMu.RUnlock()
		return nil, nil, fmt.Errorf("pipeline is closed")
	}
	p.closeMu.RUnlock()

	if mode == "" {
		mode = p.cfg.Mode
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, nil, err
	}

	metrics := NewMetricsCollector(len(records))
	results := make([]Label, len(records))

	cheap := &batchOrchestrator{
		batchSize: p.cfg.BatchSize,
		workers:   p.cfg.Workers,
		timeout:   p.cfg.TierTimeout,
		progress:  p.cfg.Progress,
		log:       p.log,
	}
	// The LLM tier is dispatched strictly sequentially regardless of the
	// worker setting; its cost profile is dominated by the remote call.
	expensive := &batchOrchestrator{
		batchSize: p.cfg.BatchSize,
		workers:   1,
		timeout:   p.cfg.TierTimeout,
		progress:  p.cfg.Progress,
		log:       p.log,
	}

	allIdx := make([]int, len(records))
	for i := range allIdx {
		allIdx[i] = i
	}

	// Cheap phase: rules then the local model, over the full set in all modes
	stop := metrics.StartPhase("rule-tier")
	cheap.runTier(ctx, "rule-tier", newCachedTier(p.rule, p.store, metrics, p.log), records, allIdx, results)
	stop()

	stop = metrics.StartPhase("model-tier")
	cheap.runTier(ctx, "model-tier", newCachedTier(p.model, p.store, metrics, p.log), records, allIdx, results)
	stop()

	// Sampling phase narrows the working set before the expensive tier
	var llmSubset []int
	switch mode {
	case ModeFast:
		// LLM tier skipped entirely
	case ModeBalanced:
		stop = metrics.StartPhase("sampling")
		sampler := NewStrategicSampler(p.cfg.budgetFor(len(records)), p.cfg.SamplerSeed)
		llmSubset = sampler.Sample(results)
		stop()
	case ModePrecise:
		llmSubset = allIdx
	}

	// Expensive phase
	if len(llmSubset) > 0 {
		stop = metrics.StartPhase("llm-tier")
		expensive.runTier(ctx, "llm-tier", newCachedTier(p.llm, p.store, metrics, p.log), records, llmSubset, results)
		stop()
	}

	// Finalize: every record leaves with a complete label, falling back to
	// neutral defaults for fields no tier managed to set
	stop = metrics.StartPhase("finalize")
	labeled := make([]LabeledRecord, len(records))
	for i, record := range records {
		labeled[i] = LabeledRecord{
			Record: record,
			Label:  finalizeLabel(results[i]),
		}
	}
	stop()

	return labeled, metrics.Finalize(), nil
}

// finalizeLabel fills the gaps a failed or skipped tier left behind
func finalizeLabel(l Label) Label {
	if l.Sentiment == "" {
		l.Sentiment = SentimentNeutral
	}
	if l.Topic == "" {
		l.Topic = "general"
	}
	if l.Urgency == "" {
		l.Urgency = UrgencyLow
	}
	if l.IsClaim == nil {
		l.IsClaim = BoolPtr(false)
	}
	if l.Confidence == 0 {
		l.Confidence = DefaultConfidence
	}
	return l
}

// CacheStats reports the effectiveness counters of the pipeline-owned cache.
// It returns zero stats when the caller supplied its own store.
func (p *Pipeline) CacheStats() cache.Stats {
	if p.ownedStore == nil {
		return cache.Stats{}
	}
	return p.ownedStore.Stats()
}

// Close releases the pipeline-owned cache. A caller-supplied cache is left
// untouched. Safe to call multiple times.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closeMu.Lock()
		p.closing = true
		p.closeMu.Unlock()

		if p.ownedStore != nil {
			err = p.ownedStore.Close()
		}
	})
	return err
}
