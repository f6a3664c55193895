package classifier

import (
	"context"
	"encoding/json"

	"github.com/FrenchMajesty/tiered-classifier/cache"
	"go.uber.org/zap"
)

// cachedTier wraps a Tier with content-addressed result caching. For every
// text it derives the cache key, serves hits from the store and submits only
// the distinct misses to the underlying tier, writing fresh results back
// before merging everything in the original order. Duplicate texts inside one
// batch collapse onto a single tier submission and count as hits.
type cachedTier struct {
	tier    Tier
	store   CacheStore
	metrics *MetricsCollector
	log     *zap.Logger
}

func newCachedTier(tier Tier, store CacheStore, metrics *MetricsCollector, log *zap.Logger) *cachedTier {
	return &cachedTier{
		tier:    tier,
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

func (c *cachedTier) Name() string { return c.tier.Name() }

func (c *cachedTier) Fallback() Label { return c.tier.Fallback() }

// ClassifyBatch looks every text up in the cache and invokes the underlying
// tier only for the distinct misses. If the tier fails, the error is returned
// for the whole batch; cache lookups are still accounted for.
func (c *cachedTier) ClassifyBatch(ctx context.Context, texts []string) ([]Label, error) {
	labels := make([]Label, len(texts))
	keys := make([]string, len(texts))

	missPos := make(map[string]int) // key -> position in missTexts
	var missTexts []string
	var missIdx []int
	hits := 0

	for i, text := range texts {
		keys[i] = cache.Key(c.tier.Name(), c.tier.Version(), text)

		raw, ok := c.store.Get(keys[i])
		if ok {
			var label Label
			if err := json.Unmarshal(raw, &label); err == nil {
				labels[i] = label
				hits++
				continue
			}
			// Corrupt entry: treat as a miss and overwrite it below
			c.log.Warn("corrupt cache entry, re-classifying",
				zap.String("tier", c.tier.Name()),
				zap.String("key", keys[i]))
		}

		if _, pending := missPos[keys[i]]; pending {
			// Same text earlier in this batch; it will be served by that
			// submission's result
			hits++
		} else {
			missPos[keys[i]] = len(missTexts)
			missTexts = append(missTexts, text)
		}
		missIdx = append(missIdx, i)
	}

	c.metrics.RecordCacheLookups(hits, len(missTexts))

	if len(missTexts) == 0 {
		return labels, nil
	}

	c.metrics.RecordTierCalls(c.tier.Name(), len(missTexts))

	fresh, err := c.tier.ClassifyBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, errLabelCountMismatch(len(fresh), len(missTexts))
	}

	for j, text := range missTexts {
		key := cache.Key(c.tier.Name(), c.tier.Version(), text)
		if data, err := json.Marshal(fresh[j]); err == nil {
			c.store.Put(key, data)
		}
	}
	for _, i := range missIdx {
		labels[i] = fresh[missPos[keys[i]]]
	}

	return labels, nil
}
