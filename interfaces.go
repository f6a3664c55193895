package classifier

import "context"

// Tier classifies a batch of texts. Implementations must return exactly one
// label per input text, aligned by position. A tier that cannot label a batch
// returns an error; the orchestrator substitutes the tier's fallback label
// for every record in that batch.
type Tier interface {
	// Name identifies the tier in cache keys, metrics phases and logs
	Name() string

	// Version participates in cache keys so a changed tier starts cold
	Version() string

	// ClassifyBatch labels texts in order. It must honor ctx cancellation.
	ClassifyBatch(ctx context.Context, texts []string) ([]Label, error)

	// Fallback is the label applied to a whole batch when the tier fails.
	// A zero Label means "leave earlier tiers' values in place".
	Fallback() Label
}

// CacheStore is the content-addressed result cache consumed by the pipeline.
// Implementations must be safe for concurrent use.
type CacheStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
}

// ProgressFunc receives a human-readable status and a completion fraction in
// [0,1] after every processed batch. It may be nil.
type ProgressFunc func(message string, fraction float64)
