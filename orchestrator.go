package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// batch is a contiguous slice of the working set. It has no identity beyond
// its sequence number and the record positions it covers.
type batch struct {
	seq     int
	indices []int
	texts   []string
}

// batchOrchestrator drives one tier over an arbitrary-length working set in
// fixed-size batches, merging labels into the shared results table keyed by
// record position and reporting progress after every batch.
type batchOrchestrator struct {
	batchSize int
	workers   int
	timeout   time.Duration
	progress  ProgressFunc
	log       *zap.Logger
}

// makeBatches splits the subset (record positions into records) into batches
// of at most batchSize, preserving input order. The final batch may be short.
func (o *batchOrchestrator) makeBatches(records []Record, subset []int) []batch {
	var batches []batch
	for start := 0; start < len(subset); start += o.batchSize {
		end := start + o.batchSize
		if end > len(subset) {
			end = len(subset)
		}

		indices := subset[start:end]
		texts := make([]string, len(indices))
		for i, idx := range indices {
			texts[i] = records[idx].Text
		}
		batches = append(batches, batch{
			seq:     len(batches),
			indices: indices,
			texts:   texts,
		})
	}
	return batches
}

// runTier processes every batch of the subset through the tier and merges the
// resulting labels into results at their record positions. Tier failures and
// timeouts downgrade the affected batch to the tier's fallback label; they
// never abort the run. Batches run sequentially unless parallel workers are
// configured, in which case merging is mutex-guarded and position-keyed, so
// arrival order cannot change the outcome.
func (o *batchOrchestrator) runTier(ctx context.Context, phase string, tier *cachedTier, records []Record, subset []int, results []Label) {
	batches := o.makeBatches(records, subset)
	if len(batches) == 0 {
		o.reportProgress(phase, 0, 0)
		return
	}

	var mu sync.Mutex
	done := 0

	process := func(b batch) {
		labels := o.classifyBatch(ctx, tier, b)

		mu.Lock()
		for i, idx := range b.indices {
			results[idx] = results[idx].Merge(labels[i])
		}
		done++
		completed := done
		mu.Unlock()

		o.reportProgress(phase, completed, len(batches))
	}

	if o.workers <= 1 {
		for _, b := range batches {
			process(b)
		}
		return
	}

	jobs := make(chan batch)
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				process(b)
			}
		}()
	}
	for _, b := range batches {
		jobs <- b
	}
	close(jobs)
	wg.Wait()
}

// classifyBatch invokes the tier under the per-call timeout and substitutes
// the tier's fallback label for the whole batch on failure
func (o *batchOrchestrator) classifyBatch(ctx context.Context, tier *cachedTier, b batch) []Label {
	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	labels, err := tier.ClassifyBatch(callCtx, b.texts)
	if err != nil {
		tierErr := &TierError{Tier: tier.Name(), Batch: b.seq, Err: err}
		o.log.Warn("tier failed on batch, applying fallback labels",
			zap.String("tier", tier.Name()),
			zap.Int("batch", b.seq),
			zap.Int("batch_size", len(b.texts)),
			zap.Error(tierErr))

		fallback := tier.Fallback()
		labels = make([]Label, len(b.texts))
		for i := range labels {
			labels[i] = fallback
		}
	}
	return labels
}

// reportProgress invokes the injected callback. A nil callback is a no-op
// and a panicking callback must not take the pipeline down with it.
func (o *batchOrchestrator) reportProgress(phase string, done, total int) {
	if o.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("progress callback panicked", zap.Any("panic", r))
		}
	}()

	fraction := 1.0
	if total > 0 {
		fraction = float64(done) / float64(total)
	}
	o.progress(fmt.Sprintf("%s: batch %d/%d", phase, done, total), fraction)
}
