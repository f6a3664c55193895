package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/FrenchMajesty/tiered-classifier/cache"
	"go.uber.org/zap"
)

// recordingTier remembers exactly which texts were submitted to it
type recordingTier struct {
	stubTier
	submitted [][]string
}

func newRecordingTier(name string) *recordingTier {
	r := &recordingTier{}
	r.name = name
	r.fn = func(ctx context.Context, texts []string) ([]Label, error) {
		copied := make([]string, len(texts))
		copy(copied, texts)
		r.submitted = append(r.submitted, copied)

		labels := make([]Label, len(texts))
		for i, text := range texts {
			labels[i] = Label{Topic: text, Source: name}
		}
		return labels, nil
	}
	return r
}

// TestCachedTier_OnlyMissesSubmitted tests that cached texts are never
// re-submitted to the underlying tier
func TestCachedTier_OnlyMissesSubmitted(t *testing.T) {
	store := newMapStore()
	tier := newRecordingTier("rec")

	// Pre-populate the store with a result for "alpha"
	key := cache.Key("rec", "v-test", "alpha")
	cached, _ := json.Marshal(Label{Topic: "cached-alpha", Source: "rec"})
	store.Put(key, cached)

	metrics := NewMetricsCollector(3)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	labels, err := ct.ClassifyBatch(context.Background(), []string{"alpha", "beta", "alpha"})
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}

	if len(tier.submitted) != 1 || len(tier.submitted[0]) != 1 || tier.submitted[0][0] != "beta" {
		t.Fatalf("expected only the miss to be submitted, got %v", tier.submitted)
	}

	// Hits must come from the cache, and order must be preserved
	if labels[0].Topic != "cached-alpha" || labels[2].Topic != "cached-alpha" {
		t.Errorf("cached labels not served in place: %+v", labels)
	}
	if labels[1].Topic != "beta" {
		t.Errorf("fresh label out of position: %+v", labels[1])
	}
}

// TestCachedTier_DuplicatesCollapse tests that identical texts inside one
// batch produce a single tier submission
func TestCachedTier_DuplicatesCollapse(t *testing.T) {
	store := newMapStore()
	tier := newRecordingTier("rec")
	metrics := NewMetricsCollector(4)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	texts := []string{"same", "same", "same", "same"}
	labels, err := ct.ClassifyBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}

	if len(tier.submitted) != 1 || len(tier.submitted[0]) != 1 {
		t.Fatalf("expected one submission of one text, got %v", tier.submitted)
	}
	for i, label := range labels {
		if label.Topic != "same" {
			t.Fatalf("position %d: expected duplicated result, got %+v", i, label)
		}
	}

	bm := metrics.Finalize()
	if bm.CacheHits != 3 || bm.CacheMisses != 1 {
		t.Errorf("expected 3 hits / 1 miss, got %d / %d", bm.CacheHits, bm.CacheMisses)
	}
}

// TestCachedTier_WritesBack tests that fresh results are persisted
func TestCachedTier_WritesBack(t *testing.T) {
	store := newMapStore()
	tier := newRecordingTier("rec")
	metrics := NewMetricsCollector(2)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	if _, err := ct.ClassifyBatch(context.Background(), []string{"one", "two"}); err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}

	for _, text := range []string{"one", "two"} {
		key := cache.Key("rec", "v-test", text)
		raw, ok := store.Get(key)
		if !ok {
			t.Fatalf("expected %q to be written back", text)
		}
		var label Label
		if err := json.Unmarshal(raw, &label); err != nil {
			t.Fatalf("stored entry for %q is not valid JSON: %v", text, err)
		}
		if label.Topic != text {
			t.Errorf("stored label mismatch for %q: %+v", text, label)
		}
	}
}

// TestCachedTier_CorruptEntryReclassified tests that a malformed cache entry
// is treated as a miss and overwritten
func TestCachedTier_CorruptEntryReclassified(t *testing.T) {
	store := newMapStore()
	tier := newRecordingTier("rec")

	key := cache.Key("rec", "v-test", "garbled")
	store.Put(key, []byte("{not json"))

	metrics := NewMetricsCollector(1)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	labels, err := ct.ClassifyBatch(context.Background(), []string{"garbled"})
	if err != nil {
		t.Fatalf("ClassifyBatch failed: %v", err)
	}
	if labels[0].Topic != "garbled" {
		t.Fatalf("expected re-classification, got %+v", labels[0])
	}

	raw, ok := store.Get(key)
	if !ok {
		t.Fatal("expected corrupt entry to be overwritten")
	}
	var label Label
	if err := json.Unmarshal(raw, &label); err != nil {
		t.Fatalf("overwritten entry still corrupt: %v", err)
	}
}

// TestCachedTier_ErrorPropagates tests that a tier failure surfaces for the
// whole batch
func TestCachedTier_ErrorPropagates(t *testing.T) {
	store := newMapStore()
	tier := &stubTier{
		name: "err",
		fn: func(ctx context.Context, texts []string) ([]Label, error) {
			return nil, errors.New("boom")
		},
	}

	metrics := NewMetricsCollector(2)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	if _, err := ct.ClassifyBatch(context.Background(), []string{"x", "y"}); err == nil {
		t.Fatal("expected error from failing tier")
	}

	// Lookups still count even when the tier fails
	bm := metrics.Finalize()
	if bm.CacheHits+bm.CacheMisses != 2 {
		t.Errorf("expected 2 lookups recorded, got %d", bm.CacheHits+bm.CacheMisses)
	}
}

// TestCachedTier_LengthMismatch tests that a misaligned tier response is an error
func TestCachedTier_LengthMismatch(t *testing.T) {
	store := newMapStore()
	tier := &stubTier{
		name: "short",
		fn: func(ctx context.Context, texts []string) ([]Label, error) {
			return make([]Label, len(texts)-1), nil
		},
	}

	metrics := NewMetricsCollector(2)
	ct := newCachedTier(tier, store, metrics, zap.NewNop())

	if _, err := ct.ClassifyBatch(context.Background(), []string{"x", "y"}); err == nil {
		t.Fatal("expected error for label count mismatch")
	}
}
