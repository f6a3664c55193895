package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MetricsCollector accumulates performance counters for one pipeline run.
// One collector is created per invocation; concurrent runs never share one.
type MetricsCollector struct {
	mu          sync.Mutex
	runID       string
	start       time.Time
	phases      map[string]time.Duration
	cacheHits   int
	cacheMisses int
	tierCalls   map[string]int
	total       int
}

// NewMetricsCollector starts the run clock
func NewMetricsCollector(totalRecords int) *MetricsCollector {
	return &MetricsCollector{
		runID:     uuid.New().String(),
		start:     time.Now(),
		phases:    make(map[string]time.Duration),
		tierCalls: make(map[string]int),
		total:     totalRecords,
	}
}

// StartPhase begins timing a named phase and returns its stop function.
// Phases are recorded even when the tier behind them partially fails.
func (m *MetricsCollector) StartPhase(name string) func() {
	phaseStart := time.Now()
	return func() {
		elapsed := time.Since(phaseStart)
		m.mu.Lock()
		m.phases[name] += elapsed
		m.mu.Unlock()
	}
}

// RecordCacheLookups adds per-text cache results for one batch
func (m *MetricsCollector) RecordCacheLookups(hits, misses int) {
	m.mu.Lock()
	m.cacheHits += hits
	m.cacheMisses += misses
	m.mu.Unlock()
}

// RecordTierCalls counts texts actually submitted to a tier (cache misses)
func (m *MetricsCollector) RecordTierCalls(tier string, n int) {
	m.mu.Lock()
	m.tierCalls[tier] += n
	m.mu.Unlock()
}

// Finalize freezes the collector into an immutable BenchmarkMetrics. The
// memory footprint is a point-in-time heap sample, not a high-water mark.
func (m *MetricsCollector) Finalize() *BenchmarkMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	elapsed := time.Since(m.start)
	phases := make(map[string]time.Duration, len(m.phases))
	for k, v := range m.phases {
		phases[k] = v
	}
	tierCalls := make(map[string]int, len(m.tierCalls))
	for k, v := range m.tierCalls {
		tierCalls[k] = v
	}

	var rps float64
	if elapsed > 0 {
		rps = float64(m.total) / elapsed.Seconds()
	}

	return &BenchmarkMetrics{
		RunID:            m.runID,
		TotalRecords:     m.total,
		TotalDuration:    elapsed,
		PhaseDurations:   phases,
		CacheHits:        m.cacheHits,
		CacheMisses:      m.cacheMisses,
		TierCalls:        tierCalls,
		HeapAllocBytes:   mem.HeapAlloc,
		RecordsPerSecond: rps,
	}
}

// BenchmarkMetrics is the frozen performance report of one pipeline run
type BenchmarkMetrics struct {
	RunID            string
	TotalRecords     int
	TotalDuration    time.Duration
	PhaseDurations   map[string]time.Duration
	CacheHits        int
	CacheMisses      int
	TierCalls        map[string]int
	HeapAllocBytes   uint64
	RecordsPerSecond float64
}

// Report is the flat, serializable form of BenchmarkMetrics: durations in
// rounded seconds, hit rate as a percentage.
type Report struct {
	RunID            string             `json:"run_id"`
	TotalRecords     int                `json:"total_records"`
	TotalSeconds     float64            `json:"total_seconds"`
	PhaseSeconds     map[string]float64 `json:"phase_seconds"`
	CacheHits        int                `json:"cache_hits"`
	CacheMisses      int                `json:"cache_misses"`
	CacheHitRatePct  float64            `json:"cache_hit_rate_pct"`
	TierCalls        map[string]int     `json:"tier_calls"`
	HeapAllocMB      float64            `json:"heap_alloc_mb"`
	RecordsPerSecond float64            `json:"records_per_second"`
}

// Report derives the flat report
func (b *BenchmarkMetrics) Report() Report {
	phases := make(map[string]float64, len(b.PhaseDurations))
	for name, d := range b.PhaseDurations {
		phases[name] = roundTo(d.Seconds(), 3)
	}

	var hitRate float64
	if lookups := b.CacheHits + b.CacheMisses; lookups > 0 {
		hitRate = roundTo(float64(b.CacheHits)/float64(lookups)*100, 1)
	}

	return Report{
		RunID:            b.RunID,
		TotalRecords:     b.TotalRecords,
		TotalSeconds:     roundTo(b.TotalDuration.Seconds(), 3),
		PhaseSeconds:     phases,
		CacheHits:        b.CacheHits,
		CacheMisses:      b.CacheMisses,
		CacheHitRatePct:  hitRate,
		TierCalls:        b.TierCalls,
		HeapAllocMB:      roundTo(float64(b.HeapAllocBytes)/(1024*1024), 2),
		RecordsPerSecond: roundTo(b.RecordsPerSecond, 2),
	}
}

// SaveToFile writes the report as timestamped JSON into dir and returns the
// file path
func (b *BenchmarkMetrics) SaveToFile(dir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	random := uuid.New().String()[:8]
	filename := filepath.Join(dir, fmt.Sprintf("metrics_%s_%s.json", timestamp, random))

	jsonData, err := json.MarshalIndent(b.Report(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return filename, nil
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
