// Package cache provides a two-level content-addressed store for classifier
// results: a bounded in-process LRU in front of a durable SQLite database.
// The disk level is the source of truth; the memory level only shortcuts
// repeated lookups within and across batches.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity bounds the in-process LRU level
	DefaultCapacity = 4096
)

// Key derives the deterministic cache key for a text routed through a tier.
// The key depends only on the tier identity, its version and the normalized
// text, never on record position, so identical texts always collide.
// Including the version means a retrained or reworded tier starts cold
// instead of serving stale labels.
func Key(tier, version, text string) string {
	h := sha256.New()
	h.Write([]byte(tier))
	h.Write([]byte{0})
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write([]byte(normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalize trims and collapses whitespace so cosmetic differences between
// otherwise identical texts share a cache entry.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Stats is a snapshot of cache effectiveness counters
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// Store is the two-level cache. It is safe for concurrent use.
type Store struct {
	mem  *lru.Cache[string, []byte]
	disk *diskStore
	log  *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Options configures a Store
type Options struct {
	// Dir is the directory holding the durable database file
	Dir string

	// Capacity bounds the in-process level. If 0, uses DefaultCapacity.
	Capacity int

	// Logger receives cache warnings. If nil, logging is disabled.
	Logger *zap.Logger
}

// Open creates or reopens the store rooted at opts.Dir
func Open(opts Options) (*Store, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mem, err := lru.New[string, []byte](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	disk, err := openDiskStore(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}

	return &Store{
		mem:  mem,
		disk: disk,
		log:  log,
	}, nil
}

// Get looks the key up in the memory level first, then on disk. A disk hit is
// promoted into the memory level. Disk read failures are logged and treated
// as misses so a damaged cache can never fail a classification.
func (s *Store) Get(key string) ([]byte, bool) {
	if val, ok := s.mem.Get(key); ok {
		s.hits.Add(1)
		return val, true
	}

	val, ok, err := s.disk.get(key)
	if err != nil {
		s.log.Warn("cache disk read failed", zap.String("key", key), zap.Error(err))
		s.misses.Add(1)
		return nil, false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}

	s.mem.Add(key, val)
	s.hits.Add(1)
	return val, true
}

// Put writes the entry to both levels. A failed disk write is logged and
// swallowed; the entry still lands in the memory level.
func (s *Store) Put(key string, value []byte) {
	s.mem.Add(key, value)

	if err := s.disk.put(key, value); err != nil {
		s.log.Warn("cache disk write failed", zap.String("key", key), zap.Error(err))
	}
}

// Stats returns a snapshot of the store's counters
func (s *Store) Stats() Stats {
	entries, err := s.disk.count()
	if err != nil {
		entries = int64(s.mem.Len())
	}
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: entries,
	}
}

// Clear drops every entry from both levels
func (s *Store) Clear() error {
	s.mem.Purge()
	if err := s.disk.clear(); err != nil {
		return fmt.Errorf("failed to clear disk cache: %w", err)
	}
	return nil
}

// Close releases the disk level. The store must not be used afterwards.
func (s *Store) Close() error {
	return s.disk.close()
}
