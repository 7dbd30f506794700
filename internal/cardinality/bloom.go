package cardinality

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomTracker tests membership with a Bloom filter and counts first
// sightings. A false positive makes Add report a new key as seen, so the
// count can only undershoot.
type BloomTracker struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	count  int64
}

// NewBloomTracker creates a Bloom tracker sized by cfg.
func NewBloomTracker(cfg Config) *BloomTracker {
	if cfg.ExpectedItems == 0 {
		cfg.ExpectedItems = DefaultConfig().ExpectedItems
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = DefaultConfig().FalsePositiveRate
	}
	return &BloomTracker{filter: bloom.NewWithEstimates(cfg.ExpectedItems, cfg.FalsePositiveRate)}
}

func (t *BloomTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filter.TestAndAdd(key) {
		return false
	}
	t.count++
	return true
}

func (t *BloomTracker) Seen(key []byte) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filter.Test(key)
}

func (t *BloomTracker) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

func (t *BloomTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.ClearAll()
	t.count = 0
}

func (t *BloomTracker) MemoryUsage() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(t.filter.Cap()) / 8
}
