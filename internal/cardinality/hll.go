package cardinality

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// HLLTracker estimates distinct keys with a HyperLogLog sketch in fixed
// memory. It cannot test membership.
type HLLTracker struct {
	mu     sync.Mutex
	sketch *hyperloglog.Sketch
}

// NewHLLTracker creates an empty sketch.
func NewHLLTracker() *HLLTracker {
	return &HLLTracker{sketch: hyperloglog.New()}
}

// Add inserts key and always reports true.
func (t *HLLTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch.Insert(key)
	return true
}

// Seen always reports false.
func (t *HLLTracker) Seen([]byte) bool { return false }

// Count returns the estimate. Estimate may merge the sparse representation,
// so it takes the write lock.
func (t *HLLTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(t.sketch.Estimate())
}

func (t *HLLTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch = hyperloglog.New()
}

// MemoryUsage is the dense size at the default precision of 14.
func (t *HLLTracker) MemoryUsage() uint64 { return 12 << 10 }
