package cardinality

import "sync"

// ExactTracker keeps every key in a map.
type ExactTracker struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewExactTracker creates an empty exact tracker.
func NewExactTracker() *ExactTracker {
	return &ExactTracker{items: make(map[string]struct{})}
}

func (t *ExactTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[string(key)]; ok {
		return false
	}
	t.items[string(key)] = struct{}{}
	return true
}

func (t *ExactTracker) Seen(key []byte) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.items[string(key)]
	return ok
}

func (t *ExactTracker) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.items))
}

func (t *ExactTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]struct{})
}

// MemoryUsage assumes ~64 bytes per entry: a short key plus map overhead.
func (t *ExactTracker) MemoryUsage() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.items)) * 64
}
