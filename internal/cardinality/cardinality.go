// Package cardinality counts distinct identifiers (trace IDs, span keys,
// metric names) seen by the sink, exactly or with bounded memory.
package cardinality

import "fmt"

// Tracker counts distinct keys.
type Tracker interface {
	// Add records key and reports whether it was new. Trackers that cannot
	// test membership always report true.
	Add(key []byte) bool
	// Seen reports whether key was (probably) recorded before.
	Seen(key []byte) bool
	// Count returns the number, or estimate, of distinct keys.
	Count() int64
	// Reset forgets every key.
	Reset()
	// MemoryUsage approximates the tracker's footprint in bytes.
	MemoryUsage() uint64
}

// Mode selects a Tracker implementation.
type Mode int

const (
	// ModeBloom tests membership in fixed memory with false positives.
	ModeBloom Mode = iota
	// ModeExact keeps every key.
	ModeExact
	// ModeHLL estimates the count in ~12KB without membership tests.
	ModeHLL
)

func (m Mode) String() string {
	switch m {
	case ModeBloom:
		return "bloom"
	case ModeExact:
		return "exact"
	case ModeHLL:
		return "hll"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "bloom", "":
		return ModeBloom, nil
	case "exact":
		return ModeExact, nil
	case "hll":
		return ModeHLL, nil
	default:
		return 0, fmt.Errorf("unknown cardinality mode %q", s)
	}
}

// Config sizes a tracker.
type Config struct {
	Mode Mode
	// ExpectedItems sizes the Bloom filter.
	ExpectedItems uint
	// FalsePositiveRate is the Bloom filter target, 0.01 = 1%.
	FalsePositiveRate float64
}

// DefaultConfig suits a sink receiving up to a million spans.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeBloom,
		ExpectedItems:     1_000_000,
		FalsePositiveRate: 0.001,
	}
}

// NewTracker creates the tracker cfg selects.
func NewTracker(cfg Config) Tracker {
	switch cfg.Mode {
	case ModeExact:
		return NewExactTracker()
	case ModeHLL:
		return NewHLLTracker()
	default:
		return NewBloomTracker(cfg)
	}
}
