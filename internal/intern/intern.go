// Package intern deduplicates strings decoded from the wire. Attribute
// keys and metric names repeat in every request a sink receives, so the
// decoder looks them up here instead of allocating a copy per field.
package intern

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// DefaultMaxSize bounds the shared pools. Keys arrive from remote peers, so
// an unbounded pool would let a client grow memory without limit.
const DefaultMaxSize = 16384

// Pool interns strings up to a fixed number of entries. Once full, misses
// are returned as fresh copies and not stored.
type Pool struct {
	strings sync.Map
	size    atomic.Int64
	maxSize int64
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewPool creates a pool holding at most maxSize strings; <= 0 is
// unbounded.
func NewPool(maxSize int) *Pool {
	return &Pool{maxSize: int64(maxSize)}
}

// Intern returns the pooled copy of s, storing one if there is room.
func (p *Pool) Intern(s string) string {
	if interned, ok := p.strings.Load(s); ok {
		p.hits.Add(1)
		return interned.(string)
	}
	return p.store(string([]byte(s)))
}

// InternBytes is Intern for a byte slice. The lookup does not allocate.
func (p *Pool) InternBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if interned, ok := p.strings.Load(unsafe.String(unsafe.SliceData(b), len(b))); ok {
		p.hits.Add(1)
		return interned.(string)
	}
	return p.store(string(b))
}

func (p *Pool) store(clone string) string {
	p.misses.Add(1)
	if p.maxSize > 0 && p.size.Load() >= p.maxSize {
		return clone
	}
	actual, loaded := p.strings.LoadOrStore(clone, clone)
	if !loaded {
		p.size.Add(1)
	}
	return actual.(string)
}

// Stats returns hit/miss statistics.
func (p *Pool) Stats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}

// Size returns the number of interned strings.
func (p *Pool) Size() int {
	return int(p.size.Load())
}

// Reset clears all interned strings and resets statistics.
func (p *Pool) Reset() {
	p.strings.Range(func(k, _ any) bool {
		p.strings.Delete(k)
		return true
	})
	p.size.Store(0)
	p.hits.Store(0)
	p.misses.Store(0)
}

var (
	// Keys holds attribute and label keys.
	Keys = NewPool(DefaultMaxSize)
	// Names holds metric names and instrumentation library names.
	Names = NewPool(DefaultMaxSize)
)

// Common resource and span attribute keys, interned up front.
var commonKeys = []string{
	"service.name", "service.namespace", "service.version", "service.instance.id",
	"deployment.environment",
	"telemetry.sdk.name", "telemetry.sdk.version", "telemetry.sdk.language",
	"host.name", "host.id", "host.arch",
	"k8s.pod.name", "k8s.namespace.name", "k8s.container.name", "k8s.node.name",
	"cloud.provider", "cloud.region", "container.id",
	"process.pid", "process.executable.name", "process.command_args",
	"http.method", "http.status_code", "http.route", "http.url", "http.target",
	"http.request.method", "http.response.status_code",
	"url.full", "url.path", "server.address", "server.port",
	"db.system", "db.statement", "rpc.system", "rpc.service", "rpc.method",
	"component", "error.type", "exception.type", "exception.message",
}

func init() {
	for _, k := range commonKeys {
		Keys.Intern(k)
	}
}
