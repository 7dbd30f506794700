package intern

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPoolIntern(t *testing.T) {
	p := NewPool(0)

	s1 := p.Intern("hello")
	if s1 != "hello" {
		t.Errorf("expected 'hello', got %q", s1)
	}
	s2 := p.Intern("hello")
	if s1 != s2 {
		t.Error("expected same string for interned strings")
	}

	hits, misses := p.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit, 1 miss; got %d hits, %d misses", hits, misses)
	}
}

func TestPoolInternBytes(t *testing.T) {
	p := NewPool(0)

	b := []byte("service.name")
	s1 := p.InternBytes(b)
	if s1 != "service.name" {
		t.Errorf("expected 'service.name', got %q", s1)
	}
	if s2 := p.InternBytes(b); s1 != s2 {
		t.Error("expected same string")
	}

	// The decoder reuses its buffer; the pooled copy must not follow it.
	b[0] = 'S'
	if s1 != "service.name" {
		t.Errorf("interned string was modified: %q", s1)
	}
	if p.InternBytes(nil) != "" {
		t.Error("empty input should intern to empty string")
	}
}

func TestPoolMaxSize(t *testing.T) {
	p := NewPool(2)
	p.Intern("a")
	p.Intern("b")
	if got := p.Intern("c"); got != "c" {
		t.Errorf("overflow intern returned %q", got)
	}
	if p.Size() != 2 {
		t.Errorf("expected size capped at 2, got %d", p.Size())
	}
	p.Intern("c")
	if _, misses := p.Stats(); misses != 4 {
		t.Errorf("expected overflow lookups to count as misses, got %d", misses)
	}
	if got := p.InternBytes([]byte("a")); got != "a" {
		t.Errorf("stored key lookup returned %q", got)
	}
}

func TestPoolReset(t *testing.T) {
	p := NewPool(0)
	p.Intern("test")
	p.Intern("test")

	p.Reset()

	if p.Size() != 0 {
		t.Errorf("expected empty pool after reset, got %d", p.Size())
	}
	hits, misses := p.Stats()
	if hits != 0 || misses != 0 {
		t.Errorf("expected 0 hits/misses after reset; got %d/%d", hits, misses)
	}
}

func TestPoolConcurrent(t *testing.T) {
	p := NewPool(0)
	const goroutines = 50
	const iterations = 500

	keys := []string{"http.route", "http.method", "db.system", "service.name", "component", "worker"}

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				s := keys[(id+j)%len(keys)]
				if got := p.InternBytes([]byte(s)); got != s {
					t.Errorf("interned string mismatch: got %q, want %q", got, s)
				}
			}
		}(i)
	}
	wg.Wait()

	if p.Size() != len(keys) {
		t.Errorf("expected %d unique strings, got %d", len(keys), p.Size())
	}
}

func TestCommonKeysPreloaded(t *testing.T) {
	before, _ := Keys.Stats()
	Keys.InternBytes([]byte("service.name"))
	after, _ := Keys.Stats()
	if after != before+1 {
		t.Error("expected service.name to be preloaded")
	}
}

func TestMetricsRegistered(t *testing.T) {
	Names.Intern("otlp_shipper_intern_test_metric")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var size *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "otlp_shipper_intern_pool_size" {
			size = mf
		}
	}
	if size == nil {
		t.Fatal("otlp_shipper_intern_pool_size not registered")
	}
	if len(size.GetMetric()) != 2 {
		t.Errorf("expected keys and names series, got %d", len(size.GetMetric()))
	}
}

func BenchmarkPoolInternBytes(b *testing.B) {
	p := NewPool(0)
	keys := [][]byte{
		[]byte("service.name"), []byte("http.route"), []byte("http.method"),
		[]byte("db.system"), []byte("component"), []byte("worker"),
	}
	for _, k := range keys {
		p.InternBytes(k)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.InternBytes(keys[i%len(keys)])
	}
}
