package exporter

// ConcurrencyLimiter is a counting semaphore over in-flight exports.
// Admission never blocks: TryAcquire either takes a slot or fails.
type ConcurrencyLimiter struct {
	sem chan struct{}
}

// NewConcurrencyLimiter creates a limiter with the given number of slots.
// A limit <= 0 means unbounded.
func NewConcurrencyLimiter(limit int) *ConcurrencyLimiter {
	if limit <= 0 {
		return &ConcurrencyLimiter{}
	}
	return &ConcurrencyLimiter{sem: make(chan struct{}, limit)}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *ConcurrencyLimiter) TryAcquire() bool {
	if l.sem == nil {
		return true
	}
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot taken by a successful TryAcquire.
func (l *ConcurrencyLimiter) Release() {
	if l.sem == nil {
		return
	}
	<-l.sem
}

// Limit returns the number of slots, 0 when unbounded.
func (l *ConcurrencyLimiter) Limit() int {
	return cap(l.sem)
}

// InUse returns the number of slots currently taken. Always 0 when
// unbounded.
func (l *ConcurrencyLimiter) InUse() int {
	return len(l.sem)
}
