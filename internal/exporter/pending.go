package exporter

import (
	"context"
	"sync"
	"time"
)

// PendingExport is the future of one Export call. It resolves exactly once,
// with nil or an *ExportError.
type PendingExport struct {
	records  int
	enqueued time.Time

	once      sync.Once
	done      chan struct{}
	err       error
	onResolve func(error)
}

func newPendingExport(records int) *PendingExport {
	return &PendingExport{
		records:  records,
		enqueued: time.Now(),
		done:     make(chan struct{}),
	}
}

// Done is closed once the export has resolved.
func (p *PendingExport) Done() <-chan struct{} { return p.done }

// Err returns the resolution. It is only meaningful after Done is closed.
func (p *PendingExport) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Resolved reports whether the export has resolved.
func (p *PendingExport) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Records returns the number of records the export carries.
func (p *PendingExport) Records() int { return p.records }

// Wait blocks until the export resolves or ctx is done. Giving up on ctx
// does not cancel the export.
func (p *PendingExport) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolve settles the export. The bookkeeping hook runs before Done is
// closed, so a freed limiter slot is visible to whoever observes the result.
func (p *PendingExport) resolve(err error) {
	p.once.Do(func() {
		p.err = err
		if p.onResolve != nil {
			p.onResolve(err)
		}
		close(p.done)
	})
}
