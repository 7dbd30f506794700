//go:build !(js && wasm)

package exporter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/szibis/otlp-shipper/internal/logging"
)

// platformBeacon returns a background poster: payloads are accepted into
// a bounded queue and POSTed by one worker, with the outcome discarded.
func platformBeacon(queueSize int, client *http.Client) Beacon {
	return newBeaconPoster(queueSize, client)
}

type beaconPayload struct {
	url         string
	contentType string
	body        []byte
}

type beaconPoster struct {
	client *http.Client
	queue  chan beaconPayload
	log    logging.Component

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newBeaconPoster(queueSize int, client *http.Client) *beaconPoster {
	p := &beaconPoster{
		client: client,
		queue:  make(chan beaconPayload, queueSize),
		log:    logging.Named("beacon"),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Send accepts the payload unless the queue is full or the poster closed.
func (p *beaconPoster) Send(url, contentType string, body []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- beaconPayload{url: url, contentType: contentType, body: body}:
		return true
	default:
		return false
	}
}

func (p *beaconPoster) run() {
	defer p.wg.Done()
	for b := range p.queue {
		p.post(b)
	}
}

func (p *beaconPoster) post(b beaconPayload) {
	req, err := http.NewRequest(http.MethodPost, b.url, bytes.NewReader(b.body))
	if err != nil {
		p.log.Debug("beacon request failed", logging.F("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", b.contentType)
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("beacon request failed", logging.F("error", err.Error()))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Close stops accepting payloads and waits, bounded by ctx, for the queue
// to drain.
func (p *beaconPoster) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
