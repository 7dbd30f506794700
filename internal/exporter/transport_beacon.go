package exporter

import (
	"context"
	"errors"
	"sync"

	"github.com/szibis/otlp-shipper/internal/logging"
)

// Beacon is a fire-and-forget submission primitive. Send reports only
// whether the payload was accepted for sending; delivery is never observed
// and no request headers can be attached.
type Beacon interface {
	Send(url, contentType string, body []byte) bool
}

// DefaultBeaconQueueSize bounds submissions waiting in the default beacon.
const DefaultBeaconQueueSize = 64

var errBeaconRejected = errors.New("beacon rejected the payload")

// beaconTransport submits through a Beacon, falling back to a regular HTTP
// POST when headers must be sent or no beacon exists on this platform.
type beaconTransport struct {
	signal   Signal
	endpoint string
	beacon   Beacon
	fallback *httpTransport
	useHTTP  bool
	log      logging.Component

	// mu is held for reading across a submission and for writing while
	// Shutdown closes the beacon, so a submission never sees a half-closed
	// beacon.
	mu     sync.RWMutex
	closed bool
}

func newBeaconTransport(signal Signal, cfg Config, env map[string]string) (*beaconTransport, error) {
	// The fallback always exists: it also provides the endpoint and the
	// client the default beacon posts with.
	fb, err := newHTTPTransport(signal, cfg, env)
	if err != nil {
		return nil, err
	}
	t := &beaconTransport{
		signal:   signal,
		endpoint: fb.endpoint,
		fallback: fb,
		log:      logging.Named("beacon-transport").With("signal", string(signal)),
	}

	switch {
	case len(cfg.Headers) > 0 || len(env) > 0 || cfg.Auth.Enabled():
		t.useHTTP = true
		t.log.Info("headers configured, using HTTP instead of beacon")
	case cfg.Beacon.Beacon != nil:
		t.beacon = cfg.Beacon.Beacon
	default:
		size := cfg.Beacon.QueueSize
		if size <= 0 {
			size = DefaultBeaconQueueSize
		}
		if t.beacon = platformBeacon(size, fb.client); t.beacon == nil {
			t.useHTTP = true
			t.log.Info("beacon unavailable on this platform, using HTTP")
		}
	}
	return t, nil
}

// Send implements Transport. A beacon submission resolves before Send
// returns.
func (t *beaconTransport) Send(msg *WireMessage, done func(error)) {
	signal := string(t.signal)
	if t.useHTTP {
		beaconSubmissionsTotal.WithLabelValues(signal, "fallback").Inc()
		t.fallback.Send(msg, done)
		return
	}
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		done(ErrShutdown)
		return
	}
	accepted := t.beacon.Send(t.endpoint, msg.ContentType, msg.Body)
	t.mu.RUnlock()

	if accepted {
		beaconSubmissionsTotal.WithLabelValues(signal, "accepted").Inc()
		done(nil)
		return
	}
	beaconSubmissionsTotal.WithLabelValues(signal, "rejected").Inc()
	done(&ExportError{Err: errBeaconRejected, Type: ErrorTypeBeaconRejected})
}

// Ready implements Transport.
func (t *beaconTransport) Ready() bool {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	return !closed && t.fallback.Ready()
}

// Guarantee implements Transport.
func (t *beaconTransport) Guarantee() Guarantee {
	if t.useHTTP {
		return GuaranteeDelivery
	}
	return GuaranteeSubmission
}

// Shutdown implements Transport. Accepted beacon payloads get until ctx is
// done to leave the process.
func (t *beaconTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	var errs []error
	if c, ok := t.beacon.(interface{ Close(context.Context) error }); ok {
		errs = append(errs, c.Close(ctx))
	}
	errs = append(errs, t.fallback.Shutdown(ctx))
	return errors.Join(errs...)
}
