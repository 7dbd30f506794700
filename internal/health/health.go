// Package health serves liveness and readiness probes. Readiness follows
// the exporters' transports: a gRPC exporter still dialing, or one that
// was shut down, reports not ready.
package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the JSON body returned by health endpoints.
type Response struct {
	Status     Status           `json:"status"`
	Components []ComponentCheck `json:"components,omitempty"`
	Timestamp  string           `json:"timestamp"`
}

// CheckFunc returns nil if the component is healthy, or an error describing the issue.
type CheckFunc func() error

// Readier is implemented by exporters.
type Readier interface {
	Ready() bool
}

var errNotReady = errors.New("transport not ready")

// ReadyCheck adapts a Readier to a CheckFunc.
func ReadyCheck(r Readier) CheckFunc {
	return func() error {
		if !r.Ready() {
			return errNotReady
		}
		return nil
	}
}

// Checker provides liveness and readiness probes.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	shuttingDown atomic.Bool
	now          func() time.Time
}

// New creates a new health Checker.
func New() *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		now:    time.Now,
	}
}

// RegisterReadiness registers a named readiness check, replacing any check
// with the same name. Checks run on every /ready request.
func (c *Checker) RegisterReadiness(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetShuttingDown makes both probes report 503.
func (c *Checker) SetShuttingDown() {
	c.shuttingDown.Store(true)
}

// Ready runs every check and returns the results sorted by name.
func (c *Checker) Ready() (Status, []ComponentCheck) {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()
	sort.Strings(names)

	overall := StatusUp
	components := make([]ComponentCheck, 0, len(names))
	for _, name := range names {
		cc := ComponentCheck{Name: name, Status: StatusUp}
		if err := checks[name](); err != nil {
			overall = StatusDown
			cc.Status = StatusDown
			cc.Message = err.Error()
		}
		components = append(components, cc)
	}
	return overall, components
}

// LiveHandler serves /live: 200 while the process runs and is not stopping.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if c.shuttingDown.Load() {
			c.writeShuttingDown(w)
			return
		}
		c.write(w, http.StatusOK, StatusUp, nil)
	}
}

// ReadyHandler serves /ready: 503 when any registered check fails.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if c.shuttingDown.Load() {
			c.writeShuttingDown(w)
			return
		}
		status, components := c.Ready()
		code := http.StatusOK
		if status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		c.write(w, code, status, components)
	}
}

// Register mounts /live and /ready on mux.
func (c *Checker) Register(mux *http.ServeMux) {
	mux.Handle("/live", c.LiveHandler())
	mux.Handle("/ready", c.ReadyHandler())
}

func (c *Checker) writeShuttingDown(w http.ResponseWriter) {
	c.write(w, http.StatusServiceUnavailable, StatusDown, []ComponentCheck{
		{Name: "process", Status: StatusDown, Message: "shutting down"},
	})
}

func (c *Checker) write(w http.ResponseWriter, code int, status Status, components []ComponentCheck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:     status,
		Components: components,
		Timestamp:  c.now().UTC().Format(time.RFC3339),
	})
}
