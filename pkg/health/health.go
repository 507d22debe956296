// Package health serves liveness and readiness probes.
//
// Checks are polled in the background. A probe only flips to failing after
// FailureThreshold consecutive errors, so a single slow ping does not pull
// the pod out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// FailureThreshold is the number of consecutive errors that marks a check
// as failing.
const FailureThreshold = 3

// Kind selects the probe a check contributes to.
type Kind uint8

const (
	// Liveness checks detect a wedged process.
	Liveness Kind = iota
	// Readiness checks detect missing dependencies.
	Readiness
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	kind    Kind
	timeout time.Duration
	fn      CheckFunc

	failing atomic.Bool
	lastErr atomic.Pointer[string]
	fails   int
}

func (c *check) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fn(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.fails++
		if c.fails >= FailureThreshold {
			c.failing.Store(true)
		}
		return
	}
	c.fails = 0
	c.lastErr.Store(nil)
	c.failing.Store(false)
}

// Health holds the registered checks and the manual readiness switch.
type Health struct {
	ready  atomic.Bool
	mu     sync.RWMutex
	checks []*check
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// Add registers a check. Checks must be added before Run.
func (h *Health) Add(kind Kind, name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, &check{name: name, kind: kind, timeout: timeout, fn: fn})
}

// Run polls every check at interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	h.mu.RLock()
	checks := append([]*check(nil), h.checks...)
	h.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range checks {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				c.poll(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady toggles readiness, typically true after startup and false at
// the start of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports whether the service should receive traffic.
func (h *Health) Ready() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range h.checks {
		if c.kind != kind || !c.failing.Load() {
			continue
		}
		msg := "failing"
		if p := c.lastErr.Load(); p != nil {
			msg = *p
		}
		out[c.name] = msg
	}
	return out
}

// LiveHandler serves /livez.
func (h *Health) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(Liveness))
}

// ReadyHandler serves /readyz.
func (h *Health) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		if len(failures) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if len(failures) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = w.Write(e.Bytes())
}
