// Package health serves liveness and readiness probes.
//
// Checks run on a ticker inside Run. A check flips to failing only after
// FailureThreshold consecutive errors and back to passing after
// SuccessThreshold consecutive successes, so a single slow ping does not
// take the service out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	// Liveness checks fail the /livez probe.
	Liveness Kind = iota
	// Readiness checks fail the /readyz probe.
	Readiness
)

// Check is a named dependency check.
type Check struct {
	Name    string
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3.
	FailureThreshold int
	// SuccessThreshold defaults to 1.
	SuccessThreshold int
}

type check struct {
	Check

	passing atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the goroutine running the check.
	fails, oks int
}

// probe runs the check once. It reports whether the passing state changed.
func (c *check) probe(ctx context.Context) (changed bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	was := c.passing.Load()
	if err = c.Func(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.oks = 0
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.passing.Store(false)
		}
	} else {
		c.lastErr.Store(nil)
		c.fails = 0
		c.oks++
		if c.oks >= c.SuccessThreshold {
			c.passing.Store(true)
		}
	}
	return was != c.passing.Load(), err
}

func (c *check) reason() string {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return "failing"
}

// Health tracks the probe state of the service.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Kind][]*check
}

// New returns a Health that is live and not yet ready.
func New() *Health {
	return &Health{checks: make(map[Kind][]*check)}
}

// Register adds a check to the probe of kind. Checks start out passing.
func (h *Health) Register(kind Kind, c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	ck := &check{Check: c}
	ck.passing.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[kind] = append(h.checks[kind], ck)
}

// SetReady marks the service as accepting traffic or draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(Readiness))) == 0
}

// Run probes every check each interval until ctx is canceled.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []Kind{Liveness, Readiness} {
		for _, c := range h.snapshot(kind) {
			g.Go(func() error {
				loop(ctx, c, interval)
				return nil
			})
		}
	}
	return g.Wait()
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	lg := zctx.From(ctx).With(zap.String("check", c.Name))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if changed, err := c.probe(ctx); changed {
			if err != nil {
				lg.Warn("Health check failing", zap.Error(err))
			} else {
				lg.Info("Health check recovered")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) snapshot(kind Kind) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.checks[kind])
}

type failure struct {
	name   string
	reason string
}

func failures(checks []*check) []failure {
	var out []failure
	for _, c := range checks {
		if !c.passing.Load() {
			out = append(out, failure{name: c.Name, reason: c.reason()})
		}
	}
	return out
}

// Livez serves the liveness probe.
func (h *Health) Livez(w http.ResponseWriter, _ *http.Request) {
	write(w, failures(h.snapshot(Liveness)))
}

// Readyz serves the readiness probe.
func (h *Health) Readyz(w http.ResponseWriter, _ *http.Request) {
	f := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		f = append(f, failure{name: "_readiness", reason: "service is not ready"})
	}
	write(w, f)
}

// Routes adds the probe routes to mux.
func (h *Health) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.Livez)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func write(w http.ResponseWriter, f []failure) {
	slices.SortFunc(f, func(a, b failure) int { return strings.Compare(a.name, b.name) })

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(f) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, x := range f {
			e.FieldStart(x.name)
			e.Str(x.reason)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
