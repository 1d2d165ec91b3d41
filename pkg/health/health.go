// Package health serves liveness and readiness probes for the order service.
//
// Every check runs on its own ticker. A check flips to unhealthy only after
// FailureThreshold consecutive failures and back after SuccessThreshold
// consecutive successes, so a single slow query does not fail the probe.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Check describes a registered health check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3, SuccessThreshold to 1.
	FailureThreshold int
	SuccessThreshold int
}

// probe is the runtime state of a Check. fails and oks are only touched by
// the goroutine running the check.
type probe struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
	fails   int
	oks     int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := p.Func(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.FailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.SuccessThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() string {
	if p.healthy.Load() {
		return ""
	}
	if err := p.lastErr.Load(); err != nil && *err != nil {
		return (*err).Error()
	}
	return "check is unhealthy"
}

// Registry holds the checks of a service and its manual readiness switch.
// It starts not ready.
type Registry struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
}

// New returns a Registry with the given checks.
func New(checks ...Check) *Registry {
	r := &Registry{}
	for _, c := range checks {
		r.Add(c)
	}
	return r
}

// Add registers a check. Checks start healthy. Add must be called before Run.
func (r *Registry) Add(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	p := &probe{Check: c}
	p.healthy.Store(true)

	r.mu.Lock()
	r.probes = append(r.probes, p)
	r.mu.Unlock()
}

// Run executes every check immediately and then on each interval until ctx
// is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	var wg sync.WaitGroup
	for _, p := range r.snapshot() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// SetReady flips the manual readiness switch: true once initialisation is
// done, false when draining before shutdown.
func (r *Registry) SetReady(ready bool) {
	r.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (r *Registry) IsReady() bool {
	return r.ready.Load() && len(r.failures(Readiness)) == 0
}

// Handler serves the probe of the given kind: 200 {"status":"ok"} or 503
// with the failing checks.
func (r *Registry) Handler(kind Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		failures := r.failures(kind)
		if kind == Readiness && !r.ready.Load() {
			failures["_readiness"] = "service is not ready"
		}
		writeStatus(w, failures)
	})
}

func (r *Registry) snapshot() []*probe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.probes)
}

func (r *Registry) failures(kind Kind) map[string]string {
	out := make(map[string]string)
	for _, p := range r.snapshot() {
		if p.Kind != kind {
			continue
		}
		if msg := p.failure(); msg != "" {
			out[p.Name] = msg
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
