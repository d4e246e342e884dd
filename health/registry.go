package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Interval is the period of the background probe cycle.
	// Default: 30 seconds
	Interval time.Duration

	// DefaultTimeout bounds a probe that does not set its own.
	// Default: 5 seconds
	DefaultTimeout time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// ProbeOptions tunes a registered probe.
type ProbeOptions struct {
	// Critical probes decide overall health. A failing non-critical probe
	// only degrades it.
	Critical bool

	// Timeout overrides RegistryConfig.DefaultTimeout.
	Timeout time.Duration
}

// EventKind identifies a critical probe transition.
type EventKind int

const (
	// EventCriticalFailure is emitted when a critical probe becomes unhealthy.
	EventCriticalFailure EventKind = iota
	// EventCriticalRecovered is emitted when a failing critical probe is healthy again.
	EventCriticalRecovered
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCriticalFailure:
		return "critical_failure"
	case EventCriticalRecovered:
		return "critical_recovered"
	default:
		return "unknown"
	}
}

// Event describes a critical probe transition.
type Event struct {
	Kind   EventKind
	Probe  string
	Result Result
}

// Snapshot is the aggregate view over the latest probe results.
type Snapshot struct {
	Overall          Status
	Total            int
	Healthy          int
	Degraded         int
	Unhealthy        int
	CriticalFailures int
	Results          map[string]Result
	Timestamp        time.Time
}

// IsHealthy reports whether the overall status is healthy.
func (s Snapshot) IsHealthy() bool {
	return s.Overall == StatusHealthy
}

type probe struct {
	checker Checker
	opts    ProbeOptions
}

// Registry holds named probes, runs them concurrently on demand or on a
// schedule, and keeps the latest result of each.
type Registry struct {
	config RegistryConfig
	now    func() time.Time

	mu        sync.Mutex
	probes    map[string]probe
	order     []string
	results   map[string]Result
	failing   map[string]bool
	listeners []func(Event)

	stop context.CancelFunc
	done chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 5 * time.Second
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Registry{
		config:  config,
		now:     config.Clock,
		probes:  make(map[string]probe),
		results: make(map[string]Result),
		failing: make(map[string]bool),
	}
}

// Register adds a probe, replacing any probe with the same name.
func (r *Registry) Register(name string, checker Checker, opts ProbeOptions) error {
	if name == "" || checker == nil {
		return ErrInvalidProbe
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.probes[name]; !exists {
		r.order = append(r.order, name)
	}
	r.probes[name] = probe{checker: checker, opts: opts}
	return nil
}

// Unregister removes a probe and its last result.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.probes[name]; !ok {
		return false
	}
	delete(r.probes, name)
	delete(r.results, name)
	delete(r.failing, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns probe names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// OnEvent registers a listener for critical probe transitions.
// Listeners run synchronously at the end of a cycle.
func (r *Registry) OnEvent(fn func(Event)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// RunOnce runs every probe concurrently, records the results and returns
// the resulting snapshot. If ctx is cancelled before the probes finish,
// nothing is recorded and the previous snapshot is returned.
func (r *Registry) RunOnce(ctx context.Context) Snapshot {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	probes := make([]probe, len(names))
	for i, name := range names {
		probes[i] = r.probes[name]
	}
	r.mu.Unlock()

	results := make([]Result, len(probes))
	var g errgroup.Group
	for i := range probes {
		g.Go(func() error {
			results[i] = r.runProbe(ctx, names[i], probes[i])
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled cycle reports the caller's shutdown, not probe health.
	if ctx.Err() != nil {
		return r.Snapshot()
	}

	var events []Event
	r.mu.Lock()
	for _, res := range results {
		// The probe may have been unregistered during the cycle.
		if _, ok := r.probes[res.Name]; !ok {
			continue
		}
		r.results[res.Name] = res
		if !res.Critical {
			continue
		}
		switch {
		case res.Status == StatusUnhealthy && !r.failing[res.Name]:
			r.failing[res.Name] = true
			events = append(events, Event{Kind: EventCriticalFailure, Probe: res.Name, Result: res})
		case res.Status == StatusHealthy && r.failing[res.Name]:
			delete(r.failing, res.Name)
			events = append(events, Event{Kind: EventCriticalRecovered, Probe: res.Name, Result: res})
		}
	}
	snap := r.snapshotLocked()
	listeners := make([]func(Event), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
	return snap
}

func (r *Registry) runProbe(ctx context.Context, name string, p probe) Result {
	timeout := p.opts.Timeout
	if timeout <= 0 {
		timeout = r.config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				resultCh <- Unhealthy(fmt.Sprintf("check panicked: %v", v), ErrCheckPanicked)
			}
		}()
		resultCh <- p.checker.Check(ctx)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			result = Unhealthy("check timed out", ErrCheckTimeout)
		} else {
			result = Unhealthy("check cancelled", ctx.Err())
		}
	}

	result.Name = name
	result.Critical = p.opts.Critical
	result.Duration = r.now().Sub(start)
	result.Timestamp = start
	return result
}

// Snapshot aggregates the latest recorded results without running probes.
// Probes that have not run yet are not counted.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	results := make(map[string]Result, len(r.results))
	for name, res := range r.results {
		results[name] = res
	}
	return Aggregate(results, r.now())
}

// Result returns the latest result for a probe.
func (r *Registry) Result(name string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.results[name]
	return res, ok
}

// Aggregate derives a snapshot from a set of results.
//
// Overall is unhealthy if any critical result is unhealthy, degraded if any
// other result is unhealthy or degraded, and healthy otherwise.
func Aggregate(results map[string]Result, at time.Time) Snapshot {
	snap := Snapshot{
		Overall:   StatusHealthy,
		Total:     len(results),
		Results:   results,
		Timestamp: at,
	}

	for _, res := range results {
		switch res.Status {
		case StatusHealthy:
			snap.Healthy++
		case StatusDegraded:
			snap.Degraded++
		default:
			snap.Unhealthy++
			if res.Critical {
				snap.CriticalFailures++
			}
		}
	}

	switch {
	case snap.CriticalFailures > 0:
		snap.Overall = StatusUnhealthy
	case snap.Unhealthy > 0 || snap.Degraded > 0:
		snap.Overall = StatusDegraded
	}
	return snap
}

// Start runs a cycle immediately and then every Interval until Stop is
// called or ctx is done. Calling Start on a running registry is a no-op.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.RunOnce(ctx)

		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts the background cycle and waits for it to exit. In-flight
// probes see their context cancelled.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.stop == nil {
		r.mu.Unlock()
		return
	}
	r.stop()
	done := r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	<-done
}
