package memory

import (
	"sync"
	"time"
)

// Config configures a Budget.
type Config struct {
	// MaxTotalBytes is the ceiling for the sum of all reservations.
	// Default: 512 MiB
	MaxTotalBytes int64

	// MaxItemBytes is the largest single reservation accepted.
	// Default: 50 MiB
	MaxItemBytes int64

	// MaxAge is how long a reservation may go untouched before it is
	// eligible for reclamation.
	// Default: 5 minutes
	MaxAge time.Duration

	// SweepInterval is the period of the background pressure check.
	// Default: 30 seconds
	SweepInterval time.Duration

	// PressureThreshold is the utilization (0..1) at which the background
	// sweep reclaims idle reservations.
	// Default: 0.8
	PressureThreshold float64

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// OnReclaim is called, outside the budget lock, after a reclamation
	// that freed at least one reservation.
	OnReclaim func(ReclaimReport)
}

// Allocation is one tracked reservation.
type Allocation struct {
	ID             string
	SizeBytes      int64
	AllocatedAt    time.Time
	LastAccessedAt time.Time
}

// ReclaimReport summarizes one reclamation pass.
type ReclaimReport struct {
	Freed      int
	FreedBytes int64
	IDs        []string
}

// Stats describes the budget at one point in time.
type Stats struct {
	TrackedTotal int64
	Allocations  int
	MaxTotal     int64
	MaxItem      int64
	Utilization  float64
	Peak         int64
	Rejections   int64
	Reclaimed    int64
}

// Budget is a byte-budget ledger for in-process payloads.
//
// The sum of tracked sizes never exceeds MaxTotalBytes after a
// successful Allocate.
type Budget struct {
	config Config
	now    func() time.Time

	mu          sync.Mutex
	allocations map[string]*Allocation
	total       int64
	peak        int64
	rejections  int64
	reclaimed   int64

	stop chan struct{}
	done chan struct{}
}

// NewBudget creates a budget with the given configuration.
func NewBudget(config Config) *Budget {
	if config.MaxTotalBytes <= 0 {
		config.MaxTotalBytes = 512 << 20
	}
	if config.MaxItemBytes <= 0 {
		config.MaxItemBytes = 50 << 20
	}
	if config.MaxItemBytes > config.MaxTotalBytes {
		config.MaxItemBytes = config.MaxTotalBytes
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 5 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Second
	}
	if config.PressureThreshold <= 0 || config.PressureThreshold > 1 {
		config.PressureThreshold = 0.8
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Budget{
		config:      config,
		now:         config.Clock,
		allocations: make(map[string]*Allocation),
	}
}

// Config returns the effective configuration.
func (b *Budget) Config() Config {
	return b.config
}

// Allocate reserves size bytes under id. Re-allocating an existing id
// resizes its reservation.
//
// If the reservation would exceed the ceiling, idle reservations older
// than MaxAge are reclaimed first; ErrBudgetExceeded is returned only if
// that does not free enough.
func (b *Budget) Allocate(id string, size int64) error {
	if id == "" || size < 0 {
		return ErrInvalidAllocation
	}

	b.mu.Lock()

	if size > b.config.MaxItemBytes {
		b.rejections++
		b.mu.Unlock()
		return ErrAllocationTooLarge
	}

	now := b.now()
	var report ReclaimReport
	if b.projectedLocked(id, size) > b.config.MaxTotalBytes {
		report = b.reclaimLocked(now, id)
		if b.projectedLocked(id, size) > b.config.MaxTotalBytes {
			b.rejections++
			b.mu.Unlock()
			b.notify(report)
			return ErrBudgetExceeded
		}
	}

	if a, ok := b.allocations[id]; ok {
		b.total += size - a.SizeBytes
		a.SizeBytes = size
		a.LastAccessedAt = now
	} else {
		b.allocations[id] = &Allocation{
			ID:             id,
			SizeBytes:      size,
			AllocatedAt:    now,
			LastAccessedAt: now,
		}
		b.total += size
	}
	if b.total > b.peak {
		b.peak = b.total
	}

	b.mu.Unlock()
	b.notify(report)
	return nil
}

// projectedLocked returns the total that would result from setting id to size.
func (b *Budget) projectedLocked(id string, size int64) int64 {
	projected := b.total + size
	if a, ok := b.allocations[id]; ok {
		projected -= a.SizeBytes
	}
	return projected
}

// Deallocate releases the reservation for id. It reports whether a
// reservation existed; releasing an unknown id is a no-op.
func (b *Budget) Deallocate(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.allocations[id]
	if !ok {
		return false
	}
	b.total -= a.SizeBytes
	delete(b.allocations, id)
	return true
}

// Touch marks the reservation for id as recently used.
func (b *Budget) Touch(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.allocations[id]
	if ok {
		a.LastAccessedAt = b.now()
	}
	return ok
}

// Allocation returns a copy of the reservation for id.
func (b *Budget) Allocation(id string) (Allocation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.allocations[id]
	if !ok {
		return Allocation{}, false
	}
	return *a, true
}

// Reclaim releases every reservation idle for longer than MaxAge.
func (b *Budget) Reclaim() ReclaimReport {
	b.mu.Lock()
	report := b.reclaimLocked(b.now(), "")
	b.mu.Unlock()

	b.notify(report)
	return report
}

func (b *Budget) reclaimLocked(now time.Time, keep string) ReclaimReport {
	var report ReclaimReport
	for id, a := range b.allocations {
		if id == keep || now.Sub(a.LastAccessedAt) <= b.config.MaxAge {
			continue
		}
		b.total -= a.SizeBytes
		delete(b.allocations, id)
		report.Freed++
		report.FreedBytes += a.SizeBytes
		report.IDs = append(report.IDs, id)
	}
	b.reclaimed += int64(report.Freed)
	return report
}

func (b *Budget) notify(report ReclaimReport) {
	if report.Freed > 0 && b.config.OnReclaim != nil {
		b.config.OnReclaim(report)
	}
}

// Utilization returns the tracked total as a fraction of the ceiling.
func (b *Budget) Utilization() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.total) / float64(b.config.MaxTotalBytes)
}

// Stats returns budget statistics.
func (b *Budget) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		TrackedTotal: b.total,
		Allocations:  len(b.allocations),
		MaxTotal:     b.config.MaxTotalBytes,
		MaxItem:      b.config.MaxItemBytes,
		Utilization:  float64(b.total) / float64(b.config.MaxTotalBytes),
		Peak:         b.peak,
		Rejections:   b.rejections,
		Reclaimed:    b.reclaimed,
	}
}

// Start launches the background pressure sweep. Calling Start on a
// running budget is a no-op.
func (b *Budget) Start() {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		return
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	stop, done := b.stop, b.done
	b.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.sweep()
			}
		}
	}()
}

// sweep reclaims idle reservations only under pressure.
func (b *Budget) sweep() ReclaimReport {
	if b.Utilization() < b.config.PressureThreshold {
		return ReclaimReport{}
	}
	return b.Reclaim()
}

// Stop halts the background sweep and waits for it to exit.
func (b *Budget) Stop() {
	b.mu.Lock()
	if b.stop == nil {
		b.mu.Unlock()
		return
	}
	close(b.stop)
	done := b.done
	b.stop, b.done = nil, nil
	b.mu.Unlock()

	<-done
}
