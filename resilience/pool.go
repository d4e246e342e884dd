package resilience

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PoolConfig configures the resource pool.
type PoolConfig struct {
	// MaxConcurrent is the maximum number of operations running at once.
	// Default: 10
	MaxConcurrent int

	// MaxQueueSize is the number of requests that may wait for a slot.
	// Zero disables queueing: a busy pool rejects at once.
	MaxQueueSize int

	// DefaultTimeout bounds both the queue wait and the run time of a
	// request that does not set its own.
	// Default: 30s
	DefaultTimeout time.Duration

	// OnQueueChange is called, outside the pool lock, whenever the queue
	// changes.
	OnQueueChange func(QueueEvent)
}

// RunOptions tunes a single pool request.
type RunOptions struct {
	// Timeout overrides PoolConfig.DefaultTimeout for this request.
	Timeout time.Duration
}

// QueueEventKind identifies a queue transition.
type QueueEventKind int

const (
	// QueueEnqueued means a request started waiting for a slot.
	QueueEnqueued QueueEventKind = iota
	// QueueAdmitted means a waiting request was granted a slot.
	QueueAdmitted
	// QueueExpired means a waiting request exceeded its timeout.
	QueueExpired
	// QueueRejected means a request was refused because the queue was full.
	QueueRejected
	// QueueCancelled means a waiting request was abandoned by its caller.
	QueueCancelled
)

// String returns the string representation of the event kind.
func (k QueueEventKind) String() string {
	switch k {
	case QueueEnqueued:
		return "enqueued"
	case QueueAdmitted:
		return "admitted"
	case QueueExpired:
		return "expired"
	case QueueRejected:
		return "rejected"
	case QueueCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// QueueEvent describes a change in the pool queue.
type QueueEvent struct {
	Kind        QueueEventKind
	RequestID   string
	QueueLength int
	Running     int
	Waited      time.Duration
}

type requestState int

const (
	stateQueued requestState = iota
	stateAdmitted
	stateExpired
	stateAbandoned
)

type poolRequest struct {
	id         string
	enqueuedAt time.Time
	timeout    time.Duration
	elem       *list.Element
	state      requestState

	// admit receives nil on admission or the error that ends the wait.
	admit chan error
}

// Pool bounds the number of concurrently running operations. Requests
// beyond the limit wait in a bounded FIFO queue.
type Pool struct {
	config PoolConfig
	now    func() time.Time

	mu      sync.Mutex
	running int
	queue   *list.List
	closed  bool
	stats   PoolStats
}

// NewPool creates a new resource pool.
func NewPool(config PoolConfig) *Pool {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxQueueSize < 0 {
		config.MaxQueueSize = 0
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}

	return &Pool{
		config: config,
		now:    time.Now,
		queue:  list.New(),
	}
}

// Config returns the pool configuration.
func (p *Pool) Config() PoolConfig {
	return p.config
}

// Run executes op once a slot is available.
//
// A free slot runs op immediately. Otherwise the request waits in the
// queue, or fails with ErrQueueFull when the queue is at capacity. A
// request that waits longer than its timeout fails with ErrQueueTimeout
// and never runs. A running op that exceeds its timeout fails the call
// with ErrTimeout and releases the slot; op itself observes the
// cancelled context.
func (p *Pool) Run(ctx context.Context, op OperationFunc, opts RunOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.config.DefaultTimeout
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if p.running < p.config.MaxConcurrent && p.queue.Len() == 0 {
		p.running++
		p.stats.Created++
		p.mu.Unlock()
		return p.execute(ctx, op, timeout)
	}

	if p.queue.Len() >= p.config.MaxQueueSize {
		p.stats.Rejected++
		ev := p.eventLocked(QueueRejected, "", 0)
		p.mu.Unlock()
		p.emit(ev)
		return nil, ErrQueueFull
	}

	r := &poolRequest{
		id:         uuid.NewString(),
		enqueuedAt: p.now(),
		timeout:    timeout,
		admit:      make(chan error, 1),
	}
	r.elem = p.queue.PushBack(r)
	p.stats.Queued++
	ev := p.eventLocked(QueueEnqueued, r.id, 0)
	p.mu.Unlock()
	p.emit(ev)

	if err := p.wait(ctx, r); err != nil {
		return nil, err
	}
	return p.execute(ctx, op, timeout)
}

func (p *Pool) wait(ctx context.Context, r *poolRequest) error {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-r.admit:
		return err
	case <-timer.C:
		return p.abandon(r, ErrQueueTimeout)
	case <-ctx.Done():
		return p.abandon(r, ctx.Err())
	}
}

// abandon removes a still-queued request. If the request was admitted or
// expired concurrently, that outcome wins.
func (p *Pool) abandon(r *poolRequest, cause error) error {
	p.mu.Lock()
	if r.state == stateQueued {
		p.queue.Remove(r.elem)
		r.state = stateAbandoned

		kind := QueueCancelled
		if cause == ErrQueueTimeout {
			kind = QueueExpired
			p.stats.QueueTimeouts++
			p.stats.Failed++
		} else {
			p.stats.Cancelled++
		}
		ev := p.eventLocked(kind, r.id, p.now().Sub(r.enqueuedAt))
		p.mu.Unlock()
		p.emit(ev)
		return cause
	}
	p.mu.Unlock()

	if err := <-r.admit; err != nil {
		return err
	}

	// Admitted before expiring; a cancelled caller hands the slot back.
	if cause != ErrQueueTimeout {
		p.release()
		return cause
	}
	return nil
}

func (p *Pool) execute(ctx context.Context, op OperationFunc, timeout time.Duration) (any, error) {
	defer p.release()

	v, err := ExecuteWithTimeout(ctx, timeout, op)

	p.mu.Lock()
	switch {
	case err == nil:
		p.stats.Completed++
	case errors.Is(err, ErrTimeout):
		p.stats.Timeouts++
		p.stats.Failed++
	default:
		p.stats.Failed++
	}
	p.mu.Unlock()

	return v, err
}

func (p *Pool) release() {
	p.mu.Lock()
	p.running--
	p.stats.Destroyed++
	events := p.admitLocked()
	p.mu.Unlock()

	p.emit(events...)
}

// admitLocked hands free slots to waiting requests in enqueue order,
// failing any that already waited past their timeout.
func (p *Pool) admitLocked() []QueueEvent {
	var events []QueueEvent
	now := p.now()

	for p.running < p.config.MaxConcurrent && p.queue.Len() > 0 {
		r := p.queue.Remove(p.queue.Front()).(*poolRequest)
		waited := now.Sub(r.enqueuedAt)

		if waited > r.timeout {
			r.state = stateExpired
			p.stats.QueueTimeouts++
			p.stats.Failed++
			r.admit <- ErrQueueTimeout
			events = append(events, p.eventLocked(QueueExpired, r.id, waited))
			continue
		}

		r.state = stateAdmitted
		p.running++
		p.stats.Created++
		r.admit <- nil
		events = append(events, p.eventLocked(QueueAdmitted, r.id, waited))
	}

	return events
}

func (p *Pool) eventLocked(kind QueueEventKind, id string, waited time.Duration) QueueEvent {
	return QueueEvent{
		Kind:        kind,
		RequestID:   id,
		QueueLength: p.queue.Len(),
		Running:     p.running,
		Waited:      waited,
	}
}

func (p *Pool) emit(events ...QueueEvent) {
	if p.config.OnQueueChange == nil {
		return
	}
	for _, ev := range events {
		p.config.OnQueueChange(ev)
	}
}

// Close rejects all queued requests with ErrPoolClosed and refuses new
// ones. Running operations finish normally.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for e := p.queue.Front(); e != nil; e = e.Next() {
		r := e.Value.(*poolRequest)
		r.state = stateAbandoned
		r.admit <- ErrPoolClosed
	}
	p.queue.Init()
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Running = p.running
	s.QueueLength = p.queue.Len()
	s.MaxConcurrent = p.config.MaxConcurrent
	s.MaxQueueSize = p.config.MaxQueueSize
	s.Utilization = float64(p.running) / float64(p.config.MaxConcurrent)
	return s
}

// PoolStats contains pool statistics. Counters are monotonic.
type PoolStats struct {
	// Created counts slots handed out; Destroyed counts slots returned.
	Created   int64
	Destroyed int64

	Queued        int64
	Completed     int64
	Failed        int64
	Rejected      int64
	QueueTimeouts int64
	Timeouts      int64
	Cancelled     int64

	Running       int
	QueueLength   int
	MaxConcurrent int
	MaxQueueSize  int
	Utilization   float64
}
