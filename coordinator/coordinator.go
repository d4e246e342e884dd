package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/reportops/cache"
	"github.com/jonwraymond/reportops/config"
	"github.com/jonwraymond/reportops/health"
	"github.com/jonwraymond/reportops/memory"
	"github.com/jonwraymond/reportops/observe"
	"github.com/jonwraymond/reportops/resilience"
)

// Config configures a Coordinator. Zero-valued component configs take
// the defaults of their constructors.
type Config struct {
	Retry   resilience.RetryPolicy
	Pool    resilience.PoolConfig
	Breaker resilience.BreakerConfig
	Cache   cache.TTLCacheConfig
	Memory  memory.Config
	Health  health.RegistryConfig

	// DebugMode logs every step of every run at debug level.
	DebugMode bool
}

// DefaultConfig returns the Config derived from default settings.
func DefaultConfig() Config {
	return ConfigFromSettings(config.Default())
}

// ConfigFromSettings maps loaded settings onto component configs.
func ConfigFromSettings(s config.Settings) Config {
	s.ApplyDefaults()

	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = s.RetryAttempts

	maxTTL := cache.DefaultPolicy().MaxTTL
	if s.CacheTTL > maxTTL {
		maxTTL = s.CacheTTL
	}

	return Config{
		Retry: retry,
		Pool: resilience.PoolConfig{
			MaxConcurrent:  s.MaxConnections,
			MaxQueueSize:   s.MaxQueueSize,
			DefaultTimeout: s.RequestTimeout,
		},
		Cache: cache.TTLCacheConfig{
			MaxEntries: s.CacheMaxEntries,
			Policy:     cache.Policy{DefaultTTL: s.CacheTTL, MaxTTL: maxTTL},
		},
		Memory: memory.Config{
			MaxTotalBytes: s.MaxTotalMemory,
			MaxItemBytes:  s.MaxFileSize,
		},
		Health: health.RegistryConfig{
			Interval: s.HealthInterval(),
		},
		DebugMode: s.DebugMode,
	}
}

// Option customizes a Coordinator.
type Option func(*options)

type options struct {
	logger   observe.Logger
	tracer   observe.Tracer
	metrics  observe.Metrics
	observer observe.Observer
	keyer    cache.Keyer
	clock    func() time.Time
}

// WithLogger sets the logger used for run and lifecycle logs.
func WithLogger(logger observe.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver takes tracer, meter and logger from obs. Explicit
// WithLogger, WithTracer and WithMetrics options take precedence.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithMetrics sets the run metrics recorder.
func WithMetrics(metrics observe.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithTracer sets the run tracer.
func WithTracer(tracer observe.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithKeyer sets how cache keys are derived from RunOptions.CacheParams.
// Default: cache.NewDefaultKeyer()
func WithKeyer(keyer cache.Keyer) Option {
	return func(o *options) { o.keyer = keyer }
}

// WithClock sets the clock shared by the cache, memory budget and health
// registry unless their configs already name one.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// Built-in probe names.
const (
	ProbeMemoryBudget = "memory-budget"
	ProbeHeap         = "heap"
)

// Coordinator runs operations under retry, pool admission, caching and
// memory governance.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Errors: operation errors are returned unwrapped; admission errors
//     satisfy IsGovernance.
type Coordinator struct {
	config Config
	now    func() time.Time

	retry    *resilience.RetryExecutor
	pool     *resilience.Pool
	breakers *resilience.Breakers
	cache    *cache.TTLCache
	memory   *memory.Budget
	health   *health.Registry

	keyer      cache.Keyer
	logger     observe.Logger
	middleware *observe.Middleware
	gauges     metric.Registration
	group      singleflight.Group

	runs                 atomic.Int64
	cacheHits            atomic.Int64
	failures             atomic.Int64
	governanceRejections atomic.Int64

	mu        sync.Mutex
	started   bool
	destroyed bool
}

// New creates a Coordinator and registers the built-in advisory probes
// and metric gauges.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.observer != nil {
		if o.logger == nil {
			o.logger = o.observer.Logger()
		}
		if o.tracer == nil {
			o.tracer = observe.NewTracer(o.observer.Tracer())
		}
		if o.metrics == nil {
			m, err := observe.NewMetrics(o.observer.Meter())
			if err != nil {
				return nil, fmt.Errorf("coordinator: metrics: %w", err)
			}
			o.metrics = m
		}
	}
	if o.logger == nil {
		o.logger = observe.NewNoopLogger()
	}
	if o.keyer == nil {
		o.keyer = cache.NewDefaultKeyer()
	}
	if o.clock != nil {
		if cfg.Cache.Clock == nil {
			cfg.Cache.Clock = o.clock
		}
		if cfg.Memory.Clock == nil {
			cfg.Memory.Clock = o.clock
		}
		if cfg.Health.Clock == nil {
			cfg.Health.Clock = o.clock
		}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if cfg.Retry.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: retry max attempts must be >= 0 (got %d)", ErrInvalidConfig, cfg.Retry.MaxAttempts)
	}

	c := &Coordinator{
		config:     cfg,
		now:        o.clock,
		keyer:      o.keyer,
		logger:     o.logger,
		middleware: observe.NewMiddleware(o.tracer, o.metrics, o.logger),
	}

	poolCfg := cfg.Pool
	onQueue := poolCfg.OnQueueChange
	poolCfg.OnQueueChange = func(ev resilience.QueueEvent) {
		if onQueue != nil {
			onQueue(ev)
		}
		c.debug(context.Background(), "pool queue change",
			observe.F("event", ev.Kind.String()),
			observe.F("queue_length", ev.QueueLength),
			observe.F("running", ev.Running),
			observe.F("waited", ev.Waited),
		)
	}

	memCfg := cfg.Memory
	onReclaim := memCfg.OnReclaim
	memCfg.OnReclaim = func(r memory.ReclaimReport) {
		if onReclaim != nil {
			onReclaim(r)
		}
		c.logger.Info(context.Background(), "memory reclaimed",
			observe.F("freed", r.Freed),
			observe.F("freed_bytes", r.FreedBytes),
		)
	}

	breakerCfg := cfg.Breaker
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(id string, from, to resilience.BreakerState) {
		if onChange != nil {
			onChange(id, from, to)
		}
		fields := []observe.Field{
			observe.F("operation", id),
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		}
		if to == resilience.BreakerOpen {
			c.logger.Warn(context.Background(), "circuit opened", fields...)
			return
		}
		c.logger.Info(context.Background(), "circuit state changed", fields...)
	}

	c.retry = resilience.NewRetryExecutor(cfg.Retry)
	c.pool = resilience.NewPool(poolCfg)
	c.breakers = resilience.NewBreakers(breakerCfg)
	c.cache = cache.NewTTLCache(cfg.Cache)
	c.memory = memory.NewBudget(memCfg)
	c.health = health.NewRegistry(cfg.Health)

	if err := c.health.Register(ProbeMemoryBudget, newBudgetChecker(c.memory), health.ProbeOptions{}); err != nil {
		return nil, fmt.Errorf("coordinator: register probe: %w", err)
	}
	if err := c.health.Register(ProbeHeap, health.NewHeapChecker(health.HeapCheckerConfig{}), health.ProbeOptions{}); err != nil {
		return nil, fmt.Errorf("coordinator: register probe: %w", err)
	}
	c.health.OnEvent(c.logHealthEvent)

	gauges, err := c.middleware.Metrics().ObserveGauges(observe.GaugeSource{
		PoolRunning:        func() int64 { return int64(c.pool.Stats().Running) },
		PoolQueueLength:    func() int64 { return int64(c.pool.Stats().QueueLength) },
		MemoryTrackedBytes: func() int64 { return c.memory.Stats().TrackedTotal },
		CacheSize:          func() int64 { return int64(c.cache.Len()) },
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: gauges: %w", err)
	}
	c.gauges = gauges

	return c, nil
}

// NewFromSettings validates s and creates a Coordinator from it. Unless
// overridden by opts, the logger writes to stderr at s.LogLevel.
func NewFromSettings(s config.Settings, opts ...Option) (*Coordinator, error) {
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithLogger(observe.NewLogger(s.LogLevel))}, opts...)
	return New(ConfigFromSettings(s), opts...)
}

// Config returns the configuration the coordinator was built with.
func (c *Coordinator) Config() Config {
	return c.config
}

// Health returns the registry for registering additional probes.
func (c *Coordinator) Health() *health.Registry {
	return c.health
}

// Invalidate removes key from the result cache.
func (c *Coordinator) Invalidate(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// Start launches the background cache sweep, memory pressure sweep and
// health cycle. Calling Start again before Stop is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.destroyed {
		return
	}
	c.started = true

	c.cache.Start()
	c.memory.Start()
	c.health.Start(ctx)
	c.logger.Info(ctx, "coordinator started")
}

// Stop halts the background loops started by Start.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if !c.started {
		return
	}
	c.started = false

	c.health.Stop()
	c.memory.Stop()
	c.cache.Stop()
	c.logger.Info(context.Background(), "coordinator stopped")
}

// Destroy stops the coordinator, closes the pool, clears the cache and
// unregisters metric gauges. Subsequent runs fail with ErrDestroyed.
func (c *Coordinator) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	c.stopLocked()
	c.destroyed = true

	c.pool.Close()
	c.cache.Clear()
	return c.gauges.Unregister()
}

func (c *Coordinator) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *Coordinator) logHealthEvent(ev health.Event) {
	fields := []observe.Field{
		observe.F("probe", ev.Probe),
		observe.F("status", ev.Result.Status.String()),
		observe.F("detail", ev.Result.Message),
	}
	switch ev.Kind {
	case health.EventCriticalFailure:
		c.logger.Error(context.Background(), "critical probe failing", fields...)
	case health.EventCriticalRecovered:
		c.logger.Info(context.Background(), "critical probe recovered", fields...)
	}
}

func (c *Coordinator) debug(ctx context.Context, msg string, fields ...observe.Field) {
	if c.config.DebugMode {
		c.logger.Debug(ctx, msg, fields...)
	}
}
