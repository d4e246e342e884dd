package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/reportops/observe"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("config: invalid settings")

// Default values.
const (
	DefaultRetryAttempts       = 3
	DefaultMaxConnections      = 10
	DefaultMaxQueueSize        = 100
	DefaultMaxFileSize         = 50 << 20
	DefaultMaxTotalMemory      = 512 << 20
	DefaultHealthCheckInterval = 30000
	DefaultCacheTTL            = 5 * time.Minute
	DefaultCacheMaxEntries     = 1000
	DefaultRequestTimeout      = 30 * time.Second
	DefaultLogLevel            = "info"
)

// Settings sizes the governance layer.
type Settings struct {
	// RetryAttempts is the maximum number of attempts per operation.
	// Zero or one means a single attempt.
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"`

	// MaxConnections bounds concurrently running remote operations.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	// MaxQueueSize bounds requests waiting for a connection.
	MaxQueueSize int `mapstructure:"max_queue_size" yaml:"max_queue_size"`

	// MaxFileSize is the largest single payload reservation in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`

	// MaxTotalMemory is the ceiling for all payload reservations in bytes.
	MaxTotalMemory int64 `mapstructure:"max_total_memory" yaml:"max_total_memory"`

	// HealthCheckInterval is the probe cycle period in milliseconds.
	HealthCheckInterval int `mapstructure:"health_check_interval" yaml:"health_check_interval"`

	// DebugMode enables verbose per-step run logging.
	DebugMode bool `mapstructure:"debug_mode" yaml:"debug_mode"`

	// CacheTTL is the default lifetime of cached results.
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// CacheMaxEntries bounds the result cache.
	CacheMaxEntries int `mapstructure:"cache_max_entries" yaml:"cache_max_entries"`

	// RequestTimeout bounds queue wait and run time of a pooled operation.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns settings with every field at its default.
func Default() Settings {
	return Settings{
		RetryAttempts:       DefaultRetryAttempts,
		MaxConnections:      DefaultMaxConnections,
		MaxQueueSize:        DefaultMaxQueueSize,
		MaxFileSize:         DefaultMaxFileSize,
		MaxTotalMemory:      DefaultMaxTotalMemory,
		HealthCheckInterval: DefaultHealthCheckInterval,
		CacheTTL:            DefaultCacheTTL,
		CacheMaxEntries:     DefaultCacheMaxEntries,
		RequestTimeout:      DefaultRequestTimeout,
		LogLevel:            DefaultLogLevel,
	}
}

// ApplyDefaults fills zero-valued fields whose zero value is not
// meaningful. RetryAttempts and DebugMode are left as given.
func (s *Settings) ApplyDefaults() {
	if s.MaxConnections == 0 {
		s.MaxConnections = DefaultMaxConnections
	}
	if s.MaxQueueSize == 0 {
		s.MaxQueueSize = DefaultMaxQueueSize
	}
	if s.MaxFileSize == 0 {
		s.MaxFileSize = DefaultMaxFileSize
	}
	if s.MaxTotalMemory == 0 {
		s.MaxTotalMemory = DefaultMaxTotalMemory
	}
	if s.HealthCheckInterval == 0 {
		s.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = DefaultCacheTTL
	}
	if s.CacheMaxEntries == 0 {
		s.CacheMaxEntries = DefaultCacheMaxEntries
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.DebugMode {
		s.LogLevel = "debug"
	}
}

// Validate reports every out-of-range field.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
		}
	}

	check(s.RetryAttempts >= 0, "retry_attempts must be >= 0 (got %d)", s.RetryAttempts)
	check(s.MaxConnections > 0, "max_connections must be > 0 (got %d)", s.MaxConnections)
	check(s.MaxQueueSize > 0, "max_queue_size must be > 0 (got %d)", s.MaxQueueSize)
	check(s.MaxFileSize > 0, "max_file_size must be > 0 (got %d)", s.MaxFileSize)
	check(s.MaxTotalMemory > 0, "max_total_memory must be > 0 (got %d)", s.MaxTotalMemory)
	check(s.MaxFileSize <= s.MaxTotalMemory, "max_file_size (%d) must not exceed max_total_memory (%d)", s.MaxFileSize, s.MaxTotalMemory)
	check(s.HealthCheckInterval > 0, "health_check_interval must be > 0 (got %d)", s.HealthCheckInterval)
	check(s.CacheTTL > 0, "cache_ttl must be > 0 (got %s)", s.CacheTTL)
	check(s.CacheMaxEntries > 0, "cache_max_entries must be > 0 (got %d)", s.CacheMaxEntries)
	check(s.RequestTimeout > 0, "request_timeout must be > 0 (got %s)", s.RequestTimeout)

	validLevel := s.LogLevel != "" && slices.Contains(observe.ValidLogLevels, s.LogLevel)
	check(validLevel, "log_level %q is not one of trace, debug, info, warn, error", s.LogLevel)

	return errors.Join(errs...)
}

// HealthInterval returns HealthCheckInterval as a duration.
func (s Settings) HealthInterval() time.Duration {
	return time.Duration(s.HealthCheckInterval) * time.Millisecond
}
