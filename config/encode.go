package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// settingsDoc is the YAML shape of Settings with durations as strings.
type settingsDoc struct {
	RetryAttempts       int    `yaml:"retry_attempts"`
	MaxConnections      int    `yaml:"max_connections"`
	MaxQueueSize        int    `yaml:"max_queue_size"`
	MaxFileSize         int64  `yaml:"max_file_size"`
	MaxTotalMemory      int64  `yaml:"max_total_memory"`
	HealthCheckInterval int    `yaml:"health_check_interval"`
	DebugMode           bool   `yaml:"debug_mode"`
	CacheTTL            string `yaml:"cache_ttl"`
	CacheMaxEntries     int    `yaml:"cache_max_entries"`
	RequestTimeout      string `yaml:"request_timeout"`
	LogLevel            string `yaml:"log_level"`
}

// MarshalYAML renders durations in time.Duration string form so the
// output can be read back by Load.
func (s Settings) MarshalYAML() (any, error) {
	return settingsDoc{
		RetryAttempts:       s.RetryAttempts,
		MaxConnections:      s.MaxConnections,
		MaxQueueSize:        s.MaxQueueSize,
		MaxFileSize:         s.MaxFileSize,
		MaxTotalMemory:      s.MaxTotalMemory,
		HealthCheckInterval: s.HealthCheckInterval,
		DebugMode:           s.DebugMode,
		CacheTTL:            s.CacheTTL.String(),
		CacheMaxEntries:     s.CacheMaxEntries,
		RequestTimeout:      s.RequestTimeout.String(),
		LogLevel:            s.LogLevel,
	}, nil
}

// Write encodes s as a YAML settings file.
func Write(w io.Writer, s Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("config: encode settings: %w", err)
	}
	return enc.Close()
}
