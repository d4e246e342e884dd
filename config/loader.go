package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes environment variables read by Load.
const DefaultEnvPrefix = "REPORTOPS"

// LoaderOptions selects the sources Load reads.
type LoaderOptions struct {
	// ConfigFile is an optional YAML file.
	ConfigFile string

	// EnvFile is an optional .env file. Its entries apply only to
	// variables not already set in the process environment.
	EnvFile string

	// EnvPrefix overrides DefaultEnvPrefix.
	EnvPrefix string
}

// settingKeys lists every key Load binds.
var settingKeys = []string{
	"retry_attempts",
	"max_connections",
	"max_queue_size",
	"max_file_size",
	"max_total_memory",
	"health_check_interval",
	"debug_mode",
	"cache_ttl",
	"cache_max_entries",
	"request_timeout",
	"log_level",
}

// Load reads settings from defaults, the YAML file, the .env file and the
// environment, then applies defaults and validates the result.
func Load(opts LoaderOptions) (Settings, error) {
	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	v := viper.New()
	setDefaults(v, Default())

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.EnvFile != "" {
		if err := applyEnvFile(v, opts.EnvFile, prefix); err != nil {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: decode settings: %w", err)
	}

	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("retry_attempts", d.RetryAttempts)
	v.SetDefault("max_connections", d.MaxConnections)
	v.SetDefault("max_queue_size", d.MaxQueueSize)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("max_total_memory", d.MaxTotalMemory)
	v.SetDefault("health_check_interval", d.HealthCheckInterval)
	v.SetDefault("debug_mode", d.DebugMode)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("cache_max_entries", d.CacheMaxEntries)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("log_level", d.LogLevel)
}

// applyEnvFile reads a .env file without touching the process
// environment and applies prefixed entries that the environment does
// not already define.
func applyEnvFile(v *viper.Viper, path, prefix string) error {
	entries, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	for _, key := range settingKeys {
		envName := prefix + "_" + strings.ToUpper(key)
		value, ok := entries[envName]
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(envName); set {
			continue
		}
		v.Set(key, value)
	}
	return nil
}
