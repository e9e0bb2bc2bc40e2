// Package config loads terminal settings from the environment and an optional
// terminal.yaml. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Scan cache backends
const (
	CacheBackendMemory  = "memory"
	CacheBackendMongoDB = "mongodb"
)

// Config groups the terminal configuration
type Config struct {
	Environment    string
	LogLevel       string
	Server         ServerConfig
	PickServer     PickServerConfig
	ScanCache      ScanCacheConfig
	MongoDB        MongoDBConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

// ServerConfig configures the local terminal API
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// PickServerConfig configures the remote pick server client
type PickServerConfig struct {
	URL            string
	Timeout        time.Duration
	StrictContract bool
}

// ScanCacheConfig configures the offline product cache
type ScanCacheConfig struct {
	Backend   string
	TTL       time.Duration
	Retention time.Duration
}

// MongoDBConfig is used when the scan cache backend is mongodb
type MongoDBConfig struct {
	URI      string
	Database string
}

// CircuitBreakerConfig configures the breaker around pick server calls
type CircuitBreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_ADDR", ":8090")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("PICK_SERVER_URL", "http://localhost:8080/api/v1")
	v.SetDefault("PICK_SERVER_TIMEOUT", "15s")
	v.SetDefault("PICK_SERVER_STRICT_CONTRACT", false)

	v.SetDefault("SCAN_CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("SCAN_CACHE_TTL", "20m")
	v.SetDefault("SCAN_CACHE_RETENTION", "24h")

	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "pick_terminal")

	v.SetDefault("CIRCUIT_BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("CIRCUIT_BREAKER_INTERVAL", "60s")
	v.SetDefault("CIRCUIT_BREAKER_TIMEOUT", "20s")
	v.SetDefault("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)
}

// Load reads configuration. path names an explicit config file; when empty,
// terminal.yaml is looked up in the working directory and ./config and is
// optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("terminal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Addr:            v.GetString("SERVER_ADDR"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		PickServer: PickServerConfig{
			URL:            strings.TrimRight(v.GetString("PICK_SERVER_URL"), "/"),
			Timeout:        v.GetDuration("PICK_SERVER_TIMEOUT"),
			StrictContract: v.GetBool("PICK_SERVER_STRICT_CONTRACT"),
		},
		ScanCache: ScanCacheConfig{
			Backend:   strings.ToLower(v.GetString("SCAN_CACHE_BACKEND")),
			TTL:       v.GetDuration("SCAN_CACHE_TTL"),
			Retention: v.GetDuration("SCAN_CACHE_RETENTION"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      v.GetUint32("CIRCUIT_BREAKER_MAX_REQUESTS"),
			Interval:         v.GetDuration("CIRCUIT_BREAKER_INTERVAL"),
			Timeout:          v.GetDuration("CIRCUIT_BREAKER_TIMEOUT"),
			FailureThreshold: v.GetUint32("CIRCUIT_BREAKER_FAILURE_THRESHOLD"),
		},
		Tracing: TracingConfig{
			Enabled:    v.GetBool("TRACING_ENABLED"),
			Endpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate: v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the terminal cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.PickServer.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PICK_SERVER_URL %q", c.PickServer.URL)
	}
	if c.PickServer.Timeout <= 0 {
		return fmt.Errorf("PICK_SERVER_TIMEOUT must be positive, got %s", c.PickServer.Timeout)
	}
	if c.ScanCache.TTL <= 0 {
		return fmt.Errorf("SCAN_CACHE_TTL must be positive, got %s", c.ScanCache.TTL)
	}
	switch c.ScanCache.Backend {
	case CacheBackendMemory:
	case CacheBackendMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI is required for the mongodb scan cache")
		}
	default:
		return fmt.Errorf("unknown SCAN_CACHE_BACKEND %q", c.ScanCache.Backend)
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		return errors.New("CIRCUIT_BREAKER_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}
