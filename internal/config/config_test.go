package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.PickServer.URL)
	assert.Equal(t, 15*time.Second, cfg.PickServer.Timeout)
	assert.False(t, cfg.PickServer.StrictContract)
	assert.Equal(t, CacheBackendMemory, cfg.ScanCache.Backend)
	assert.Equal(t, 20*time.Minute, cfg.ScanCache.TTL)
	assert.Equal(t, uint32(5), cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, uint32(1), cfg.CircuitBreaker.MaxRequests)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PICK_SERVER_URL", "https://picks.example.com/api/")
	t.Setenv("PICK_SERVER_TIMEOUT", "3s")
	t.Setenv("PICK_SERVER_STRICT_CONTRACT", "true")
	t.Setenv("SCAN_CACHE_BACKEND", "MongoDB")
	t.Setenv("SCAN_CACHE_TTL", "5m")
	t.Setenv("CIRCUIT_BREAKER_FAILURE_THRESHOLD", "2")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "https://picks.example.com/api", cfg.PickServer.URL)
	assert.Equal(t, 3*time.Second, cfg.PickServer.Timeout)
	assert.True(t, cfg.PickServer.StrictContract)
	assert.Equal(t, CacheBackendMongoDB, cfg.ScanCache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.ScanCache.TTL)
	assert.Equal(t, uint32(2), cfg.CircuitBreaker.FailureThreshold)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terminal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_ADDR: \":9000\"\nSCAN_CACHE_TTL: 10m\n"), 0o600))
	t.Setenv("SCAN_CACHE_TTL", "90s")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 90*time.Second, cfg.ScanCache.TTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			PickServer:     PickServerConfig{URL: "http://localhost:8080", Timeout: time.Second},
			ScanCache:      ScanCacheConfig{Backend: CacheBackendMemory, TTL: time.Minute},
			CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"relative url", func(c *Config) { c.PickServer.URL = "/api" }, true},
		{"zero timeout", func(c *Config) { c.PickServer.Timeout = 0 }, true},
		{"zero ttl", func(c *Config) { c.ScanCache.TTL = 0 }, true},
		{"unknown backend", func(c *Config) { c.ScanCache.Backend = "redis" }, true},
		{"mongodb without uri", func(c *Config) { c.ScanCache.Backend = CacheBackendMongoDB }, true},
		{"zero failure threshold", func(c *Config) { c.CircuitBreaker.FailureThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
