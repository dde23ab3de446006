package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "INTAKE_STORE_DRIVER", "INTAKE_MAX_RETRIES", "INTAKE_SERVICES", "INTAKE_STORE_DSN"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "intake.yaml", `
max_retries: 5
idle_timeout: 10m
services: [audit, hosting]
pii_mask: ["^phone$"]
store:
  driver: redis
  redis_addr: localhost:6379
  ttl: 24h
  distributed_lock: true
log:
  level: debug
  format: json
metrics:
  enabled: true
`)

	cfg, err := config.Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, []string{"audit", "hosting"}, cfg.Services)
	assert.Equal(t, []string{"^phone$"}, cfg.PIIMask)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.True(t, cfg.Store.DistributedLock)
	assert.Equal(t, 30*time.Second, cfg.Store.LockTTL, "unset keys keep their defaults")
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "intake.yaml", "max_retries: 5\nservices: [audit]\n")
	t.Setenv("INTAKE_MAX_RETRIES", "7")
	t.Setenv("INTAKE_SERVICES", " support , training ,")

	cfg, err := config.Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, []string{"support", "training"}, cfg.Services)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, "test.env", "INTAKE_STORE_DRIVER=sqlite\nINTAKE_STORE_DSN=file:test.db\nINTAKE_MAX_RETRIES=4\n")
	t.Setenv("INTAKE_MAX_RETRIES", "9")

	cfg, err := config.Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:test.db", cfg.Store.DSN)
	assert.Equal(t, 9, cfg.MaxRetries, "process environment wins over the env file")
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/intake")

	cfg, err := config.Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/intake", cfg.Store.DSN)

	t.Setenv("INTAKE_STORE_DSN", "postgres://other/intake")
	cfg, err = config.Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, "postgres://other/intake", cfg.Store.DSN)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	empty := writeFile(t, "empty.env", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), empty)
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad.yaml", "max_retries: [1"), empty)
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "unknown.yaml", "colour: blue\n"), empty)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = config.Load(writeFile(t, "type.yaml", "idle_timeout: soon\n"), empty)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	validKey := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"Defaults", func(c *config.Config) {}, false},
		{"Zero Retries", func(c *config.Config) { c.MaxRetries = 0 }, true},
		{"Zero Timeout", func(c *config.Config) { c.IdleTimeout = 0 }, true},
		{"No Services", func(c *config.Config) { c.Services = nil }, true},
		{"Unknown Driver", func(c *config.Config) { c.Store.Driver = "mongo" }, true},
		{"SQLite Without DSN", func(c *config.Config) { c.Store.Driver = config.DriverSQLite }, true},
		{"Postgres With DSN", func(c *config.Config) {
			c.Store.Driver = config.DriverPostgres
			c.Store.DSN = "postgres://x"
		}, false},
		{"Redis Without Addr", func(c *config.Config) { c.Store.Driver = config.DriverRedis }, true},
		{"Lock Without Redis", func(c *config.Config) { c.Store.DistributedLock = true }, true},
		{"Bad Log Level", func(c *config.Config) { c.Log.Level = "loud" }, true},
		{"Bad Log Format", func(c *config.Config) { c.Log.Format = "xml" }, true},
		{"Valid Key", func(c *config.Config) { c.EncryptionKey = validKey }, false},
		{"Short Key", func(c *config.Config) { c.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }, true},
		{"Fallback Without Active", func(c *config.Config) { c.FallbackKeys = []string{validKey} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := config.Default()
	cfg.EncryptionKey = "secret"
	cfg.Store.RedisPassword = "hunter2"
	cfg.Store.DSN = "postgres://user:pw@host/db"

	out, err := cfg.Redacted().YAML()
	require.NoError(t, err)
	text := string(out)
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "user:pw")
	assert.Contains(t, text, "idle_timeout: 30m0s")
	assert.Equal(t, "secret", cfg.EncryptionKey, "the original is untouched")
}

func TestDefault_MatchesEngineDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, runtime.DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, runtime.DefaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, runtime.DefaultServices, cfg.Services)

	cfg.Services[0] = "changed"
	assert.NotEqual(t, "changed", runtime.DefaultServices[0], "defaults must not share the engine's slice")
}
