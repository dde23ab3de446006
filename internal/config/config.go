// Package config loads the runtime configuration of the intake binaries.
//
// Values are layered: built-in defaults, then an optional YAML file, then an
// optional .env file, then INTAKE_* environment variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultEnvFile is read when Load is given no explicit env files.
const DefaultEnvFile = ".env"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var drivers = []string{DriverMemory, DriverFile, DriverRedis, DriverSQLite, DriverPostgres}

// Config is the effective configuration.
type Config struct {
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Services    []string      `mapstructure:"services" yaml:"services"`

	// EncryptionKey is a base64 AES-256 key. When set, sessions are encrypted at rest.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key,omitempty"`
	FallbackKeys  []string `mapstructure:"encryption_fallback_keys" yaml:"encryption_fallback_keys,omitempty"`

	// PIIMask lists step patterns whose history entries are masked before storage.
	PIIMask []string `mapstructure:"pii_mask" yaml:"pii_mask,omitempty"`

	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path,omitempty"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix,omitempty"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// DistributedLock guards sessions with a Redis lock. Only valid with the redis driver.
	DistributedLock bool          `mapstructure:"distributed_lock" yaml:"distributed_lock"`
	LockTTL         time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxRetries:  runtime.DefaultMaxRetries,
		IdleTimeout: runtime.DefaultIdleTimeout,
		Services:    slices.Clone(runtime.DefaultServices),
		Store: StoreConfig{
			Driver:  DriverMemory,
			Path:    ".intake/sessions",
			LockTTL: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envBindings maps environment variables to configuration keys.
var envBindings = []struct {
	env  string
	path []string
}{
	{"INTAKE_MAX_RETRIES", []string{"max_retries"}},
	{"INTAKE_IDLE_TIMEOUT", []string{"idle_timeout"}},
	{"INTAKE_SERVICES", []string{"services"}},
	{"INTAKE_ENCRYPTION_KEY", []string{"encryption_key"}},
	{"INTAKE_ENCRYPTION_FALLBACK_KEYS", []string{"encryption_fallback_keys"}},
	{"INTAKE_PII_MASK", []string{"pii_mask"}},
	{"INTAKE_STORE_DRIVER", []string{"store", "driver"}},
	{"INTAKE_STORE_PATH", []string{"store", "path"}},
	{"DATABASE_URL", []string{"store", "dsn"}},
	{"INTAKE_STORE_DSN", []string{"store", "dsn"}},
	{"INTAKE_REDIS_ADDR", []string{"store", "redis_addr"}},
	{"INTAKE_REDIS_PASSWORD", []string{"store", "redis_password"}},
	{"INTAKE_REDIS_DB", []string{"store", "redis_db"}},
	{"INTAKE_STORE_PREFIX", []string{"store", "prefix"}},
	{"INTAKE_STORE_TTL", []string{"store", "ttl"}},
	{"INTAKE_DISTRIBUTED_LOCK", []string{"store", "distributed_lock"}},
	{"INTAKE_LOCK_TTL", []string{"store", "lock_ttl"}},
	{"INTAKE_HTTP_ADDR", []string{"http", "addr"}},
	{"INTAKE_CORS_ORIGINS", []string{"http", "cors_origins"}},
	{"INTAKE_LOG_LEVEL", []string{"log", "level"}},
	{"INTAKE_LOG_FORMAT", []string{"log", "format"}},
	{"INTAKE_METRICS_ENABLED", []string{"metrics", "enabled"}},
}

// Load builds the configuration from the YAML file at path (skipped when
// empty) and the given env files. With no env files, DefaultEnvFile is read if
// it exists. Env files never override variables already set in the process.
func Load(path string, envFiles ...string) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	for _, b := range envBindings {
		if v, ok := lookup(b.env); ok && v != "" {
			set(raw, b.path, v)
		}
	}

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return map[string]string{}, nil
		}
		files = []string{DefaultEnvFile}
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}

// set stores value at the nested key path, creating intermediate maps.
func set(m map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		// Slices from a layer replace the defaults instead of overwriting them in place.
		ZeroFields: true,
		Result:     cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Services = trimAll(cfg.Services)
	cfg.PIIMask = trimAll(cfg.PIIMask)
	cfg.HTTP.CORSOrigins = trimAll(cfg.HTTP.CORSOrigins)
	return nil
}

// trimAll trims every item and drops the empty ones.
func trimAll(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle_timeout must be positive", ErrInvalidConfig)
	case len(c.Services) == 0:
		return fmt.Errorf("%w: services must not be empty", ErrInvalidConfig)
	case !slices.Contains(drivers, c.Store.Driver):
		return fmt.Errorf("%w: unknown store driver %q (want one of %s)", ErrInvalidConfig, c.Store.Driver, strings.Join(drivers, ", "))
	case (c.Store.Driver == DriverSQLite || c.Store.Driver == DriverPostgres) && c.Store.DSN == "":
		return fmt.Errorf("%w: store.dsn is required for the %s driver", ErrInvalidConfig, c.Store.Driver)
	case c.Store.Driver == DriverRedis && c.Store.RedisAddr == "":
		return fmt.Errorf("%w: store.redis_addr is required for the redis driver", ErrInvalidConfig)
	case c.Store.DistributedLock && c.Store.Driver != DriverRedis:
		return fmt.Errorf("%w: store.distributed_lock requires the redis driver", ErrInvalidConfig)
	case !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)):
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	case c.Log.Format != "text" && c.Log.Format != "json":
		return fmt.Errorf("%w: log.format must be text or json", ErrInvalidConfig)
	}

	if c.EncryptionKey == "" && len(c.FallbackKeys) > 0 {
		return fmt.Errorf("%w: encryption_fallback_keys without encryption_key", ErrInvalidConfig)
	}
	for _, k := range append([]string{c.EncryptionKey}, c.FallbackKeys...) {
		if k == "" {
			continue
		}
		if _, err := middleware.DecodeKey(k); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.EncryptionKey != "" {
		out.EncryptionKey = "***"
	}
	if len(out.FallbackKeys) > 0 {
		out.FallbackKeys = []string{"***"}
	}
	if out.Store.RedisPassword != "" {
		out.Store.RedisPassword = "***"
	}
	if out.Store.DSN != "" {
		out.Store.DSN = "***"
	}
	return &out
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
