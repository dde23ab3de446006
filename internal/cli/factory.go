// Package cli builds engines from configuration for the intake command.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/adapters/file"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/adapters/sqlstore"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
)

// Backend is an opened session store with its optional locker.
type Backend struct {
	Store  ports.SessionStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenBackend opens the store selected by cfg.
func OpenBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Backend, error) {
	nop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverMemory, "":
		return &Backend{Store: memory.NewStore(), Close: nop}, nil

	case config.DriverFile:
		return &Backend{Store: file.New(cfg.Path), Close: nop}, nil

	case config.DriverRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		b := &Backend{Store: store, Close: store.Close}
		if cfg.DistributedLock {
			b.Locker = redis.NewLocker(store.Client(), store.Prefix())
		}
		return b, nil

	case config.DriverSQLite, config.DriverPostgres:
		store, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, Close: store.Close}, nil
	}
	return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Driver)
}

// StoreMiddlewares builds the store decorators requested by cfg: PII masking
// first, so that encryption sees the masked record.
func StoreMiddlewares(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.PIIMask) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PIIMask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		active, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		encCfg := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.FallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, err
			}
			encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
		}
		enc, err := middleware.NewEncryptionMiddleware(encCfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

// BuildEngine wires an engine from cfg. The returned func releases the store.
func BuildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*intake.Engine, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	backend, err := OpenBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	mws, err := StoreMiddlewares(cfg)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	opts := []intake.Option{
		intake.WithStore(backend.Store),
		intake.WithStoreMiddleware(mws...),
		intake.WithLogger(logger),
		intake.WithMaxRetries(cfg.MaxRetries),
		intake.WithIdleTimeout(cfg.IdleTimeout),
		intake.WithServices(cfg.Services...),
		intake.WithLifecycleHooks(domain.ChainHooks(hooks...)),
	}
	if backend.Locker != nil {
		opts = append(opts, intake.WithLocker(backend.Locker), intake.WithLockTTL(cfg.Store.LockTTL))
	}

	eng, err := intake.New(opts...)
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	logger.Debug("Engine ready", "driver", cfg.Store.Driver, "encrypted", cfg.EncryptionKey != "")
	return eng, backend.Close, nil
}

// NewLogger configures the application logger. It writes to Stderr so stdout
// stays free for the chat UI and the MCP stdio transport. Debug forces the
// debug level.
func NewLogger(cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	if cfg.Format == "json" {
		return logging.NewJSON(os.Stderr, level), nil
	}
	return logging.NewText(os.Stderr, level), nil
}
