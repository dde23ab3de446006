package intake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

// Engine is the high-level entry point for the intake library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager

	store       ports.SessionStore
	middlewares []middleware.Middleware
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store. The default keeps sessions in memory.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStoreMiddleware wraps the store with the given middlewares, the first
// one outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithLocker enables distributed locking of sessions, for deployments where
// several processes share one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxRetries sets how many invalid answers in a row reset the flow (default 3).
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxRetries(n))
	}
}

// WithIdleTimeout sets how long a session may stay idle before it expires
// (default 30 minutes). Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIdleTimeout(d))
	}
}

// WithServices replaces the catalogue offered at the service step.
func WithServices(services ...string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithServices(services...))
	}
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// WithIDGenerator overrides how new session IDs are allocated.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIDGenerator(newID))
	}
}

// New initializes a new intake Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if len(eng.middlewares) > 0 {
		eng.store = middleware.Chain(eng.store, eng.middlewares...)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	if eng.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.sessions, runtimeOpts...)

	if eng.runtime.MaxRetries() < 1 || len(eng.runtime.Services()) == 0 {
		return nil, fmt.Errorf("invalid engine configuration")
	}
	return eng, nil
}

// CreateSession allocates a new session and returns its ID.
func (e *Engine) CreateSession(ctx context.Context) (string, error) {
	return e.runtime.CreateSession(ctx)
}

// Start creates a session and returns its ID together with the first prompt.
func (e *Engine) Start(ctx context.Context) (string, *domain.Result, error) {
	return e.runtime.Start(ctx)
}

// ProcessTurn applies one user input to the session. An empty input re-reads
// the pending prompt; an unknown ID starts a new session under that ID.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, input string) (*domain.Result, error) {
	return e.runtime.ProcessTurn(ctx, sessionID, input)
}

// Inspect returns a copy of the stored session.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.runtime.Inspect(ctx, sessionID)
}

// Delete removes a session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.runtime.Delete(ctx, sessionID)
}

// List returns the IDs of the stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.runtime.List(ctx)
}

// Services returns the catalogue offered at the service step.
func (e *Engine) Services() []string {
	return e.runtime.Services()
}

// MaxRetries returns the configured retry budget.
func (e *Engine) MaxRetries() int {
	return e.runtime.MaxRetries()
}

// IdleTimeout returns the configured idle timeout.
func (e *Engine) IdleTimeout() time.Duration {
	return e.runtime.IdleTimeout()
}

// Store returns the session store, middlewares included.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}

var (
	_ ports.FlowEngine   = (*Engine)(nil)
	_ ports.SessionAdmin = (*Engine)(nil)
)
