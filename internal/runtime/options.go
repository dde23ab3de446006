package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// Defaults applied by NewEngine.
const (
	DefaultMaxRetries  = 3
	DefaultIdleTimeout = 30 * time.Minute
)

// DefaultServices is the catalogue offered at the service step.
var DefaultServices = []string{"consulting", "development", "support", "training", "maintenance"}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxRetries sets how many invalid answers in a row reset the flow.
// Values below 1 are ignored.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		if n >= 1 {
			e.maxRetries = n
		}
	}
}

// WithIdleTimeout sets how long a session may stay idle before it expires.
// A non-positive duration disables expiry.
func WithIdleTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.idleTimeout = d
	}
}

// WithServices replaces the service catalogue. An empty list is ignored.
func WithServices(services ...string) EngineOption {
	return func(e *Engine) {
		if len(services) > 0 {
			e.services = append([]string(nil), services...)
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how CreateSession allocates session IDs.
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}
