package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// FlowEngine is the driving port used by the transport adapters (HTTP, MCP, CLI).
type FlowEngine interface {
	// CreateSession allocates a new session waiting at the start step.
	CreateSession(ctx context.Context) (string, error)

	// ProcessTurn advances the session by one turn. An empty input re-reads the
	// pending prompt. Flow conditions (invalid answers, expiry, resets) are
	// reported in the Result; only infrastructure faults return an error.
	ProcessTurn(ctx context.Context, sessionID, input string) (*domain.Result, error)

	// Inspect returns a copy of the stored session.
	Inspect(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionAdmin exposes the administrative operations used by the CLI.
type SessionAdmin interface {
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
}
