package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// SessionStore defines the interface for persisting flow sessions.
// Implementations must hand out copies: a Session returned by Load must not
// alias the stored record.
type SessionStore interface {
	// Save persists the session under the given ID, replacing any previous record.
	Save(ctx context.Context, sessionID string, session *domain.Session) error

	// Load retrieves the session for a given ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session for a given ID. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
