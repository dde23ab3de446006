package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Sessions is what the session subcommands need from an engine.
type Sessions interface {
	ports.SessionAdmin
	Inspect(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ListSessions prints the stored session IDs.
func ListSessions(ctx context.Context, w io.Writer, s Sessions) error {
	ids, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}
	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectSession prints the stored session as indented JSON.
func InspectSession(ctx context.Context, w io.Writer, s Sessions, sessionID string) error {
	sess, err := s.Inspect(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("session %q not found", sessionID)
		}
		return fmt.Errorf("error loading session: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(sess)
}

// RemoveSession deletes a session. Removing an unknown ID is not an error.
func RemoveSession(ctx context.Context, w io.Writer, s Sessions, sessionID string) error {
	if err := s.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("error removing session: %w", err)
	}
	fmt.Fprintf(w, "Session '%s' removed.\n", sessionID)
	return nil
}
