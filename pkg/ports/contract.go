package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000000")
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(sessionID, now)
		s.Step = domain.StepPhone
		s.Fields = domain.Fields{Name: "John", Email: "john@example.com"}
		s.RetryCount = 1
		s.Record(now, "john@example.com", "Got your email john@example.com.")
		s.Metadata["channel"] = "web"

		require.NoError(t, store.Save(ctx, sessionID, s), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, domain.StepPhone, loaded.Step)
		assert.Equal(t, s.Fields, loaded.Fields)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, 1, loaded.RetryCount)
		assert.True(t, now.Equal(loaded.CreatedAt), "CreatedAt should round-trip")
		assert.True(t, now.Equal(loaded.LastActivityAt), "LastActivityAt should round-trip")
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "john@example.com", loaded.History[0].UserInput)
		assert.Equal(t, "web", loaded.Metadata["channel"])
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Step = domain.StepEnd
		loaded.Fields.Name = "Mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepPhone, again.Step)
		assert.Equal(t, "John", again.Fields.Name)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := domain.NewSession(sessionID, now)
		s.Step = domain.StepEnd
		s.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, sessionID, s))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepEnd, loaded.Step)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSession(sessionID, now)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1, now)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2, now)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
		assert.NotContains(t, sessions, sessionID)
	})
}
