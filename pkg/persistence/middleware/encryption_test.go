package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newEncrypted(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := newEncrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := NewMockStore()
	secure := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	sessionID := "test-session"
	original := domain.NewSession(sessionID, time.Now())
	original.Step = domain.StepPhone
	original.Fields = domain.Fields{Name: "John", Email: "john@example.com"}
	original.Record(time.Now(), "john@example.com", "Got your email john@example.com.")

	require.NoError(t, secure.Save(ctx, sessionID, original))

	// The raw record only exposes the flow position.
	stored, err := underlying.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPhone, stored.Step)
	assert.Equal(t, domain.Fields{}, stored.Fields)
	assert.Empty(t, stored.History)
	require.Contains(t, stored.Metadata, middleware.EnvelopeKey)

	loaded, err := secure.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, original.Fields, loaded.Fields)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "john@example.com", loaded.History[0].UserInput)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureOld := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()
	sessionID := "rotation-session"
	original := domain.NewSession(sessionID, time.Now())
	original.Fields.Name = "Old Key"

	require.NoError(t, secureOld.Save(ctx, sessionID, original))

	secureNew := newEncrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	loaded, err := secureNew.Load(ctx, sessionID)
	require.NoError(t, err, "fallback key should decrypt")
	assert.Equal(t, "Old Key", loaded.Fields.Name)

	loaded.Fields.Name = "New Key"
	require.NoError(t, secureNew.Save(ctx, sessionID, loaded))

	_, err = secureOld.Load(ctx, sessionID)
	assert.Error(t, err, "old key alone must not decrypt data written with the new key")
}

func TestEncryptionMiddleware_PlainRecordRejected(t *testing.T) {
	underlying := NewMockStore()
	require.NoError(t, underlying.Save(context.Background(), "plain", domain.NewSession("plain", time.Now())))

	secure := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(context.Background(), "plain")
	assert.ErrorIs(t, err, middleware.ErrMissingEnvelope)

	_, err = secure.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)

	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = middleware.DecodeKey(base64.URLEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.DecodeKey("%%%")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_EnvelopeBoundToSessionID(t *testing.T) {
	underlying := NewMockStore()
	secure := newEncrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	victim := domain.NewSession("victim", time.Now())
	victim.Fields = domain.Fields{Name: "Alice"}
	require.NoError(t, secure.Save(ctx, "victim", victim))

	// Copy the stored envelope onto another session ID.
	envelope, err := underlying.Load(ctx, "victim")
	require.NoError(t, err)
	require.NoError(t, underlying.Save(ctx, "intruder", envelope))

	_, err = secure.Load(ctx, "intruder")
	assert.ErrorContains(t, err, "failed to decrypt session")

	loaded, err := secure.Load(ctx, "victim")
	require.NoError(t, err)
	assert.Equal(t, "Alice", loaded.Fields.Name)
}
