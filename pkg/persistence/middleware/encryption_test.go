package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/persistence/middleware"
	"github.com/nodus-reseau/leadform/pkg/ports"
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

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := NewMockStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	original := filledState(t, "enc")
	require.NoError(t, store.Save(ctx, "enc", original))

	stored, err := underlying.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRecap, stored.Phase, "phase stays visible for monitoring")
	assert.Empty(t, stored.Answers.Get(domain.FieldEmail))
	assert.Len(t, stored.Answers, 1)
	for _, v := range stored.Answers {
		assert.NotContains(t, v, "alice")
	}

	loaded, err := store.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.fr", loaded.Answers.Get(domain.FieldEmail))
	assert.Equal(t, original.Cursor, loaded.Cursor)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	// The contract needs copies on Load, which decryption provides.
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(NewMockStore())
	ports.RunStateStoreContract(t, store)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	storeOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, storeOld.Save(ctx, "rot", filledState(t, "rot")))

	storeNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := storeNew.Load(ctx, "rot")
	require.NoError(t, err, "fallback key must open old data")
	assert.Equal(t, "Durand", loaded.Answers.Get(domain.FieldNom))

	require.NoError(t, storeNew.Save(ctx, "rot", loaded))
	_, err = storeOld.Load(ctx, "rot")
	assert.Error(t, err, "old key alone must not open data re-encrypted with the new key")
}

func TestEncryptionMiddleware_BoundToSession(t *testing.T) {
	underlying := NewMockStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", filledState(t, "a")))
	blob, _ := underlying.Load(ctx, "a")
	require.NoError(t, underlying.Save(ctx, "b", blob))

	_, err := store.Load(ctx, "b")
	assert.ErrorContains(t, err, "failed to decrypt state")
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := NewMockStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, underlying.Save(ctx, "plain", filledState(t, "plain")))
	_, err := store.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = middleware.ParseKey("%%%")
	assert.ErrorContains(t, err, "base64")

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 16))))
	assert.ErrorContains(t, err, "32 bytes")
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlying := NewMockStore()
	pii, err := middleware.NewPIIMiddleware(middleware.PersonalFieldPatterns)
	require.NoError(t, err)
	enc := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	done := domain.RecordSubmission(filledState(t, "c"), domain.Submission{Outcome: domain.OutcomeAccepted, At: time.Now()})
	require.NoError(t, store.Save(ctx, "c", done))

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Answers.Get(domain.FieldNom))
	assert.Equal(t, domain.PhaseSubmitted, loaded.Phase)
}
