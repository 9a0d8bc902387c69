package ports

import (
	"context"
	"testing"
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.Activate(domain.NewState(sessionID, "insta", now, 0))
		state, err := domain.SetAnswer(state, domain.FieldNom, "Durand")
		require.NoError(t, err)
		state, err = domain.SetAnswer(state, domain.FieldTypePersonne, "parent")
		require.NoError(t, err)
		state, err = domain.JumpTo(state, 3)
		require.NoError(t, err)

		err = store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.PhaseActive, loaded.Phase)
		assert.Equal(t, 3, loaded.Cursor)
		assert.Equal(t, domain.Forward, loaded.Direction)
		assert.Equal(t, "Durand", loaded.Answers.Get(domain.FieldNom))
		assert.Equal(t, "parent", loaded.Answers.Get(domain.FieldTypePersonne))
		assert.Equal(t, "insta", loaded.Source())
		assert.True(t, now.Equal(loaded.CreatedAt), "CreatedAt should survive a round trip")
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Answers[domain.FieldNom] = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Durand", again.Answers.Get(domain.FieldNom))
	})

	t.Run("Submission Survives", func(t *testing.T) {
		id := sessionID + "-submitted"
		state := domain.Activate(domain.NewState(id, "direct", now, 0))
		state, err := domain.JumpTo(state, 5)
		require.NoError(t, err)
		state = domain.RecordSubmission(state, domain.Submission{Outcome: domain.OutcomeAccepted, At: now})
		require.NoError(t, store.Save(ctx, id, state))
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseSubmitted, loaded.Phase)
		require.NotNil(t, loaded.Submission)
		assert.Equal(t, domain.OutcomeAccepted, loaded.Submission.Outcome)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "direct", now, 0))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "direct", now, 0))
		_ = store.Save(ctx, id2, domain.NewState(id2, "direct", now, 0))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
