package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodus-reseau/leadform/pkg/adapters/memory"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_SaveIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	state := domain.NewState("s1", "direct", time.Now(), 0)
	require.NoError(t, store.Save(ctx, "s1", state))
	state.Answers[domain.FieldNom] = "after-save"

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Answers.Get(domain.FieldNom))
}

func TestMemoryStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState(id, "direct", time.Now(), 0)))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
