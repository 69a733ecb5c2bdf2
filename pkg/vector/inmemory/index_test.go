package inmemory

import (
	"context"
	"testing"

	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(user, chat uuid.UUID, text string, vec ...float32) vector.Entry {
	return vector.Entry{
		MessageID: uuid.New(),
		Vector:    vec,
		Metadata:  vector.Metadata{UserID: user, ChatID: chat, Text: text, Role: "user"},
	}
}

func TestQueryRanksByCosineAndIsolatesTenants(t *testing.T) {
	ctx := context.Background()
	idx := New()
	alice, bob := uuid.New(), uuid.New()
	chat := uuid.New()

	require.NoError(t, idx.Upsert(ctx, entry(alice, chat, "exact", 1, 0)))
	require.NoError(t, idx.Upsert(ctx, entry(alice, chat, "close", 0.9, 0.1)))
	require.NoError(t, idx.Upsert(ctx, entry(alice, chat, "far", 0, 1)))
	require.NoError(t, idx.Upsert(ctx, entry(bob, uuid.New(), "bob exact", 1, 0)))

	got, err := idx.Query(ctx, []float32{1, 0}, 2, vector.Filter{UserID: alice})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].Metadata.Text)
	assert.Equal(t, "close", got[1].Metadata.Text)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	for _, m := range got {
		assert.Equal(t, alice, m.Metadata.UserID)
	}
}

func TestQueryRequiresTenant(t *testing.T) {
	_, err := New().Query(context.Background(), []float32{1}, 3, vector.Filter{})
	assert.ErrorIs(t, err, vector.ErrMissingTenant)
}

func TestQueryFewerThanK(t *testing.T) {
	ctx := context.Background()
	idx := New()
	user := uuid.New()
	require.NoError(t, idx.Upsert(ctx, entry(user, uuid.New(), "only", 1, 1)))

	got, err := idx.Query(ctx, []float32{1, 1}, 3, vector.Filter{UserID: user})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpsertIsIdempotentAndDeleteByChat(t *testing.T) {
	ctx := context.Background()
	idx := New()
	user, chatA, chatB := uuid.New(), uuid.New(), uuid.New()

	e := entry(user, chatA, "a", 1, 0)
	require.NoError(t, idx.Upsert(ctx, e))
	require.NoError(t, idx.Upsert(ctx, e))
	require.NoError(t, idx.Upsert(ctx, entry(user, chatB, "b", 0, 1)))
	assert.Equal(t, 2, idx.Len())

	require.NoError(t, idx.DeleteByChat(ctx, chatA))
	assert.Equal(t, 1, idx.Len())

	got, err := idx.Query(ctx, []float32{1, 0}, 3, vector.Filter{UserID: user})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chatB, got[0].Metadata.ChatID)
}
