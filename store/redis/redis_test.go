package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallnest/marketadvisor/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(RedisOptions{
		Addr:   mr.Addr(),
		TTL:    time.Hour,
		MaxLen: 3,
	})
	defer store.Close()
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Append(ctx, memory.NewMessage("s1", memory.RoleUser, c, map[string]any{"k": c})))
	}

	key := "marketadvisor:session:s1:messages"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	all, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3, "trimmed to MaxLen")
	assert.Equal(t, "b", all[0].Content)
	assert.Equal(t, "d", all[2].Content)
	assert.Equal(t, "d", all[2].Metadata["k"])

	last, err := store.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "c", last[0].Content)

	none, err := store.History(ctx, "unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists(key))

	assert.ErrorIs(t, store.Append(ctx, memory.Message{Content: "x"}), memory.ErrEmptySession)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(RedisOptions{Addr: mr.Addr(), Prefix: "t:"})
	defer store.Close()

	_, err = mr.Push("t:session:s1:messages", "{not json")
	require.NoError(t, err)

	_, err = store.History(context.Background(), "s1", 0)
	assert.Error(t, err)
}

func TestRedisStore_AppendTurn(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(RedisOptions{Addr: mr.Addr()})
	defer store.Close()
	ctx := context.Background()

	user := memory.NewMessage("s1", memory.RoleUser, "question", nil)
	assert.ErrorIs(t, store.Append(ctx, user, memory.Message{Content: "orphan"}), memory.ErrEmptySession)
	assert.False(t, mr.Exists("marketadvisor:session:s1:messages"))

	require.NoError(t, store.Append(ctx, user, memory.NewMessage("s1", memory.RoleAssistant, "answer", nil)))
	turn, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, turn, 2)
	assert.Equal(t, "question", turn[0].Content)
	assert.Equal(t, "answer", turn[1].Content)
}
