package exclusion

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSetRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	set := NewRedisSet(client, "")
	ctx := context.Background()

	ok, err := set.Contains(ctx, "row-7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, set.Add(ctx, "row-7"))

	ok, err = set.Contains(ctx, "row-7")
	require.NoError(t, err)
	assert.True(t, ok)

	// Adding again is harmless.
	require.NoError(t, set.Add(ctx, "row-7"))
	members, err := client.SMembers(ctx, "renewal:excluded").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"row-7"}, members)
}

func TestRedisSetCustomKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	set := NewRedisSet(client, "batch:42:excluded")

	mock.ExpectSAdd("batch:42:excluded", "row-3").SetVal(1)
	require.NoError(t, set.Add(context.Background(), "row-3"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySet(t *testing.T) {
	set := NewMemorySet()
	ctx := context.Background()

	ok, err := set.Contains(ctx, "row-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, set.Add(ctx, "row-1"))
	ok, _ = set.Contains(ctx, "row-1")
	assert.True(t, ok)
}
