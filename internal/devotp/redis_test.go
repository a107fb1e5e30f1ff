package devotp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, nil), mr
}

func TestRedisStore_PutAndGet(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	store.Put(ctx, "Alice@Example.com", "123456", time.Now().Add(10*time.Minute))

	otp, ok := store.Get(ctx, "alice@example.com")
	require.True(t, ok)
	assert.Equal(t, "123456", otp)
	assert.True(t, mr.Exists(redisKeyPrefix+"alice@example.com"))
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	store.Put(ctx, "a@example.com", "123456", time.Now().Add(10*time.Minute))

	mr.FastForward(11 * time.Minute)

	_, ok := store.Get(ctx, "a@example.com")
	assert.False(t, ok)
}

func TestRedisStore_PastExpiryNotStored(t *testing.T) {
	store, mr := newRedisStore(t)
	store.Put(context.Background(), "a@example.com", "123456", time.Now().Add(-time.Second))
	assert.False(t, mr.Exists(redisKeyPrefix+"a@example.com"))
}
