package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisDeduper_Claim(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := NewRedisDeduper(client, time.Hour)
	ctx := context.Background()

	first, err := d.Claim(ctx, "call_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Claim(ctx, "call_1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.Claim(ctx, "call_2")
	require.NoError(t, err)
	assert.True(t, other)

	assert.True(t, mr.Exists("pharmacy:processed:retell:call_1"))
	assert.Equal(t, time.Hour, mr.TTL("pharmacy:processed:retell:call_1"))
}

func TestRedisDeduper_ExpiresAndReleases(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	_, err := d.Claim(ctx, "call_1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	ok, err := d.Claim(ctx, "call_1")
	require.NoError(t, err)
	assert.True(t, ok, "expired claim should be reusable")

	require.NoError(t, d.Release(ctx, "call_1"))
	ok, err = d.Claim(ctx, "call_1")
	require.NoError(t, err)
	assert.True(t, ok, "released claim should be reusable")
}

func TestRedisDeduper_Errors(t *testing.T) {
	mr, client := setupTestRedis(t)
	d := NewRedisDeduper(client, 0)
	assert.Equal(t, defaultDedupTTL, d.ttl)

	_, err := d.Claim(context.Background(), " ")
	assert.Error(t, err)

	mr.Close()
	_, err = d.Claim(context.Background(), "call_1")
	assert.Error(t, err)
}
