package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet_NewNonce(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "ak_processor", "nonce-abc", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "new nonce should return true")
	assert.True(t, mr.Exists("custody-bridge:nonce:ak_processor:nonce-abc"))
}

func TestNonceStore_CheckAndSet_ReplayNonce(t *testing.T) {
	_, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "ak_processor", "nonce-xyz", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CheckAndSet(ctx, "ak_processor", "nonce-xyz", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "replayed nonce should return false")
}

func TestNonceStore_CheckAndSet_DifferentCallers(t *testing.T) {
	_, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok1, err := store.CheckAndSet(ctx, "ak_a", "nonce-123", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := store.CheckAndSet(ctx, "ak_b", "nonce-123", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok2, "same nonce under a different access key is valid")
}

func TestNonceStore_CheckAndSet_ExpiredNonce(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "ak_processor", "nonce-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = store.CheckAndSet(ctx, "ak_processor", "nonce-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired nonce should be accepted again")
}

func TestNonceStore_CheckAndSet_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewNonceStore(client)
	mr.Close()

	_, err := store.CheckAndSet(context.Background(), "ak_processor", "nonce", time.Second)
	assert.ErrorContains(t, err, "redis nonce check")
}
