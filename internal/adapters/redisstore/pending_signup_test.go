package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
)

func testPending(id string) domainauth.PendingSignup {
	return domainauth.PendingSignup{
		ID: id,
		Identity: domainauth.Identity{
			UID:           "google-sub-1",
			Email:         "new@x.com",
			FullName:      "New User",
			EmailVerified: true,
		},
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestPendingSignupStore_SaveAndGet(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewPendingSignupStore(client)
	ctx := context.Background()

	pending := testPending("pending-1")
	require.NoError(t, store.Save(ctx, pending))

	got, err := store.Get(ctx, "pending-1")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
	assert.Equal(t, pending.Identity, got.Identity)
	assert.WithinDuration(t, pending.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestPendingSignupStore_GetMissing(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewPendingSignupStore(client)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPendingNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingSignupStore_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewPendingSignupStore(client)
	ctx := context.Background()

	pending := testPending("pending-exp")
	pending.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, store.Save(ctx, pending))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "pending-exp")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingSignupStore_SaveExpired(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewPendingSignupStore(client)

	pending := testPending("pending-old")
	pending.ExpiresAt = time.Now().Add(-time.Minute)
	require.Error(t, store.Save(context.Background(), pending))
}

func TestPendingSignupStore_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewPendingSignupStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testPending("pending-del")))
	require.NoError(t, store.Delete(ctx, "pending-del"))

	_, err := store.Get(ctx, "pending-del")
	assert.ErrorIs(t, err, ErrPendingNotFound)

	// Deleting a missing entry is a no-op.
	require.NoError(t, store.Delete(ctx, "pending-del"))
	require.NoError(t, store.Delete(ctx, ""))
}
