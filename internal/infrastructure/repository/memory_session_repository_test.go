package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-embed-auth/internal/domain"
)

func newMemoryRepo(t *testing.T) *MemorySessionRepository {
	t.Helper()
	repo := NewMemorySessionRepository()
	t.Cleanup(repo.Close)
	return repo
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	offline := domain.NewOfflineSession("my-store.myshopify.com", "shpat_token", []string{"read_products"})
	require.NoError(t, repo.Store(ctx, offline))

	got, err := repo.Retrieve(ctx, offline.ID)
	require.NoError(t, err)
	assert.Equal(t, offline.Shop, got.Shop)
	assert.Equal(t, offline.AccessToken, got.AccessToken)
	assert.Equal(t, offline.Scopes, got.Scopes)
}

func TestMemoryStoreMiss(t *testing.T) {
	repo := newMemoryRepo(t)

	_, err := repo.Retrieve(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = repo.RetrieveByUserID(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = repo.Delete(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStoreUpsert(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	first := domain.NewOfflineSession("my-store.myshopify.com", "shpat_old", []string{"read_products"})
	second := domain.NewOfflineSession("my-store.myshopify.com", "shpat_new", []string{"read_products", "write_orders"})

	require.NoError(t, repo.Store(ctx, first))
	require.NoError(t, repo.Store(ctx, second))

	got, err := repo.Retrieve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "shpat_new", got.AccessToken, "second store replaces the first")
}

func TestMemoryStoreUserIndex(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour)
	online := domain.NewOnlineSession("my-store.myshopify.com", "shpat_online", nil,
		&domain.AssociatedUser{ID: 42}, expires)
	require.NoError(t, repo.Store(ctx, online))

	got, err := repo.RetrieveByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, online.ID, got.ID)

	require.NoError(t, repo.Delete(ctx, online.ID))

	_, err = repo.RetrieveByUserID(ctx, 42)
	require.ErrorIs(t, err, domain.ErrSessionNotFound, "delete clears the user index too")
}

func TestMemoryStoreHandsOutCopies(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	offline := domain.NewOfflineSession("my-store.myshopify.com", "shpat_token", []string{"read_products"})
	require.NoError(t, repo.Store(ctx, offline))

	// Mutating what the caller stored or retrieved must not leak into
	// later retrievals
	offline.AccessToken = "mutated_after_store"

	first, err := repo.Retrieve(ctx, offline.ID)
	require.NoError(t, err)
	first.Scopes[0] = "mutated_after_retrieve"

	second, err := repo.Retrieve(ctx, offline.ID)
	require.NoError(t, err)
	assert.Equal(t, "shpat_token", second.AccessToken)
	assert.Equal(t, "read_products", second.Scopes[0])
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			shop := domain.OfflineSessionID("store-" + string(rune('a'+n)) + ".myshopify.com")
			sess := domain.NewOfflineSession(shop, "shpat", nil)
			_ = repo.Store(ctx, sess)
			_, _ = repo.Retrieve(ctx, sess.ID)
		}(i)
	}
	wg.Wait()
}

func TestMemoryStoreRemoveExpired(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	stale := domain.NewOnlineSession("my-store.myshopify.com", "shpat", nil,
		&domain.AssociatedUser{ID: 42}, past)
	fresh := domain.NewOfflineSession("my-store.myshopify.com", "shpat", nil)
	require.NoError(t, repo.Store(ctx, stale))
	require.NoError(t, repo.Store(ctx, fresh))

	repo.removeExpired()

	_, err := repo.Retrieve(ctx, stale.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = repo.RetrieveByUserID(ctx, 42)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = repo.Retrieve(ctx, fresh.ID)
	require.NoError(t, err)
}
