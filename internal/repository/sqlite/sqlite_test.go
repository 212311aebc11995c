package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"sharide/internal/repository"
	"sharide/internal/repository/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "sharide.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDocumentStoreContract(t *testing.T) {
	storetest.RunDocumentStoreSuite(t, func(t *testing.T) repository.DocumentStore {
		return newTestStore(t)
	})
}

func TestNotificationCacheContract(t *testing.T) {
	storetest.RunNotificationCacheSuite(t, func(t *testing.T) repository.NotificationCache {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sharide.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "Ratings", "u2", repository.Document{"Score": 4.5, "TotalRatings": 1}))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.Get(ctx, "Ratings", "u2")
	require.NoError(t, err)
	assert.Equal(t, 4.5, doc.Float("Score"))
	assert.Equal(t, 1, doc.Int("TotalRatings"))
}

// A CLI command and a running server open the same file through separate
// handles; their transactions must queue rather than fail.
func TestStore_TransactionsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharide.db")
	ctx := context.Background()

	first, err := New(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	const perHandle = 25
	increment := func(cur repository.Document, exists bool) (repository.Document, error) {
		return repository.Document{"TotalRatings": cur.Int("TotalRatings") + 1}, nil
	}

	var g errgroup.Group
	for _, store := range []*Store{first, second} {
		for i := 0; i < perHandle; i++ {
			g.Go(func() error {
				return store.RunTransaction(ctx, "Ratings", "u2", increment)
			})
		}
	}
	require.NoError(t, g.Wait())

	doc, err := first.Get(ctx, "Ratings", "u2")
	require.NoError(t, err)
	assert.Equal(t, 2*perHandle, doc.Int("TotalRatings"))
}

func TestStore_QueryBoolean(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "users", "u1", repository.Document{"verified": true}))
	require.NoError(t, store.Set(ctx, "users", "u2", repository.Document{"verified": false}))

	docs, err := store.Query(ctx, "users", "verified", true)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "u1", docs[0].ID())
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "sharide.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(context.Background(), "users", "u1")
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
