// Package storetest holds a behavioural suite every repository.DocumentStore
// and repository.NotificationCache implementation must pass, plus test
// doubles for failure paths.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"sharide/internal/domain/entities"
	"sharide/internal/repository"
)

// RunDocumentStoreSuite exercises the DocumentStore contract against the
// stores returned by newStore. Each subtest gets a fresh store.
func RunDocumentStoreSuite(t *testing.T, newStore func(t *testing.T) repository.DocumentStore) {
	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "users", "nobody")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "users", "u1", repository.Document{
			"name":  "ALI BIN ABU",
			"age":   21,
			"tags":  []string{"a", "b"},
			"admin": false,
		}))

		doc, err := store.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.ID())
		assert.Equal(t, "ALI BIN ABU", doc.String("name"))
		assert.Equal(t, float64(21), doc["age"])
		assert.Equal(t, []string{"a", "b"}, doc.Strings("tags"))
		assert.Equal(t, false, doc["admin"])
	})

	t.Run("SetReplaces", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "users", "u1", repository.Document{"name": "A", "email": "a@utm.my"}))
		require.NoError(t, store.Set(ctx, "users", "u1", repository.Document{"name": "B"}))

		doc, err := store.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "B", doc.String("name"))
		_, hasEmail := doc["email"]
		assert.False(t, hasEmail, "Set must replace, not merge")
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "driver", "d1", repository.Document{"name": "A", "status": "PENDING"}))
		require.NoError(t, store.Update(ctx, "driver", "d1", repository.Document{"status": "ACTIVE"}))

		doc, err := store.Get(ctx, "driver", "d1")
		require.NoError(t, err)
		assert.Equal(t, "A", doc.String("name"))
		assert.Equal(t, "ACTIVE", doc.String("status"))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := newStore(t)
		err := store.Update(context.Background(), "driver", "ghost", repository.Document{"status": "ACTIVE"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("AddGeneratesIDs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		id1, err := store.Add(ctx, "RatingsTransaction", repository.Document{"userId": "u1"})
		require.NoError(t, err)
		id2, err := store.Add(ctx, "RatingsTransaction", repository.Document{"userId": "u1"})
		require.NoError(t, err)
		assert.NotEmpty(t, id1)
		assert.NotEqual(t, id1, id2)

		doc, err := store.Get(ctx, "RatingsTransaction", id1)
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.String("userId"))
	})

	t.Run("QueryEquality", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "users", "u1", repository.Document{"status": "ACTIVE", "year": 2}))
		require.NoError(t, store.Set(ctx, "users", "u2", repository.Document{"status": "PENDING", "year": 3}))
		require.NoError(t, store.Set(ctx, "users", "u3", repository.Document{"status": "ACTIVE", "year": 3}))
		require.NoError(t, store.Set(ctx, "driver", "d1", repository.Document{"status": "ACTIVE"}))

		docs, err := store.Query(ctx, "users", "status", "ACTIVE")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "u1", docs[0].ID())
		assert.Equal(t, "u3", docs[1].ID())

		docs, err = store.Query(ctx, "users", "year", 3)
		require.NoError(t, err)
		assert.Len(t, docs, 2)

		docs, err = store.Query(ctx, "users", "year", "3")
		require.NoError(t, err)
		assert.Empty(t, docs, "a number does not equal its string form")

		require.NoError(t, store.Set(ctx, "users", "u4", repository.Document{"status": "ACTIVE", "year": "3"}))
		docs, err = store.Query(ctx, "users", "year", "3")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "u4", docs[0].ID())

		docs, err = store.Query(ctx, "users", "year", 3)
		require.NoError(t, err)
		assert.Len(t, docs, 2, "a string does not equal its numeric form")

		docs, err = store.Query(ctx, "users", "status", "active")
		require.NoError(t, err)
		assert.Empty(t, docs, "equality is case-sensitive")

		docs, err = store.Query(ctx, "users", "missingField", "x")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("QueryRejectsBadField", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Query(context.Background(), "users", "name') OR 1=1 --", "x")
		assert.ErrorIs(t, err, repository.ErrInvalidField)
	})

	t.Run("TransactionCreatesAndUpdates", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		err := store.RunTransaction(ctx, "Ratings", "u2", func(cur repository.Document, exists bool) (repository.Document, error) {
			assert.False(t, exists)
			assert.Nil(t, cur)
			return repository.Document{"Score": 4.5, "TotalRatings": 1}, nil
		})
		require.NoError(t, err)

		err = store.RunTransaction(ctx, "Ratings", "u2", func(cur repository.Document, exists bool) (repository.Document, error) {
			assert.True(t, exists)
			return repository.Document{
				"Score":        cur.Float("Score") + 3,
				"TotalRatings": cur.Int("TotalRatings") + 1,
			}, nil
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, "Ratings", "u2")
		require.NoError(t, err)
		assert.Equal(t, 7.5, doc.Float("Score"))
		assert.Equal(t, 2, doc.Int("TotalRatings"))
	})

	t.Run("TransactionAbort", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := store.RunTransaction(ctx, "Ratings", "u9", func(repository.Document, bool) (repository.Document, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Get(ctx, "Ratings", "u9")
		assert.ErrorIs(t, err, repository.ErrNotFound, "aborted transaction must not create the document")
	})

	t.Run("TransactionIsAtomic", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const writers = 20

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < writers; i++ {
			g.Go(func() error {
				return store.RunTransaction(gctx, "Ratings", "hot", func(cur repository.Document, exists bool) (repository.Document, error) {
					count := 0
					if exists {
						count = cur.Int("TotalRatings")
					}
					return repository.Document{"TotalRatings": count + 1}, nil
				})
			})
		}
		require.NoError(t, g.Wait())

		doc, err := store.Get(ctx, "Ratings", "hot")
		require.NoError(t, err)
		assert.Equal(t, writers, doc.Int("TotalRatings"))
	})

	t.Run("Ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(context.Background()))
	})
}

// RunNotificationCacheSuite exercises the NotificationCache contract.
func RunNotificationCacheSuite(t *testing.T, newCache func(t *testing.T) repository.NotificationCache) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, cache repository.NotificationCache) []*entities.Notification {
		t.Helper()
		ns := []*entities.Notification{
			{UserID: "u1", Title: "first", Body: "b", CreatedAt: base},
			{UserID: "u1", Title: "second", Body: "b", CreatedAt: base.Add(time.Minute)},
			{UserID: "u2", Title: "other", Body: "b", CreatedAt: base.Add(2 * time.Minute)},
		}
		for _, n := range ns {
			require.NoError(t, cache.Insert(context.Background(), n))
			require.NotEmpty(t, n.ID)
		}
		return ns
	}

	t.Run("ListNewestFirst", func(t *testing.T) {
		cache := newCache(t)
		seed(t, cache)

		got, err := cache.List(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "second", got[0].Title)
		assert.Equal(t, "first", got[1].Title)
		assert.True(t, got[0].CreatedAt.Equal(base.Add(time.Minute)))

		all, err := cache.List(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("DeleteOne", func(t *testing.T) {
		cache := newCache(t)
		ns := seed(t, cache)

		require.NoError(t, cache.Delete(context.Background(), ns[0].ID))
		assert.ErrorIs(t, cache.Delete(context.Background(), ns[0].ID), repository.ErrNotFound)

		got, err := cache.List(context.Background(), "u1")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("DeleteAllForUser", func(t *testing.T) {
		cache := newCache(t)
		seed(t, cache)

		removed, err := cache.DeleteAll(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		all, err := cache.List(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "u2", all[0].UserID)

		removed, err = cache.DeleteAll(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})
}

// ErrInjected is the cause wrapped by FailingStore errors.
var ErrInjected = errors.New("injected failure")

// FailingStore wraps a DocumentStore and fails selected operations with an
// ErrStoreUnavailable error. Operation names are the method names: "Get",
// "Query", "Set", "Update", "Add", "RunTransaction", "Ping".
type FailingStore struct {
	repository.DocumentStore

	mu   sync.Mutex
	fail map[string]bool
	hits map[string]int
}

// NewFailingStore wraps inner, failing the named operations.
func NewFailingStore(inner repository.DocumentStore, ops ...string) *FailingStore {
	f := &FailingStore{DocumentStore: inner, fail: map[string]bool{}, hits: map[string]int{}}
	for _, op := range ops {
		f.fail[op] = true
	}
	return f
}

// SetFailing toggles failure of op.
func (f *FailingStore) SetFailing(op string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = failing
}

// Calls returns how many times op was invoked.
func (f *FailingStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[op]
}

func (f *FailingStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[op]++
	if f.fail[op] {
		return repository.Unavailable(fmt.Sprintf("failing store %s", op), ErrInjected)
	}
	return nil
}

func (f *FailingStore) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	if err := f.check("Get"); err != nil {
		return nil, err
	}
	return f.DocumentStore.Get(ctx, collection, id)
}

func (f *FailingStore) Query(ctx context.Context, collection, field string, value any) ([]repository.Document, error) {
	if err := f.check("Query"); err != nil {
		return nil, err
	}
	return f.DocumentStore.Query(ctx, collection, field, value)
}

func (f *FailingStore) Set(ctx context.Context, collection, id string, doc repository.Document) error {
	if err := f.check("Set"); err != nil {
		return err
	}
	return f.DocumentStore.Set(ctx, collection, id, doc)
}

func (f *FailingStore) Update(ctx context.Context, collection, id string, fields repository.Document) error {
	if err := f.check("Update"); err != nil {
		return err
	}
	return f.DocumentStore.Update(ctx, collection, id, fields)
}

func (f *FailingStore) Add(ctx context.Context, collection string, doc repository.Document) (string, error) {
	if err := f.check("Add"); err != nil {
		return "", err
	}
	return f.DocumentStore.Add(ctx, collection, doc)
}

func (f *FailingStore) RunTransaction(ctx context.Context, collection, id string, fn repository.TxFunc) error {
	if err := f.check("RunTransaction"); err != nil {
		return err
	}
	return f.DocumentStore.RunTransaction(ctx, collection, id, fn)
}

func (f *FailingStore) Ping(ctx context.Context) error {
	if err := f.check("Ping"); err != nil {
		return err
	}
	return f.DocumentStore.Ping(ctx)
}
