// Package repository defines the storage contracts the ledger, the directory
// and the notification cache are written against, plus the document helpers
// every backend shares.
package repository

import (
	"context"
	"time"

	"sharide/internal/domain/entities"
)

// Logical collection names.
const (
	CollectionRatings            = "Ratings"
	CollectionRatingsTransaction = "RatingsTransaction"
	CollectionUsers              = "users"
	CollectionDrivers            = "driver"
	CollectionVehicles           = "Vehicle"
	CollectionAdmins             = "Admin"
	CollectionAdminGroups        = "AdminGroup"
)

// TxFunc computes the new state of a single document from its current state.
// exists is false when the document has not been created yet, in which case
// current is nil. Returning an error aborts the write.
type TxFunc func(current Document, exists bool) (Document, error)

// DocumentStore is a key/value document store with equality queries.
//
// Implementations report missing documents with ErrNotFound and backend
// failures with an error wrapping ErrStoreUnavailable. Returned documents
// carry their id under IDField.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, fields Document) error
	Add(ctx context.Context, collection string, doc Document) (string, error)

	// RunTransaction applies fn to one document atomically: no other write
	// to the same document can interleave between the read and the write.
	// fn must not call back into the store.
	RunTransaction(ctx context.Context, collection, id string, fn TxFunc) error

	Ping(ctx context.Context) error
	Close() error
}

// NotificationCache is the local notification table.
type NotificationCache interface {
	Insert(ctx context.Context, n *entities.Notification) error
	// List returns the notifications of userID, newest first. An empty
	// userID lists every notification.
	List(ctx context.Context, userID string) ([]*entities.Notification, error)
	// DeleteAll removes the notifications of userID (all when empty) and
	// reports how many were removed.
	DeleteAll(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// LockManager hands out named, expiring locks. AcquireLock returns a token
// identifying this hold; ReleaseLock only drops key while token still owns it,
// so a holder that outlived its ttl cannot release its successor's lock.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
	IsLocked(ctx context.Context, key string) (bool, error)
}
