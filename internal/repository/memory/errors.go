// Package memory provides in-process implementations of the repository
// contracts: a document store, a notification cache and a TTL lock manager.
package memory

import "errors"

var errClosed = errors.New("store closed")
