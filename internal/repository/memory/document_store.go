package memory

import (
	"context"
	"fmt"
	"sync"

	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var _ repository.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps collections in maps guarded by a single RWMutex.
// Documents are normalized through JSON on write, so callers see the same
// value types (float64 numbers, []any slices) as with the SQL backends.
//
// A single lock over every collection keeps RunTransaction trivially atomic;
// the store is meant for tests and single-process deployments.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]repository.Document
	closed      bool
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]repository.Document),
	}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	doc, exists := s.collections[collection][id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return repository.WithID(doc, id), nil
}

// Query scans the collection. This is O(n) per call; the SQL backends
// push the comparison into the database instead.
func (s *DocumentStore) Query(ctx context.Context, collection, field string, value any) ([]repository.Document, error) {
	if !repository.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	var docs []repository.Document
	for id, doc := range s.collections[collection] {
		if repository.Matches(doc, field, value) {
			docs = append(docs, repository.WithID(doc, id))
		}
	}
	repository.SortByID(docs)
	return docs, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, doc repository.Document) error {
	normalized, err := repository.Normalize(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return err
	}
	s.put(collection, id, normalized)
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields repository.Document) error {
	normalized, err := repository.Normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return err
	}
	current, exists := s.collections[collection][id]
	if !exists {
		return repository.ErrNotFound
	}
	s.put(collection, id, repository.Merge(current, normalized))
	return nil
}

func (s *DocumentStore) Add(ctx context.Context, collection string, doc repository.Document) (string, error) {
	normalized, err := repository.Normalize(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return "", err
	}
	id := utils.GenerateID()
	s.put(collection, id, normalized)
	return id, nil
}

// RunTransaction holds the write lock across fn, so concurrent
// read-modify-write cycles on any document are serialized.
func (s *DocumentStore) RunTransaction(ctx context.Context, collection, id string, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return err
	}

	var current repository.Document
	stored, exists := s.collections[collection][id]
	if exists {
		current = repository.WithID(stored, id)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	normalized, err := repository.Normalize(next)
	if err != nil {
		return err
	}
	s.put(collection, id, normalized)
	return nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usable(ctx)
}

// Close marks the store unusable; later calls fail with ErrStoreUnavailable.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of documents in a collection.
func (s *DocumentStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *DocumentStore) put(collection, id string, doc repository.Document) {
	docs, exists := s.collections[collection]
	if !exists {
		docs = make(map[string]repository.Document)
		s.collections[collection] = docs
	}
	docs[id] = doc
}

func (s *DocumentStore) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return repository.Unavailable("memory store", errClosed)
	}
	return nil
}
