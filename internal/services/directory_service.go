package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"sharide/internal/config"
	"sharide/internal/directory"
	"sharide/internal/domain/entities"
	"sharide/internal/metrics"
	"sharide/internal/repository"
)

var (
	ErrUnknownCollection = errors.New("unknown directory collection")
	ErrRecordNotFound    = errors.New("directory record not found")
	ErrImmutableField    = errors.New("field cannot be changed")
	ErrEmptyUpdate       = errors.New("no fields to update")
	ErrAdminNotFound     = errors.New("admin not found")
	ErrGroupNotFound     = errors.New("admin group not found")
)

// SearchResult carries the records found together with how the query was
// classified. Err is set when the store failed, in which case Records is
// empty; an empty Records with a nil Err simply means nothing matched.
type SearchResult struct {
	Collection string                `json:"collection"`
	Rule       directory.Rule        `json:"rule"`
	Field      string                `json:"field"`
	Value      string                `json:"value"`
	Records    []repository.Document `json:"records"`
	Err        error                 `json:"-"`
}

// DirectoryService searches and maintains the flat directory collections
// (users, drivers, vehicles, admins and admin groups).
type DirectoryService struct {
	store       repository.DocumentStore
	metrics     *metrics.Metrics
	logger      *slog.Logger
	suffixes    []string
	concurrency int
}

func NewDirectoryService(store repository.DocumentStore, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Directory.MemberFetchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &DirectoryService{
		store:       store,
		metrics:     m,
		logger:      logger,
		suffixes:    append([]string(nil), cfg.Directory.EmailSuffixes...),
		concurrency: concurrency,
	}
}

// Search infers which field raw refers to and returns the records of
// collection whose field equals the normalised query. A blank query matches
// nothing and does not reach the store.
func (s *DirectoryService) Search(ctx context.Context, collection, raw string) SearchResult {
	result := SearchResult{Collection: collection, Records: []repository.Document{}}

	schema, ok := directory.SchemaFor(collection)
	if !ok {
		result.Err = fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
		return result
	}

	q := directory.Infer(raw, s.suffixes)
	result.Rule = q.Rule
	result.Field = schema.FieldFor(q.Rule)
	result.Value = q.Value
	s.metrics.DirectorySearch(string(q.Rule))

	if q.Blank() {
		return result
	}

	docs, err := s.store.Query(ctx, collection, result.Field, q.Value)
	if err != nil {
		s.metrics.StoreError("query")
		s.logger.Warn("directory search failed",
			"collection", collection, "field", result.Field, "error", err)
		result.Err = fmt.Errorf("search %s: %w", collection, err)
		return result
	}
	if docs != nil {
		result.Records = docs
	}
	return result
}

// Get returns one record by its key.
func (s *DirectoryService) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	if _, ok := directory.SchemaFor(collection); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	doc, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		s.metrics.StoreError("get")
		return nil, err
	}
	return doc, nil
}

// Update merges fields into an existing record and returns the result. The
// record key cannot be changed.
func (s *DirectoryService) Update(ctx context.Context, collection, id string, fields repository.Document) (repository.Document, error) {
	schema, ok := directory.SchemaFor(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}
	for name := range fields {
		if name == repository.IDField || name == schema.KeyField {
			return nil, fmt.Errorf("%w: %s", ErrImmutableField, name)
		}
		if !repository.ValidField(name) {
			return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, name)
		}
	}

	err := s.store.Update(ctx, collection, id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		s.metrics.StoreError("update")
		return nil, err
	}

	s.logger.Info("directory record updated", "collection", collection, "id", id, "fields", len(fields))
	return s.Get(ctx, collection, id)
}

// GroupForAdmin returns the admin group adminID belongs to.
func (s *DirectoryService) GroupForAdmin(ctx context.Context, adminID string) (*entities.AdminGroup, error) {
	doc, err := s.store.Get(ctx, repository.CollectionAdmins, adminID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		s.metrics.StoreError("get")
		return nil, err
	}

	admin := entities.AdminFromFields(doc)
	if admin.GroupID == "" {
		return nil, ErrGroupNotFound
	}
	return s.group(ctx, admin.GroupID)
}

// MembersOfGroup returns the users listed as members of groupID, in the
// group's order. Member ids with no user record are skipped.
func (s *DirectoryService) MembersOfGroup(ctx context.Context, groupID string) ([]entities.User, error) {
	group, err := s.group(ctx, groupID)
	if err != nil {
		return nil, err
	}

	found := make([]*entities.User, len(group.MemberIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range group.MemberIDs {
		g.Go(func() error {
			doc, err := s.store.Get(gctx, repository.CollectionUsers, id)
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Debug("group member has no user record", "group_id", groupID, "user_id", id)
				return nil
			}
			if err != nil {
				return fmt.Errorf("get member %s: %w", id, err)
			}
			user := entities.UserFromFields(doc)
			if user.FirebaseUserID == "" {
				user.FirebaseUserID = id
			}
			found[i] = &user
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.StoreError("get")
		return nil, err
	}

	members := make([]entities.User, 0, len(found))
	for _, u := range found {
		if u != nil {
			members = append(members, *u)
		}
	}
	return members, nil
}

func (s *DirectoryService) group(ctx context.Context, groupID string) (*entities.AdminGroup, error) {
	doc, err := s.store.Get(ctx, repository.CollectionAdminGroups, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		s.metrics.StoreError("get")
		return nil, err
	}
	group := entities.AdminGroupFromFields(doc)
	if group.GroupID == "" {
		group.GroupID = groupID
	}
	return &group, nil
}
