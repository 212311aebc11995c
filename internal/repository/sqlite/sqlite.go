// Package sqlite provides a SQLite-backed implementation of the repository
// contracts: documents live as JSON in one table keyed by (collection, id),
// notifications in a table of their own.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var (
	_ repository.DocumentStore     = (*Store)(nil)
	_ repository.NotificationCache = (*Store)(nil)
)

// Store implements repository.DocumentStore and repository.NotificationCache
// on a single SQLite database.
//
// The pool is capped at one connection. SQLite allows one writer at a time
// anyway, and with a single connection a transaction excludes every other
// statement, which is what makes RunTransaction an atomic read-modify-write.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the
// schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	// _txlock=immediate takes the write lock at BEGIN so a second handle on
	// the same file waits on busy_timeout instead of failing an upgrade.
	return "file:" + path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return repository.Unavailable("ping sqlite", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Unavailable("get document", err)
	}

	doc, err := repository.Decode(raw)
	if err != nil {
		return nil, err
	}
	return repository.WithID(doc, id), nil
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]repository.Document, error) {
	if !repository.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, field)
	}

	// json_extract yields 1/0 for JSON booleans
	if b, ok := value.(bool); ok {
		if b {
			value = 1
		} else {
			value = 0
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? AND json_extract(data, ?) = ? ORDER BY id",
		collection, "$."+field, value,
	)
	if err != nil {
		return nil, repository.Unavailable("query documents", err)
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, repository.Unavailable("scan document", err)
		}
		doc, err := repository.Decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, repository.WithID(doc, id))
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Unavailable("iterate documents", err)
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc repository.Document) error {
	raw, err := repository.Encode(doc)
	if err != nil {
		return err
	}
	if err := upsert(ctx, s.db, collection, id, raw); err != nil {
		return repository.Unavailable("set document", err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, doc repository.Document) (string, error) {
	raw, err := repository.Encode(doc)
	if err != nil {
		return "", err
	}
	id := utils.GenerateID()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)",
		collection, id, string(raw), time.Now().UnixNano(),
	)
	if err != nil {
		return "", repository.Unavailable("add document", err)
	}
	return id, nil
}

// Update merges fields into the stored document inside a transaction.
func (s *Store) Update(ctx context.Context, collection, id string, fields repository.Document) error {
	var notFound bool
	err := s.RunTransaction(ctx, collection, id, func(cur repository.Document, exists bool) (repository.Document, error) {
		if !exists {
			notFound = true
			return nil, repository.ErrNotFound
		}
		return repository.Merge(cur, fields), nil
	})
	if notFound {
		return repository.ErrNotFound
	}
	return err
}

func (s *Store) RunTransaction(ctx context.Context, collection, id string, fn repository.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	var raw []byte
	var current repository.Document
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	exists := err == nil
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return repository.Unavailable("read for transaction", err)
	default:
		decoded, err := repository.Decode(raw)
		if err != nil {
			return err
		}
		current = repository.WithID(decoded, id)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	encoded, err := repository.Encode(next)
	if err != nil {
		return err
	}
	if err := upsert(ctx, tx, collection, id, encoded); err != nil {
		return repository.Unavailable("write in transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return repository.Unavailable("commit transaction", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, collection, id string, raw []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, id, string(raw), time.Now().UnixNano(),
	)
	return err
}
