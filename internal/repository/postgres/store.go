// Package postgres provides a PostgreSQL-backed repository.DocumentStore.
// Documents are stored as JSONB rows keyed by (collection, id).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var _ repository.DocumentStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    data JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
`

// Options controls connection-pool behaviour.
type Options struct {
	MaxConns    int32
	MinConns    int32
	ConnTimeout time.Duration
	Logger      *slog.Logger
}

// Store hides the pgx pool behind the DocumentStore contract.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	opts   Options
}

// New connects to dbURL, verifies the connection and applies the schema.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	connCtx := ctx
	if opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		connCtx, cancel = context.WithTimeout(ctx, opts.ConnTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(connCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("postgres document store ready", "max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return &Store{pool: pool, logger: logger, opts: opts}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.logger.Info("closing postgres pool")
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable within the configured timeout.
func (s *Store) Ping(ctx context.Context) error {
	checkCtx := ctx
	if s.opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, s.opts.ConnTimeout)
		defer cancel()
	}
	if err := s.pool.Ping(checkCtx); err != nil {
		return repository.Unavailable("ping postgres", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

// Query compares strings as text (data->>field) restricted to JSON strings,
// and every other value as JSON (data->field), so 3 and "3" never match.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]repository.Document, error) {
	if !repository.ValidField(field) {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidField, field)
	}

	var (
		rows pgx.Rows
		err  error
	)
	if str, ok := value.(string); ok {
		rows, err = s.pool.Query(ctx,
			"SELECT id, data FROM documents WHERE collection = $1 AND jsonb_typeof(data->$2) = 'string' AND data->>$2 = $3 ORDER BY id",
			collection, field, str,
		)
	} else {
		encoded, merr := json.Marshal(value)
		if merr != nil {
			return nil, fmt.Errorf("encode query value: %w", merr)
		}
		rows, err = s.pool.Query(ctx,
			"SELECT id, data FROM documents WHERE collection = $1 AND data->$2 = $3::jsonb ORDER BY id",
			collection, field, string(encoded),
		)
	}
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return repository.Unavailable("set document", err)
	}
	return nil
}

// Update merges fields with the jsonb || operator, a shallow merge like the
// other stores.
func (s *Store) Update(ctx context.Context, collection, id string, fields repository.Document) error {
	raw, err := repository.Encode(fields)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE documents SET data = data || $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2",
		collection, id, raw,
	)
	if err != nil {
		return repository.Unavailable("update document", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, doc repository.Document) (string, error) {
	raw, err := repository.Encode(doc)
	if err != nil {
		return "", err
	}
	id := utils.GenerateID()
	if _, err := s.pool.Exec(ctx,
		"INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)",
		collection, id, raw,
	); err != nil {
		return "", repository.Unavailable("add document", err)
	}
	return id, nil
}

// RunTransaction locks the row with SELECT ... FOR UPDATE. A missing row is
// first claimed with an empty placeholder (ON CONFLICT DO NOTHING), so two
// transactions racing to create the same document serialize on the
// primary key instead of both seeing "absent"; the placeholder disappears
// with the rollback if fn fails.
func (s *Store) RunTransaction(ctx context.Context, collection, id string, fn repository.TxFunc) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return repository.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"INSERT INTO documents (collection, id, data) VALUES ($1, $2, '{}'::jsonb) ON CONFLICT DO NOTHING",
		collection, id,
	)
	if err != nil {
		return repository.Unavailable("claim document", err)
	}
	exists := tag.RowsAffected() == 0

	var raw []byte
	if err := tx.QueryRow(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id,
	).Scan(&raw); err != nil {
		return repository.Unavailable("lock document", err)
	}

	var current repository.Document
	if exists {
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
	if _, err := tx.Exec(ctx,
		"UPDATE documents SET data = $3, updated_at = now() WHERE collection = $1 AND id = $2",
		collection, id, encoded,
	); err != nil {
		return repository.Unavailable("write in transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.Unavailable("commit transaction", err)
	}
	return nil
}

// Stats exposes pool statistics.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}
