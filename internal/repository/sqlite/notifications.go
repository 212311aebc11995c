package sqlite

import (
	"context"
	"fmt"
	"time"

	"sharide/internal/domain/entities"
	"sharide/internal/repository"
	"sharide/pkg/utils"
)

// Insert stores a notification, assigning an id when it has none.
func (s *Store) Insert(ctx context.Context, n *entities.Notification) error {
	if n.ID == "" {
		n.ID = utils.GenerateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Title, n.Body, n.CreatedAt.UnixNano(),
	)
	if err != nil {
		return repository.Unavailable("insert notification", err)
	}
	return nil
}

// List returns notifications newest first; rowid breaks ties so entries
// created at the same instant come back newest-inserted first.
func (s *Store) List(ctx context.Context, userID string) ([]*entities.Notification, error) {
	query := "SELECT id, user_id, title, body, created_at FROM notifications"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repository.Unavailable("list notifications", err)
	}
	defer rows.Close()

	var out []*entities.Notification
	for rows.Next() {
		n := &entities.Notification{}
		var created int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &created); err != nil {
			return nil, repository.Unavailable("scan notification", err)
		}
		n.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Unavailable("iterate notifications", err)
	}
	return out, nil
}

func (s *Store) DeleteAll(ctx context.Context, userID string) (int, error) {
	query := "DELETE FROM notifications"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, repository.Unavailable("delete notifications", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return repository.Unavailable("delete notification", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
