package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sharide/internal/domain/entities"
	"sharide/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService pushes user-facing notifications and keeps a copy in
// the local notification cache.
//
// Push delivery is a log line; in a real deployment this would hold a push
// client (FCM/APNs) next to the cache.
type NotificationService struct {
	cache  repository.NotificationCache
	logger *slog.Logger
}

func NewNotificationService(cache repository.NotificationCache, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{cache: cache, logger: logger}
}

// NotifyRatingReceived tells the ratee of tx that they were rated.
func (s *NotificationService) NotifyRatingReceived(ctx context.Context, tx entities.RatingTransaction) error {
	n := &entities.Notification{
		UserID: tx.To,
		Title:  "New rating",
		Body:   fmt.Sprintf("You received a %.1f star rating: %s", tx.Score, tx.Description),
	}
	return s.push(ctx, n)
}

func (s *NotificationService) push(ctx context.Context, n *entities.Notification) error {
	s.logger.Info("push notification", "user_id", n.UserID, "title", n.Title)
	if err := s.cache.Insert(ctx, n); err != nil {
		return fmt.Errorf("cache notification: %w", err)
	}
	return nil
}

// List returns the cached notifications of userID, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]*entities.Notification, error) {
	return s.cache.List(ctx, userID)
}

// Clear removes every cached notification of userID.
func (s *NotificationService) Clear(ctx context.Context, userID string) (int, error) {
	return s.cache.DeleteAll(ctx, userID)
}

// Delete removes one notification owned by userID.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	owned, err := s.cache.List(ctx, userID)
	if err != nil {
		return err
	}
	for _, n := range owned {
		if n.ID != id {
			continue
		}
		if err := s.cache.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotificationNotFound
			}
			return err
		}
		return nil
	}
	return ErrNotificationNotFound
}
