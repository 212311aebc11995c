package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sharide/internal/domain/entities"
	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var _ repository.NotificationCache = (*NotificationCache)(nil)

// NotificationCache stores notifications in insertion order.
type NotificationCache struct {
	mu            sync.RWMutex
	notifications map[string]*entities.Notification
	seq           map[string]uint64
	next          uint64
}

func NewNotificationCache() *NotificationCache {
	return &NotificationCache{
		notifications: make(map[string]*entities.Notification),
		seq:           make(map[string]uint64),
	}
}

func (c *NotificationCache) Insert(ctx context.Context, n *entities.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n.ID == "" {
		n.ID = utils.GenerateID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	copied := *n
	c.notifications[n.ID] = &copied
	c.next++
	c.seq[n.ID] = c.next
	return nil
}

// List orders by CreatedAt descending; entries created at the same instant
// come back newest-inserted first.
func (c *NotificationCache) List(ctx context.Context, userID string) ([]*entities.Notification, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*entities.Notification, 0, len(c.notifications))
	for _, n := range c.notifications {
		if userID != "" && n.UserID != userID {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return c.seq[out[i].ID] > c.seq[out[j].ID]
	})
	return out, nil
}

func (c *NotificationCache) DeleteAll(ctx context.Context, userID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, n := range c.notifications {
		if userID == "" || n.UserID == userID {
			delete(c.notifications, id)
			delete(c.seq, id)
			removed++
		}
	}
	return removed, nil
}

func (c *NotificationCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.notifications[id]; !exists {
		return repository.ErrNotFound
	}
	delete(c.notifications, id)
	delete(c.seq, id)
	return nil
}
