package repositories

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/models"
)

// NotificationRepository defines the interface for notification operations.
// Notifications are written by the change reactions, not through here.
type NotificationRepository interface {
	GetRecentByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, ids []string) error
}

// DocNotificationRepository implements NotificationRepository over the
// document store
type DocNotificationRepository struct {
	store docstore.Store
}

// NewDocNotificationRepository creates a new DocNotificationRepository
func NewDocNotificationRepository(store docstore.Store) *DocNotificationRepository {
	return &DocNotificationRepository{store: store}
}

func (r *DocNotificationRepository) GetRecentByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error) {
	snaps, err := r.store.Query(ctx, docstore.Collection(models.NotificationsCollection).
		Where("recipient", recipient).
		Order("createdAt", docstore.Desc).
		Take(limit))
	if err != nil {
		return nil, err
	}
	notifications := make([]models.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n models.Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, err
		}
		n.NotificationID = snap.ID
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// MarkAsRead sets read on every notification in one batch. A missing id
// fails the whole batch and nothing is marked.
func (r *DocNotificationRepository) MarkAsRead(ctx context.Context, ids []string) error {
	batch := r.store.Batch()
	for _, id := range ids {
		batch.Update(models.NotificationsCollection, id, map[string]interface{}{"read": true})
	}
	return batch.Commit(ctx)
}
