// Package triggers holds the reactions that keep derived data in step with
// document changes: notifications for likes and comments, the denormalized
// user image on screams, and the cleanup after a scream is deleted.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/models"
)

// maxBatchWrites is the most writes Firestore accepts in one batch
const maxBatchWrites = 500

// Reactions run against the injected store. Each one is safe to run more
// than once for the same change.
type Reactions struct {
	store  docstore.Store
	cache  cache.ScreamCache
	logger *slog.Logger
	now    func() time.Time
}

// NewReactions creates the reactions. screamCache is invalidated whenever a
// reaction rewrites or removes screams; nil disables it.
func NewReactions(store docstore.Store, screamCache cache.ScreamCache, logger *slog.Logger) *Reactions {
	if screamCache == nil {
		screamCache = cache.NopScreamCache{}
	}
	return &Reactions{store: store, cache: screamCache, logger: logger, now: time.Now}
}

// OnLikeCreated notifies the scream owner. The notification shares the
// like's id so the unlike can find it.
func (r *Reactions) OnLikeCreated(ctx context.Context, change events.Change) error {
	return r.notify(ctx, change, models.NotificationLike)
}

// OnLikeDeleted removes the notification created for the like
func (r *Reactions) OnLikeDeleted(ctx context.Context, change events.Change) error {
	if err := r.store.Delete(ctx, models.NotificationsCollection, change.ID); err != nil {
		return fmt.Errorf("delete notification %s: %w", change.ID, err)
	}
	return nil
}

// OnCommentCreated notifies the scream owner of a new comment
func (r *Reactions) OnCommentCreated(ctx context.Context, change events.Change) error {
	return r.notify(ctx, change, models.NotificationComment)
}

func (r *Reactions) notify(ctx context.Context, change events.Change, kind string) error {
	if change.After == nil {
		return nil
	}
	screamID := change.After.String("screamId")
	sender := change.After.String("userHandle")

	scream, err := r.store.Get(ctx, models.ScreamsCollection, screamID)
	if errors.Is(err, docstore.ErrNotFound) {
		r.logger.Info("scream gone, no notification", "screamId", screamID, "documentId", change.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get scream %s: %w", screamID, err)
	}

	recipient := scream.String("userHandle")
	if recipient == sender {
		return nil
	}

	n := models.Notification{
		Recipient: recipient,
		Sender:    sender,
		Type:      kind,
		ScreamID:  screamID,
		CreatedAt: models.Timestamp(r.now()),
		Read:      false,
	}
	if err := r.store.Set(ctx, models.NotificationsCollection, change.ID, n.ToMap()); err != nil {
		return fmt.Errorf("create notification %s: %w", change.ID, err)
	}
	return nil
}

// OnUserImageChanged copies a new profile image onto every scream of the
// user
func (r *Reactions) OnUserImageChanged(ctx context.Context, change events.Change) error {
	if change.Before == nil || change.After == nil {
		return nil
	}
	newImage := change.After.String("imageUrl")
	if change.Before.String("imageUrl") == newImage {
		return nil
	}

	handle := change.Before.String("handle")
	if handle == "" {
		handle = change.ID
	}
	screams, err := r.store.Query(ctx, docstore.Collection(models.ScreamsCollection).Where("userHandle", handle))
	if err != nil {
		return fmt.Errorf("query screams of %s: %w", handle, err)
	}

	if len(screams) == 0 {
		return nil
	}

	ops := make([]docstore.Op, 0, len(screams))
	for _, s := range screams {
		ops = append(ops, docstore.Op{
			Kind:       docstore.OpUpdate,
			Collection: models.ScreamsCollection,
			ID:         s.ID,
			Data:       map[string]interface{}{"userImage": newImage},
		})
	}
	if err := r.commit(ctx, ops); err != nil {
		return fmt.Errorf("update screams of %s: %w", handle, err)
	}
	r.invalidate(ctx)
	return nil
}

// OnScreamDeleted deletes the comments, likes and notifications of the
// scream
func (r *Reactions) OnScreamDeleted(ctx context.Context, change events.Change) error {
	var ops []docstore.Op
	for _, collection := range []string{
		models.CommentsCollection,
		models.LikesCollection,
		models.NotificationsCollection,
	} {
		docs, err := r.store.Query(ctx, docstore.Collection(collection).Where("screamId", change.ID))
		if err != nil {
			return fmt.Errorf("query %s of scream %s: %w", collection, change.ID, err)
		}
		for _, d := range docs {
			ops = append(ops, docstore.Op{Kind: docstore.OpDelete, Collection: collection, ID: d.ID})
		}
	}
	if err := r.commit(ctx, ops); err != nil {
		return fmt.Errorf("cleanup scream %s: %w", change.ID, err)
	}
	r.invalidate(ctx)
	return nil
}

// commit writes ops in batches of at most maxBatchWrites. Each batch is
// atomic; a failure leaves earlier batches applied, and rerunning the
// reaction finishes the job.
func (r *Reactions) commit(ctx context.Context, ops []docstore.Op) error {
	for start := 0; start < len(ops); start += maxBatchWrites {
		end := min(start+maxBatchWrites, len(ops))
		batch := r.store.Batch()
		for _, op := range ops[start:end] {
			switch op.Kind {
			case docstore.OpUpdate:
				batch.Update(op.Collection, op.ID, op.Data)
			case docstore.OpDelete:
				batch.Delete(op.Collection, op.ID)
			default:
				batch.Set(op.Collection, op.ID, op.Data)
			}
		}
		if err := batch.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reactions) invalidate(ctx context.Context) {
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Warn("invalidate scream cache", "error", err)
	}
}
