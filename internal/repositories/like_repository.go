package repositories

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/models"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	GetLike(ctx context.Context, screamID, handle string) (*models.Like, error)
	DeleteLike(ctx context.Context, id string) error
	GetLikesByUser(ctx context.Context, handle string) ([]models.Like, error)
	CountLikesByScreamID(ctx context.Context, screamID string) (int, error)
}

// DocLikeRepository implements LikeRepository over the document store
type DocLikeRepository struct {
	store docstore.Store
}

// NewDocLikeRepository creates a new DocLikeRepository
func NewDocLikeRepository(store docstore.Store) *DocLikeRepository {
	return &DocLikeRepository{store: store}
}

// CreateLike stores the like and sets its generated ID
func (r *DocLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	id, err := r.store.Add(ctx, models.LikesCollection, like.ToMap())
	if err != nil {
		return err
	}
	like.ID = id
	return nil
}

// GetLike retrieves the like of handle on a scream, or docstore.ErrNotFound
func (r *DocLikeRepository) GetLike(ctx context.Context, screamID, handle string) (*models.Like, error) {
	likes, err := r.query(ctx, docstore.Collection(models.LikesCollection).
		Where("userHandle", handle).
		Where("screamId", screamID).
		Take(1))
	if err != nil {
		return nil, err
	}
	if len(likes) == 0 {
		return nil, docstore.ErrNotFound
	}
	return &likes[0], nil
}

func (r *DocLikeRepository) DeleteLike(ctx context.Context, id string) error {
	return r.store.Delete(ctx, models.LikesCollection, id)
}

// GetLikesByUser retrieves every like made by handle
func (r *DocLikeRepository) GetLikesByUser(ctx context.Context, handle string) ([]models.Like, error) {
	return r.query(ctx, docstore.Collection(models.LikesCollection).Where("userHandle", handle))
}

func (r *DocLikeRepository) CountLikesByScreamID(ctx context.Context, screamID string) (int, error) {
	snaps, err := r.store.Query(ctx, docstore.Collection(models.LikesCollection).Where("screamId", screamID))
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *DocLikeRepository) query(ctx context.Context, q docstore.Query) ([]models.Like, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	likes := make([]models.Like, 0, len(snaps))
	for _, snap := range snaps {
		var like models.Like
		if err := snap.DataTo(&like); err != nil {
			return nil, err
		}
		like.ID = snap.ID
		likes = append(likes, like)
	}
	return likes, nil
}
