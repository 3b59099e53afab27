package repositories

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/models"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) (string, error)
	GetCommentsByScreamID(ctx context.Context, screamID string) ([]models.Comment, error)
	CountCommentsByScreamID(ctx context.Context, screamID string) (int, error)
}

// DocCommentRepository implements CommentRepository over the document store
type DocCommentRepository struct {
	store docstore.Store
}

// NewDocCommentRepository creates a new DocCommentRepository
func NewDocCommentRepository(store docstore.Store) *DocCommentRepository {
	return &DocCommentRepository{store: store}
}

// CreateComment stores the comment and returns its id
func (r *DocCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) (string, error) {
	return r.store.Add(ctx, models.CommentsCollection, comment.ToMap())
}

// GetCommentsByScreamID retrieves the comments on a scream, newest first
func (r *DocCommentRepository) GetCommentsByScreamID(ctx context.Context, screamID string) ([]models.Comment, error) {
	snaps, err := r.store.Query(ctx, docstore.Collection(models.CommentsCollection).
		Where("screamId", screamID).
		Order("createdAt", docstore.Desc))
	if err != nil {
		return nil, err
	}
	comments := make([]models.Comment, 0, len(snaps))
	for _, snap := range snaps {
		var comment models.Comment
		if err := snap.DataTo(&comment); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func (r *DocCommentRepository) CountCommentsByScreamID(ctx context.Context, screamID string) (int, error) {
	snaps, err := r.store.Query(ctx, docstore.Collection(models.CommentsCollection).Where("screamId", screamID))
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}
