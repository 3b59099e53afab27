package repositories

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/models"
)

// ScreamRepository defines the interface for scream data operations
type ScreamRepository interface {
	CreateScream(ctx context.Context, scream *models.Scream) error
	GetScreamByID(ctx context.Context, id string) (*models.Scream, error)
	GetScreams(ctx context.Context) ([]models.Scream, error)
	GetScreamsByUser(ctx context.Context, handle string) ([]models.Scream, error)
	SetLikeCount(ctx context.Context, id string, count int) error
	SetCommentCount(ctx context.Context, id string, count int) error
	DeleteScream(ctx context.Context, id string) error
}

// DocScreamRepository implements ScreamRepository over the document store
type DocScreamRepository struct {
	store docstore.Store
}

// NewDocScreamRepository creates a new DocScreamRepository
func NewDocScreamRepository(store docstore.Store) *DocScreamRepository {
	return &DocScreamRepository{store: store}
}

// CreateScream stores the scream and sets its generated ScreamID
func (r *DocScreamRepository) CreateScream(ctx context.Context, scream *models.Scream) error {
	id, err := r.store.Add(ctx, models.ScreamsCollection, scream.ToMap())
	if err != nil {
		return err
	}
	scream.ScreamID = id
	return nil
}

// GetScreamByID returns docstore.ErrNotFound for an unknown id
func (r *DocScreamRepository) GetScreamByID(ctx context.Context, id string) (*models.Scream, error) {
	snap, err := r.store.Get(ctx, models.ScreamsCollection, id)
	if err != nil {
		return nil, err
	}
	return decodeScream(snap)
}

// GetScreams retrieves every scream, newest first
func (r *DocScreamRepository) GetScreams(ctx context.Context) ([]models.Scream, error) {
	return r.query(ctx, docstore.Collection(models.ScreamsCollection).Order("createdAt", docstore.Desc))
}

// GetScreamsByUser retrieves the screams posted by handle, newest first
func (r *DocScreamRepository) GetScreamsByUser(ctx context.Context, handle string) ([]models.Scream, error) {
	return r.query(ctx, docstore.Collection(models.ScreamsCollection).
		Where("userHandle", handle).
		Order("createdAt", docstore.Desc))
}

func (r *DocScreamRepository) SetLikeCount(ctx context.Context, id string, count int) error {
	return r.store.Update(ctx, models.ScreamsCollection, id, map[string]interface{}{"likeCount": count})
}

func (r *DocScreamRepository) SetCommentCount(ctx context.Context, id string, count int) error {
	return r.store.Update(ctx, models.ScreamsCollection, id, map[string]interface{}{"commentCount": count})
}

// DeleteScream removes only the scream; dependent documents are cleaned up
// by the delete reaction
func (r *DocScreamRepository) DeleteScream(ctx context.Context, id string) error {
	return r.store.Delete(ctx, models.ScreamsCollection, id)
}

func (r *DocScreamRepository) query(ctx context.Context, q docstore.Query) ([]models.Scream, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	screams := make([]models.Scream, 0, len(snaps))
	for _, snap := range snaps {
		scream, err := decodeScream(snap)
		if err != nil {
			return nil, err
		}
		screams = append(screams, *scream)
	}
	return screams, nil
}

func decodeScream(snap *docstore.Snapshot) (*models.Scream, error) {
	var scream models.Scream
	if err := snap.DataTo(&scream); err != nil {
		return nil, err
	}
	scream.ScreamID = snap.ID
	return &scream, nil
}
