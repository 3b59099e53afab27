package repositories

import (
	"context"

	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateUserDetails(ctx context.Context, handle string, details map[string]interface{}) error
	UpdateImageURL(ctx context.Context, handle, imageURL string) error
}

// DocUserRepository implements UserRepository over the document store.
// Users are keyed by handle.
type DocUserRepository struct {
	store docstore.Store
}

// NewDocUserRepository creates a new DocUserRepository
func NewDocUserRepository(store docstore.Store) *DocUserRepository {
	return &DocUserRepository{store: store}
}

// CreateUser writes users/{handle}, replacing any existing document
func (r *DocUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.store.Set(ctx, models.UsersCollection, user.Handle, user.ToMap())
}

// GetUserByHandle returns docstore.ErrNotFound when the handle is free
func (r *DocUserRepository) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	snap, err := r.store.Get(ctx, models.UsersCollection, handle)
	if err != nil {
		return nil, err
	}
	return decodeUser(snap)
}

// GetUserByUID finds the user owning an auth identity
func (r *DocUserRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	snaps, err := r.store.Query(ctx, docstore.Collection(models.UsersCollection).Where("userId", uid).Take(1))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, docstore.ErrNotFound
	}
	return decodeUser(snaps[0])
}

// UpdateUserDetails merges profile fields into the user document
func (r *DocUserRepository) UpdateUserDetails(ctx context.Context, handle string, details map[string]interface{}) error {
	if len(details) == 0 {
		return nil
	}
	return r.store.Update(ctx, models.UsersCollection, handle, details)
}

func (r *DocUserRepository) UpdateImageURL(ctx context.Context, handle, imageURL string) error {
	return r.store.Update(ctx, models.UsersCollection, handle, map[string]interface{}{"imageUrl": imageURL})
}

func decodeUser(snap *docstore.Snapshot) (*models.User, error) {
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, err
	}
	if user.Handle == "" {
		user.Handle = snap.ID
	}
	return &user, nil
}
