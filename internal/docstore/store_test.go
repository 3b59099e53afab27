package docstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSQLiteStore(t) },
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("GetMissing", func(t *testing.T) {
				_, err := open(t).Get(context.Background(), "users", "nobody")
				assert.ErrorIs(t, err, ErrNotFound)
			})
			t.Run("SetGetUpdate", func(t *testing.T) { testSetGetUpdate(t, open(t)) })
			t.Run("AddAndDelete", func(t *testing.T) { testAddAndDelete(t, open(t)) })
			t.Run("Query", func(t *testing.T) { testQuery(t, open(t)) })
			t.Run("BatchCommits", func(t *testing.T) { testBatchCommits(t, open(t)) })
			t.Run("BatchIsAtomic", func(t *testing.T) { testBatchIsAtomic(t, open(t)) })
		})
	}
}

func testSetGetUpdate(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users", "alice", map[string]interface{}{
		"handle": "alice",
		"email":  "a@x.com",
	}))

	require.NoError(t, s.Update(ctx, "users", "alice", map[string]interface{}{"bio": "hello"}))

	snap, err := s.Get(ctx, "users", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.ID)
	assert.Equal(t, "a@x.com", snap.String("email"))
	assert.Equal(t, "hello", snap.String("bio"))

	err = s.Update(ctx, "users", "bob", map[string]interface{}{"bio": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func testAddAndDelete(t *testing.T, s Store) {
	ctx := context.Background()
	id, err := s.Add(ctx, "screams", map[string]interface{}{"body": "hi", "likeCount": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := s.Get(ctx, "screams", id)
	require.NoError(t, err)

	var out struct {
		Body      string `json:"body"`
		LikeCount int    `json:"likeCount"`
	}
	require.NoError(t, snap.DataTo(&out))
	assert.Equal(t, "hi", out.Body)
	assert.Equal(t, 3, out.LikeCount)

	require.NoError(t, s.Delete(ctx, "screams", id))
	_, err = s.Get(ctx, "screams", id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "screams", id))
}

func testQuery(t *testing.T, s Store) {
	ctx := context.Background()
	docs := []map[string]interface{}{
		{"userHandle": "alice", "createdAt": "2024-01-01T00:00:00.000Z"},
		{"userHandle": "bob", "createdAt": "2024-01-02T00:00:00.000Z"},
		{"userHandle": "alice", "createdAt": "2024-01-03T00:00:00.000Z"},
		{"userHandle": "alice", "createdAt": "2024-01-02T00:00:00.000Z"},
	}
	for i, d := range docs {
		require.NoError(t, s.Set(ctx, "screams", string(rune('a'+i)), d))
	}

	got, err := s.Query(ctx, Collection("screams").Where("userHandle", "alice").Order("createdAt", Desc))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "d", "a"}, ids(got))

	got, err = s.Query(ctx, Collection("screams").Order("createdAt", Asc).Take(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	got, err = s.Query(ctx, Collection("screams").Where("userHandle", "carol"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Query(ctx, Collection("comments"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testBatchCommits(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "notifications", "n1", map[string]interface{}{"read": false}))
	require.NoError(t, s.Set(ctx, "notifications", "n2", map[string]interface{}{"read": false}))

	b := s.Batch()
	b.Update("notifications", "n1", map[string]interface{}{"read": true})
	b.Delete("notifications", "n2")
	b.Set("notifications", "n3", map[string]interface{}{"read": false})
	assert.Equal(t, 3, b.Len())
	require.NoError(t, b.Commit(ctx))

	snap, err := s.Get(ctx, "notifications", "n1")
	require.NoError(t, err)
	assert.Equal(t, true, snap.Data["read"])

	_, err = s.Get(ctx, "notifications", "n2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "notifications", "n3")
	assert.NoError(t, err)

	assert.NoError(t, s.Batch().Commit(ctx))
}

func testBatchIsAtomic(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "notifications", "a", map[string]interface{}{"read": false}))
	require.NoError(t, s.Set(ctx, "notifications", "b", map[string]interface{}{"read": false}))

	b := s.Batch()
	b.Update("notifications", "a", map[string]interface{}{"read": true})
	b.Update("notifications", "missing", map[string]interface{}{"read": true})
	b.Update("notifications", "b", map[string]interface{}{"read": true})
	err := b.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, id := range []string{"a", "b"} {
		snap, err := s.Get(ctx, "notifications", id)
		require.NoError(t, err)
		assert.Equal(t, false, snap.Data["read"], id)
	}
}

func ids(snaps []*Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.ID)
	}
	return out
}

func TestSnapshotString(t *testing.T) {
	var nilSnap *Snapshot
	assert.Equal(t, "", nilSnap.String("handle"))

	snap := &Snapshot{ID: "x", Data: map[string]interface{}{"handle": "alice", "count": 2}}
	assert.Equal(t, "alice", snap.String("handle"))
	assert.Equal(t, "", snap.String("count"))
	assert.Equal(t, "", snap.String("missing"))
}

func TestQueryBuilderDoesNotAlias(t *testing.T) {
	base := Collection("likes").Where("screamId", "s1")
	a := base.Where("userHandle", "alice")
	b := base.Where("userHandle", "bob")

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "alice", a.Filters[1].Value)
	assert.Equal(t, "bob", b.Filters[1].Value)
}

func TestGormStoreRejectsBadFieldNames(t *testing.T) {
	s := newSQLiteStore(t)
	_, err := s.Query(context.Background(), Collection("screams").Where("x'; drop", "1"))
	assert.Error(t, err)
	_, err = s.Query(context.Background(), Collection("screams").Order("a.b", Asc))
	assert.Error(t, err)
}

func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	s := openMongoForTest(t, uri)
	testSetGetUpdate(t, s)
	testQuery(t, s)
}
