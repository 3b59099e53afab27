package docstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func openMongoForTest(t *testing.T, uri string) *MongoStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	database := "socialape_test_" + strings.ToLower(ulid.Make().String())
	store := NewMongoStore(client, database)
	t.Cleanup(func() {
		_ = client.Database(database).Drop(context.Background())
		_ = store.Close()
	})
	return store
}
