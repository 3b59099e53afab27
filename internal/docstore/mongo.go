package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each collection in a MongoDB collection of the same
// name, with the document id as _id. Batches run in a multi-document
// transaction, which needs a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	return s.set(ctx, collection, id, data)
}

func (s *MongoStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := ulid.Make().String()
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.update(ctx, collection, id, fields)
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	filter := bson.D{}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	findOptions := options.Find()
	if q.OrderBy != "" {
		order := 1
		if q.Direction == Desc {
			order = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: order}, {Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err = cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	out := make([]*Snapshot, 0, len(raws))
	for _, raw := range raws {
		out = append(out, fromBSON(raw))
	}
	return out, nil
}

func (s *MongoStore) Batch() Batch {
	return newOpBatch(s.commit)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) commit(ctx context.Context, ops []Op) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			var opErr error
			switch op.Kind {
			case OpSet:
				opErr = s.set(sc, op.Collection, op.ID, op.Data)
			case OpUpdate:
				opErr = s.update(sc, op.Collection, op.ID, op.Data)
			case OpDelete:
				_, opErr = s.db.Collection(op.Collection).DeleteOne(sc, bson.M{"_id": op.ID})
			}
			if opErr != nil {
				return nil, fmt.Errorf("%s/%s: %w", op.Collection, op.ID, opErr)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *MongoStore) set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func fromBSON(raw bson.M) *Snapshot {
	id := fmt.Sprint(raw["_id"])
	delete(raw, "_id")
	return &Snapshot{ID: id, Data: map[string]interface{}(raw)}
}
